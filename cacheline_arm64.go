// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build arm64

package segqueue

// cacheLine is the padding width used to isolate hot atomic fields onto
// their own cache line. ARM64 server parts commonly ship 128-byte L1/L2
// lines; pad wider there to avoid false sharing between head and tail.
const cacheLine = 128

type pad [cacheLine]byte
