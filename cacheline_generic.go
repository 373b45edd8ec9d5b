// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !arm64

package segqueue

// cacheLine is the padding width used to isolate hot atomic fields onto
// their own cache line. 64 bytes covers amd64 and the rest of the targets
// this module builds for.
const cacheLine = 64

type pad [cacheLine]byte
