// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package segqueue

import "code.hybscloud.com/iox"

// ErrEmpty indicates TryDequeue found nothing to return.
//
// It is a control-flow signal, not a failure: the queue is unbounded, so
// Enqueue never fails and the only semantic error this package surfaces is
// an empty queue on the dequeue side.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency with
// the rest of the hybscloud queue family.
var ErrEmpty = iox.ErrWouldBlock

// IsErrEmpty reports whether err indicates TryDequeue found the queue
// empty. Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsErrEmpty(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}
