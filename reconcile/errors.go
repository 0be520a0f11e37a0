package reconcile

import "errors"

// Sentinel errors for construction.
var (
	ErrNilStore  = errors.New("reconcile: store is nil")
	ErrNilMirror = errors.New("reconcile: mirror is nil")
)
