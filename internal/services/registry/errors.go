package registry

import "errors"

// ErrStoreUnavailable marks a transient table store failure. Reads fail open
// with an empty snapshot; submits fail without having written. Callers may
// retry later.
var ErrStoreUnavailable = errors.New("table store unavailable")
