package probe

import "errors"

// ErrProbeFailed is returned when the probe could not be carried out,
// for example because ping is not installed or the context ended.
var ErrProbeFailed = errors.New("probe: probe failed")
