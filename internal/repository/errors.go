package repository

import "errors"

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("not found")

// ErrKeyExhausted is returned when a deploy key exists but has no uses
// left. Callers present it exactly like ErrNotFound; keeping the
// distinct value lets logs and the action trail tell the two apart.
var ErrKeyExhausted = errors.New("deploy key exhausted")
