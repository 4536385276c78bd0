package metadata

import "errors"

// ErrDatabase wraps every storage engine failure. Reads failing with it may be retried.
var ErrDatabase = errors.New("database error")
