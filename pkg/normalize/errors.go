package normalize

import "errors"

// ErrDuplicateIdentifier is returned by callers running in strict identifier mode.
var ErrDuplicateIdentifier = errors.New("duplicate agent identifier")
