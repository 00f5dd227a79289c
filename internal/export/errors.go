package export

import "errors"

// ErrUnknownFormat is returned for an unsupported export format name.
var ErrUnknownFormat = errors.New("unknown export format")
