package extract

import (
	"errors"
	"fmt"
)

// Sentinel errors reported by the extraction engine.
var (
	ErrContentRead         = errors.New("content read error")
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrNotAncestor         = errors.New("commit is not on the first-parent chain")
)

var (
	errBinaryContent = errors.New("blob holds binary data")
	errInvalidUTF8   = errors.New("blob is not valid UTF-8")
)

// ContentReadError is returned when a blob under a classified path cannot be read.
type ContentReadError struct {
	Path string
	Hash string
	Err  error
}

// Error implements the error interface.
func (e *ContentReadError) Error() string {
	return fmt.Sprintf("cannot read %s (blob %s): %v", e.Path, e.Hash, e.Err)
}

// Unwrap exposes both ErrContentRead and the underlying cause.
func (e *ContentReadError) Unwrap() []error {
	return []error{ErrContentRead, e.Err}
}
