package display

import "errors"

var (
	ErrNoDisplay    = errors.New("no display available")
	ErrNoLayerShell = errors.New("compositor does not support layer-shell")
	ErrNoWindow     = errors.New("overlay window not available")
	ErrNoMonitor    = errors.New("no monitor available")
)

// DisplayError records which overlay operation failed.
type DisplayError struct {
	Op  string
	Err error
}

func (e *DisplayError) Error() string {
	return "display: " + e.Op + ": " + e.Err.Error()
}

func (e *DisplayError) Unwrap() error {
	return e.Err
}
