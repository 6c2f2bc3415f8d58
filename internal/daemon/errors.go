package daemon

import (
	"fmt"
	"time"
)

// ReadyTimeoutError reports content that did not become ready in time.
// The overlay stays hidden; the daemon keeps running.
type ReadyTimeoutError struct {
	Elapsed     time.Duration
	Diagnostics Diagnostics
}

func (e *ReadyTimeoutError) Error() string {
	msg := fmt.Sprintf("overlay content not ready after %s (window valid: %t, children: %d, loader: %s)",
		e.Elapsed.Round(time.Millisecond), e.Diagnostics.WindowValid, e.Diagnostics.Children, e.Diagnostics.Status)
	if e.Diagnostics.Error != "" {
		msg += ": " + e.Diagnostics.Error
	}
	return msg
}
