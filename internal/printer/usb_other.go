//go:build !linux

package printer

import (
	"io"

	"github.com/thearyadev/epson-esc-proxy/internal/retry"
)

// openUSB has no portable implementation without cgo. On platforms other
// than Linux the descriptor must point at a device path or network address
// instead, so the error is marked non-retryable: reconnecting cannot fix it.
func openUSB(_ Descriptor) (io.WriteCloser, error) {
	return nil, retry.NonRetryable(ErrUSBUnsupported)
}
