package printer

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"
)

var ErrConnectionFailed = errors.New("connection failed")

// open establishes a fresh handle for the descriptor. Callers own closing
// it; handles are not safe for concurrent use.
func open(d Descriptor, dialTimeout time.Duration) (io.WriteCloser, error) {
	switch d.Kind {
	case KindNetwork:
		addr := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		return conn, nil

	case KindUSB:
		return openUSB(d)

	default:
		f, err := os.OpenFile(d.Path, os.O_WRONLY, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		return f, nil
	}
}
