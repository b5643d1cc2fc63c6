package printer

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

// Manager owns the single cached handle to the configured printer. The
// handle opens lazily on first use and stays open across requests; any
// failure dirties it so the next use starts from a fresh connect.
type Manager struct {
	desc         Descriptor
	dialTimeout  time.Duration
	writeTimeout time.Duration
	log          *slog.Logger

	mu   sync.Mutex
	conn io.WriteCloser
}

func NewManager(desc Descriptor, dialTimeout, writeTimeout time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		desc:         desc,
		dialTimeout:  dialTimeout,
		writeTimeout: writeTimeout,
		log:          log,
	}
}

// Send writes data through the cached handle, connecting first if needed.
// A write failure closes the handle before returning so a retry starts
// clean.
func (m *Manager) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		conn, err := open(m.desc, m.dialTimeout)
		if err != nil {
			return err
		}
		m.conn = conn
		m.log.Debug("printer connected", "target", m.desc.Target())
	}

	if nc, ok := m.conn.(net.Conn); ok {
		_ = nc.SetWriteDeadline(time.Now().Add(m.writeTimeout))
	}

	if _, err := m.conn.Write(data); err != nil {
		m.closeLocked()
		return fmt.Errorf("%w: write %d bytes: %v", ErrConnectionFailed, len(data), err)
	}

	return nil
}

// Reset force-closes the cached handle so the next Send reconnects. Safe to
// call when no handle is open.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

// Close releases the handle at shutdown.
func (m *Manager) Close() {
	m.Reset()
}

// Connected reports whether a handle is currently cached. It says nothing
// about printer health, only that the last operation left a usable handle.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Descriptor returns the parsed device identity the manager was built with.
func (m *Manager) Descriptor() Descriptor {
	return m.desc
}

// Info is a point-in-time snapshot of the managed device.
type Info struct {
	Kind      Kind   `json:"kind"`
	Target    string `json:"target"`
	Connected bool   `json:"connected"`
}

// Info reports the device identity and handle state for the admin surface.
func (m *Manager) Info() Info {
	return Info{
		Kind:      m.desc.Kind,
		Target:    m.desc.Target(),
		Connected: m.Connected(),
	}
}

func (m *Manager) closeLocked() {
	if m.conn == nil {
		return
	}
	if err := m.conn.Close(); err != nil {
		m.log.Debug("printer close", "error", err)
	}
	m.conn = nil
}
