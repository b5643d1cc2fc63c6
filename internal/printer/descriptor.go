// Package printer manages the connection to a single ESC/POS receipt
// printer and the operations the bridge performs on it.
package printer

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"
)

var (
	ErrNoDefaultDevice = errors.New("no printer configured and no platform default")
	ErrBadDescriptor   = errors.New("malformed printer descriptor")
	ErrUSBUnsupported  = errors.New("usb printers require the linux usblp driver")
)

const (
	defaultTCPPort    = 9100
	defaultDevicePath = "/dev/usb/lp0"
)

// Kind says which transport a descriptor resolves to.
type Kind string

const (
	KindNetwork Kind = "network"
	KindUSB     Kind = "usb"
	KindPath    Kind = "path"
)

var networkRe = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+(:\d+)?$`)

// Descriptor identifies the physical printer. Exactly one transport's
// fields are populated, selected by Kind.
type Descriptor struct {
	Kind Kind

	// KindNetwork
	Host string
	Port int

	// KindUSB. Endpoints are zero when the descriptor left them out.
	VendorID    uint16
	ProductID   uint16
	OutEndpoint uint8
	InEndpoint  uint8

	// KindPath
	Path string
}

// Target renders the descriptor for logs and the admin surface.
func (d Descriptor) Target() string {
	switch d.Kind {
	case KindNetwork:
		return fmt.Sprintf("%s:%d", d.Host, d.Port)
	case KindUSB:
		return fmt.Sprintf("usb %04x:%04x", d.VendorID, d.ProductID)
	default:
		return d.Path
	}
}

// ParseDescriptor classifies a device string.
//
// Dotted-quad addresses, optionally with a port, become network printers on
// the raw 9100 socket. Strings shaped USB:<vendor>:<product> with optional
// :<out-ep>:<in-ep> become USB printers. Everything else is taken verbatim
// as a device path or port name (/dev/usb/lp0, COM3, LPT1). An empty string
// selects the platform default device, which only exists on unix-likes.
func ParseDescriptor(s string) (Descriptor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultDescriptor()
	}

	if networkRe.MatchString(s) {
		host, port := s, defaultTCPPort
		if i := strings.LastIndex(s, ":"); i >= 0 {
			p, err := strconv.Atoi(s[i+1:])
			if err != nil {
				return Descriptor{}, fmt.Errorf("%w: port in %q", ErrBadDescriptor, s)
			}
			host, port = s[:i], p
		}
		return Descriptor{Kind: KindNetwork, Host: host, Port: port}, nil
	}

	if strings.HasPrefix(strings.ToUpper(s), "USB:") {
		return parseUSBDescriptor(s)
	}

	return Descriptor{Kind: KindPath, Path: s}, nil
}

func parseUSBDescriptor(s string) (Descriptor, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 && len(parts) != 5 {
		return Descriptor{}, fmt.Errorf("%w: want USB:<vendor>:<product>[:<out-ep>:<in-ep>], got %q", ErrBadDescriptor, s)
	}

	vid, err := parseHex16(parts[1])
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: vendor id %q", ErrBadDescriptor, parts[1])
	}
	pid, err := parseHex16(parts[2])
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: product id %q", ErrBadDescriptor, parts[2])
	}

	d := Descriptor{Kind: KindUSB, VendorID: vid, ProductID: pid}

	if len(parts) == 5 {
		out, err := parseHex8(parts[3])
		if err != nil {
			return Descriptor{}, fmt.Errorf("%w: out endpoint %q", ErrBadDescriptor, parts[3])
		}
		in, err := parseHex8(parts[4])
		if err != nil {
			return Descriptor{}, fmt.Errorf("%w: in endpoint %q", ErrBadDescriptor, parts[4])
		}
		d.OutEndpoint, d.InEndpoint = out, in
	}

	return d, nil
}

func parseHex16(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	return uint16(v), err
}

func parseHex8(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 8)
	return uint8(v), err
}

func defaultDescriptor() (Descriptor, error) {
	// Windows has no stable default device node; the descriptor must be
	// explicit there (a COM/LPT name or a network address).
	if runtime.GOOS == "windows" {
		return Descriptor{}, ErrNoDefaultDevice
	}
	return Descriptor{Kind: KindPath, Path: defaultDevicePath}, nil
}
