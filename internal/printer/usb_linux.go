//go:build linux

package printer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const usbMiscClass = "/sys/class/usbmisc"

// openUSB resolves a vendor:product pair to its usblp device node and opens
// it like any other character device. The kernel driver owns the bulk
// endpoints, so descriptor endpoint overrides are accepted but not needed
// here.
func openUSB(d Descriptor) (io.WriteCloser, error) {
	path, err := findUSBLPNode(d.VendorID, d.ProductID)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return f, nil
}

// findUSBLPNode walks /sys/class/usbmisc for lpN entries whose parent USB
// device carries the wanted ids.
func findUSBLPNode(vendor, product uint16) (string, error) {
	entries, err := os.ReadDir(usbMiscClass)
	if err != nil {
		return "", fmt.Errorf("%w: scan %s: %v", ErrConnectionFailed, usbMiscClass, err)
	}

	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "lp") {
			continue
		}
		// lpN/device is the USB interface; the ids live on its parent.
		devDir := filepath.Join(usbMiscClass, e.Name(), "device", "..")
		vid, err := readHexAttr(filepath.Join(devDir, "idVendor"))
		if err != nil {
			continue
		}
		pid, err := readHexAttr(filepath.Join(devDir, "idProduct"))
		if err != nil {
			continue
		}
		if vid == vendor && pid == product {
			return filepath.Join("/dev/usb", e.Name()), nil
		}
	}

	return "", fmt.Errorf("%w: no usblp device for %04x:%04x", ErrConnectionFailed, vendor, product)
}

func readHexAttr(path string) (uint16, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
