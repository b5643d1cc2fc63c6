package printer

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDescriptorNetwork(t *testing.T) {
	tests := []struct {
		in   string
		host string
		port int
	}{
		{"192.168.1.50", "192.168.1.50", 9100},
		{"192.168.1.50:9100", "192.168.1.50", 9100},
		{"10.0.0.7:6001", "10.0.0.7", 6001},
		{" 10.0.0.7 ", "10.0.0.7", 9100},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDescriptor(tt.in)
			require.NoError(t, err)
			assert.Equal(t, KindNetwork, d.Kind)
			assert.Equal(t, tt.host, d.Host)
			assert.Equal(t, tt.port, d.Port)
		})
	}
}

func TestParseDescriptorUSB(t *testing.T) {
	d, err := ParseDescriptor("USB:0x04b8:0x0202")
	require.NoError(t, err)
	assert.Equal(t, KindUSB, d.Kind)
	assert.Equal(t, uint16(0x04b8), d.VendorID)
	assert.Equal(t, uint16(0x0202), d.ProductID)
	assert.Zero(t, d.OutEndpoint)
	assert.Zero(t, d.InEndpoint)

	d, err = ParseDescriptor("USB:04b8:0202:0x01:0x82")
	require.NoError(t, err)
	assert.Equal(t, uint16(0x04b8), d.VendorID)
	assert.Equal(t, uint16(0x0202), d.ProductID)
	assert.Equal(t, uint8(0x01), d.OutEndpoint)
	assert.Equal(t, uint8(0x82), d.InEndpoint)
}

func TestParseDescriptorUSBMalformed(t *testing.T) {
	for _, in := range []string{
		"USB:",
		"USB:04b8",
		"USB:04b8:0202:01",  // endpoints come in pairs
		"USB:zzzz:0202",     // not hex
		"USB:04b8:0202:0x01:0x8200", // endpoint too wide
	} {
		_, err := ParseDescriptor(in)
		assert.ErrorIs(t, err, ErrBadDescriptor, "input %q", in)
	}
}

func TestParseDescriptorPath(t *testing.T) {
	for _, in := range []string{"/dev/usb/lp1", "COM3", "LPT1", "/tmp/fake-printer"} {
		d, err := ParseDescriptor(in)
		require.NoError(t, err)
		assert.Equal(t, KindPath, d.Kind)
		assert.Equal(t, in, d.Path)
	}
}

func TestParseDescriptorEmptyUsesPlatformDefault(t *testing.T) {
	d, err := ParseDescriptor("")
	if runtime.GOOS == "windows" {
		assert.ErrorIs(t, err, ErrNoDefaultDevice)
		return
	}
	require.NoError(t, err)
	assert.Equal(t, KindPath, d.Kind)
	assert.Equal(t, "/dev/usb/lp0", d.Path)
}

func TestParseDescriptorHostnameIsAPath(t *testing.T) {
	// Only dotted quads select the network transport; hostnames fall
	// through to the path branch and fail loudly at connect time.
	d, err := ParseDescriptor("printer.local")
	require.NoError(t, err)
	assert.Equal(t, KindPath, d.Kind)
}

func TestDescriptorTarget(t *testing.T) {
	assert.Equal(t, "192.168.1.50:9100", Descriptor{Kind: KindNetwork, Host: "192.168.1.50", Port: 9100}.Target())
	assert.Equal(t, "usb 04b8:0202", Descriptor{Kind: KindUSB, VendorID: 0x04b8, ProductID: 0x0202}.Target())
	assert.Equal(t, "/dev/usb/lp0", Descriptor{Kind: KindPath, Path: "/dev/usb/lp0"}.Target())
}
