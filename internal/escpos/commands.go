// Package escpos builds the raw ESC/POS byte sequences understood by Epson
// compatible receipt printers. Only the handful of commands the bridge
// actually emits are covered; this is not a general ESC/POS encoder.
package escpos

const (
	esc = 0x1B
	gs  = 0x1D
)

// DrawerPulse returns ESC p m t1 t2, the kick-out pulse for the cash drawer
// connector. pin is masked to connector 0 or 1. Both pulse timings are fixed
// at 25 (about 50ms on, 50ms off), which every drawer tested fires reliably
// with.
func DrawerPulse(pin int) []byte {
	return []byte{esc, 'p', byte(pin & 1), 25, 25}
}

// RasterImage returns GS v 0 in normal scale followed by the packed 1bpp
// rows. widthBytes and height are encoded little-endian; data must hold
// exactly widthBytes*height bytes.
func RasterImage(widthBytes, height int, data []byte) []byte {
	out := make([]byte, 0, 8+len(data))
	out = append(out,
		gs, 'v', '0', 0,
		byte(widthBytes&0xFF), byte(widthBytes>>8&0xFF),
		byte(height&0xFF), byte(height>>8&0xFF),
	)
	return append(out, data...)
}

// Feed returns ESC d n, printing the buffer and feeding n lines.
func Feed(lines int) []byte {
	return []byte{esc, 'd', byte(lines)}
}

// Cut returns GS V 0, a full cut at the current position.
func Cut() []byte {
	return []byte{gs, 'V', 0}
}
