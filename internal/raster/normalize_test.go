package raster

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thearyadev/epson-esc-proxy/internal/epos"
)

const paperPx = 576 // 72 bytes

func rowPattern(widthBytes, height int, fill byte) []byte {
	return bytes.Repeat([]byte{fill}, widthBytes*height)
}

func TestNormalizeFullWidthPassThrough(t *testing.T) {
	data := rowPattern(72, 10, 0xAB)

	r, err := Normalize(epos.Image{Data: data, Width: 576, Height: 10}, paperPx)
	require.NoError(t, err)
	assert.Equal(t, 72, r.WidthBytes)
	assert.Equal(t, 10, r.Height)
	assert.Equal(t, data, r.Data)
	assert.Equal(t, 576, r.WidthPx())
}

func TestNormalizeWiderThanPaperPassThrough(t *testing.T) {
	data := rowPattern(80, 4, 0x01)

	r, err := Normalize(epos.Image{Data: data, Width: 640, Height: 4}, paperPx)
	require.NoError(t, err)
	assert.Equal(t, 80, r.WidthBytes)
	assert.Equal(t, data, r.Data)
}

func TestNormalizeCentersNarrowImage(t *testing.T) {
	// 384px (48 bytes) on 576px paper: 24 spare bytes, 12 each side.
	data := rowPattern(48, 3, 0xFF)

	r, err := Normalize(epos.Image{Data: data, Width: 384, Height: 3}, paperPx)
	require.NoError(t, err)
	assert.Equal(t, 72, r.WidthBytes)
	assert.Equal(t, 3, r.Height)
	require.Len(t, r.Data, 72*3)

	for y := 0; y < 3; y++ {
		row := r.Data[y*72 : (y+1)*72]
		assert.Equal(t, bytes.Repeat([]byte{0x00}, 12), row[:12], "left pad row %d", y)
		assert.Equal(t, bytes.Repeat([]byte{0xFF}, 48), row[12:60], "payload row %d", y)
		assert.Equal(t, bytes.Repeat([]byte{0x00}, 12), row[60:], "right pad row %d", y)
	}
}

func TestNormalizeUnevenPaddingRemainderGoesRight(t *testing.T) {
	// 460px rounds down to 57 bytes, leaving 15 spare on 72-byte paper.
	data := rowPattern(57, 2, 0xEE)

	r, err := Normalize(epos.Image{Data: data, Width: 460, Height: 2}, paperPx)
	require.NoError(t, err)
	assert.Equal(t, 72, r.WidthBytes)

	// 15 spare bytes: 7 left, 8 right.
	row := r.Data[:72]
	assert.Equal(t, bytes.Repeat([]byte{0x00}, 7), row[:7])
	assert.Equal(t, bytes.Repeat([]byte{0xEE}, 57), row[7:64])
	assert.Equal(t, bytes.Repeat([]byte{0x00}, 8), row[64:])
}

func TestNormalizePaddingRowLengthInvariant(t *testing.T) {
	for _, wb := range []int{1, 7, 24, 42, 48, 71} {
		data := rowPattern(wb, 2, 0x80)
		r, err := Normalize(epos.Image{Data: data, Width: wb * 8, Height: 2}, paperPx)
		require.NoError(t, err, "width bytes %d", wb)
		assert.Equal(t, 72, r.WidthBytes, "width bytes %d", wb)
		assert.Len(t, r.Data, r.WidthBytes*r.Height, "width bytes %d", wb)
	}
}

func TestNormalizeIdempotentAtPaperWidth(t *testing.T) {
	data := rowPattern(24, 5, 0x3C)

	first, err := Normalize(epos.Image{Data: data, Width: 192, Height: 5}, paperPx)
	require.NoError(t, err)

	second, err := Normalize(epos.Image{
		Data:   first.Data,
		Width:  first.WidthPx(),
		Height: first.Height,
	}, paperPx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNormalizeAllWhiteStaysAllWhite(t *testing.T) {
	data := make([]byte, 48*4)

	r, err := Normalize(epos.Image{Data: data, Width: 384, Height: 4}, paperPx)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 72*4), r.Data)
}

func TestNormalizeInfersMissingDimensions(t *testing.T) {
	t.Run("no width uses paper width", func(t *testing.T) {
		data := rowPattern(72, 6, 0x11)
		r, err := Normalize(epos.Image{Data: data}, paperPx)
		require.NoError(t, err)
		assert.Equal(t, 72, r.WidthBytes)
		assert.Equal(t, 6, r.Height)
	})

	t.Run("no height derives from payload", func(t *testing.T) {
		data := rowPattern(48, 9, 0x22)
		r, err := Normalize(epos.Image{Data: data, Width: 384}, paperPx)
		require.NoError(t, err)
		assert.Equal(t, 9, r.Height)
	})

	t.Run("partial trailing row is dropped", func(t *testing.T) {
		data := append(rowPattern(48, 2, 0x33), 0x44, 0x44) // 2 rows + 2 stray bytes
		r, err := Normalize(epos.Image{Data: data, Width: 384}, paperPx)
		require.NoError(t, err)
		assert.Equal(t, 2, r.Height)
	})
}

func TestNormalizeOversizedDeclaredHeightTruncates(t *testing.T) {
	data := rowPattern(72, 3, 0x55)

	r, err := Normalize(epos.Image{Data: data, Width: 576, Height: 10}, paperPx)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Height)
	assert.Len(t, r.Data, 72*3)
}

func TestNormalizeRejectsEmptyPayload(t *testing.T) {
	_, err := Normalize(epos.Image{Data: nil, Width: 576, Height: 0}, paperPx)
	assert.ErrorIs(t, err, ErrNoRows)

	// Fewer bytes than one row.
	_, err = Normalize(epos.Image{Data: make([]byte, 10), Width: 576}, paperPx)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestNormalizeRejectsSubBytePixelWidth(t *testing.T) {
	_, err := Normalize(epos.Image{Data: []byte{0xFF}, Width: 5, Height: 1}, paperPx)
	assert.ErrorIs(t, err, ErrTooNarrow)
}
