// Package raster normalizes packed 1bpp image payloads to the physical
// paper width of the printer.
package raster

import (
	"errors"
	"fmt"

	"github.com/thearyadev/epson-esc-proxy/internal/epos"
)

var (
	// ErrNoRows means the payload did not contain even one complete row.
	ErrNoRows = errors.New("no complete rows in payload")

	// ErrTooNarrow means the effective width is under one byte of pixels.
	ErrTooNarrow = errors.New("width narrower than 8px")
)

// Raster is print-ready row data. Data holds exactly WidthBytes*Height
// bytes, one bit per pixel, most significant bit leftmost.
type Raster struct {
	Data       []byte
	WidthBytes int
	Height     int
}

// WidthPx is the pixel width of the normalized rows.
func (r Raster) WidthPx() int {
	return r.WidthBytes * 8
}

// Normalize turns a decoded image payload into rows sized for the paper.
//
// Missing dimensions are reconstructed: width falls back to paperWidthPx,
// height to however many complete rows the payload holds. Declared widths
// that are not byte aligned round down to the previous multiple of 8, and
// payloads shorter than width*height keep only their complete rows. Images
// narrower than the paper are centered with zero (white) padding; images at
// or beyond paper width pass through untouched, trusting the printer to
// clip.
func Normalize(img epos.Image, paperWidthPx int) (Raster, error) {
	width := img.Width
	if width <= 0 {
		width = paperWidthPx
	}
	widthBytes := width / 8
	if widthBytes <= 0 {
		return Raster{}, fmt.Errorf("%w: declared width %dpx", ErrTooNarrow, img.Width)
	}

	height := img.Height
	if maxRows := len(img.Data) / widthBytes; height <= 0 || height > maxRows {
		height = maxRows
	}
	if height <= 0 {
		return Raster{}, fmt.Errorf("%w: %d bytes at %dpx wide", ErrNoRows, len(img.Data), width)
	}

	data := img.Data[:widthBytes*height]

	paperBytes := paperWidthPx / 8
	if widthBytes >= paperBytes {
		return Raster{Data: data, WidthBytes: widthBytes, Height: height}, nil
	}

	leftPad := (paperBytes - widthBytes) / 2
	out := make([]byte, paperBytes*height)
	for y := 0; y < height; y++ {
		copy(out[y*paperBytes+leftPad:], data[y*widthBytes:(y+1)*widthBytes])
	}

	return Raster{Data: out, WidthBytes: paperBytes, Height: height}, nil
}
