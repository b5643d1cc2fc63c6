// Package epos extracts print intent from Epson ePOS-Print request bodies
// and owns the fixed acknowledgement envelope.
//
// Real senders (ePOS SDK builds, kiosk webviews, hand-rolled POS pages) do
// not produce uniform XML: namespaces vary, attributes switch quote styles,
// some omit the SOAP wrapper entirely. Full XML parsing rejects too much of
// the traffic that physical printers happily accept, so intent is recovered
// with targeted pattern scans instead.
package epos

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"
)

var (
	pulseRe  = regexp.MustCompile(`<pulse\s*([^/>]*)/?\s*>`)
	drawerRe = regexp.MustCompile(`drawer=["']?(\d+)["']?`)
	imageRe  = regexp.MustCompile(`(?s)<image[^>]*>(.*?)</image>`)
	widthRe  = regexp.MustCompile(`width=["']?(\d+)["']?`)
	heightRe = regexp.MustCompile(`height=["']?(\d+)["']?`)
)

// Pulse is a cash drawer kick request.
type Pulse struct {
	Pin int
}

// Image is a decoded raster payload. Width and Height are the dimensions the
// sender declared; zero means the attribute was absent and the printing side
// has to infer it.
type Image struct {
	Data   []byte
	Width  int
	Height int
}

// Request is the print intent recovered from one POST body. Pulse and Image
// are independent: a body may carry either, both, or neither.
type Request struct {
	Pulse *Pulse
	Image *Image
}

// Recognized reports whether the body carried anything actionable.
func (r Request) Recognized() bool {
	return r.Pulse != nil || r.Image != nil
}

// DecodeError reports an image element whose payload was not valid base64.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode image payload: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Parse scans body for drawer and image intent. The returned Request is
// always usable; a non-nil error only means an image element was present but
// its payload would not decode, in which case Request.Image stays nil and
// any pulse intent is still honored.
func Parse(body string) (Request, error) {
	var req Request

	if m := pulseRe.FindStringSubmatch(body); m != nil {
		pin := 0
		if pm := drawerRe.FindStringSubmatch(m[1]); pm != nil {
			pin, _ = strconv.Atoi(pm[1])
		}
		req.Pulse = &Pulse{Pin: pin}
	}

	m := imageRe.FindStringSubmatch(body)
	if m == nil {
		return req, nil
	}

	// Dimension attributes are scanned over the whole body, not just the
	// image tag. Some senders declare them on an enclosing element.
	width := 0
	if wm := widthRe.FindStringSubmatch(body); wm != nil {
		width, _ = strconv.Atoi(wm[1])
	}
	height := 0
	if hm := heightRe.FindStringSubmatch(body); hm != nil {
		height, _ = strconv.Atoi(hm[1])
	}

	data, err := decodePayload(m[1])
	if err != nil {
		return req, &DecodeError{Err: err}
	}
	req.Image = &Image{Data: data, Width: width, Height: height}

	return req, nil
}

// decodePayload tolerates the line wrapping and indentation senders put
// around base64 text.
func decodePayload(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(s)
}
