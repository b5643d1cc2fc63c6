package raster

import (
	"errors"
	"math"
	"math/bits"
)

// Candidate byte widths seen across common thermal mechanisms (58mm and
// 80mm paper at 180 or 203 dpi, plus a few label printers).
var widthCandidates = []int{42, 48, 52, 54, 56, 58, 64, 70, 72, 80}

// Receipts are mostly white. A plausible rendering lands somewhere between
// nearly blank and half ink, and typical receipts sit around 15% ink.
const (
	targetInkRatio = 0.15
	minInkRatio    = 0.01
	maxInkRatio    = 0.50
)

// ErrNoPlausibleWidth means no candidate produced a believable ink ratio.
var ErrNoPlausibleWidth = errors.New("no plausible width candidate")

// Candidate is one width hypothesis for an undeclared payload.
type Candidate struct {
	WidthBytes int
	Height     int
	InkRatio   float64
	Plausible  bool
}

// Survey evaluates every candidate width against the payload. Diagnostic
// only: results feed the rasterdiag tool, never the print path.
func Survey(data []byte) []Candidate {
	out := make([]Candidate, 0, len(widthCandidates))
	for _, wb := range widthCandidates {
		h := len(data) / wb
		if h == 0 {
			out = append(out, Candidate{WidthBytes: wb})
			continue
		}
		n := wb * h
		ink := float64(countSetBits(data[:n])) / float64(n*8)
		out = append(out, Candidate{
			WidthBytes: wb,
			Height:     h,
			InkRatio:   ink,
			Plausible:  ink >= minInkRatio && ink <= maxInkRatio,
		})
	}
	return out
}

// GuessWidthBytes picks the plausible candidate whose ink ratio sits closest
// to a typical receipt. Ties keep the narrower width.
func GuessWidthBytes(data []byte) (int, error) {
	best := 0
	bestDist := math.MaxFloat64
	for _, c := range Survey(data) {
		if !c.Plausible {
			continue
		}
		if d := math.Abs(c.InkRatio - targetInkRatio); d < bestDist {
			bestDist = d
			best = c.WidthBytes
		}
	}
	if best == 0 {
		return 0, ErrNoPlausibleWidth
	}
	return best, nil
}

func countSetBits(data []byte) int {
	total := 0
	for _, b := range data {
		total += bits.OnesCount8(b)
	}
	return total
}
