// rasterdiag sizes up a raster payload captured from an ePOS request whose
// sender declared no dimensions. It tries the usual thermal-head widths,
// reports how much ink each one would print, and can render the most
// believable geometry to a PNG for eyeballing. Strictly an offline bench
// tool; the serve path never guesses.
package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/thearyadev/epson-esc-proxy/internal/raster"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rasterdiag: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		isB64   = flag.Bool("b64", false, "input is base64 text (as captured from a request body)")
		widthPx = flag.Int("width", 0, "render at this pixel width instead of the guessed one")
		pngPath = flag.String("png", "", "write the chosen geometry to this PNG file")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: rasterdiag [flags] <file|->\n\nReads a 1bpp raster payload (raw bytes, or base64 with -b64) and reports\nwhich paper width it was most likely rendered for.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	data, err := readInput(flag.Arg(0), *isB64)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("empty payload")
	}
	fmt.Printf("payload: %d bytes\n\n", len(data))

	report := raster.Survey(data)

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WIDTH(BYTES)\tWIDTH(PX)\tROWS\tINK\tPLAUSIBLE")
	for _, c := range report {
		if c.Height == 0 {
			fmt.Fprintf(w, "%d\t%d\t-\t-\t-\n", c.WidthBytes, c.WidthBytes*8)
			continue
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%.1f%%\t%v\n",
			c.WidthBytes, c.WidthBytes*8, c.Height, c.InkRatio*100, c.Plausible)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()

	chosenBytes := *widthPx / 8
	if *widthPx == 0 {
		guessed, err := raster.GuessWidthBytes(data)
		if err != nil {
			return fmt.Errorf("%w (force one with -width)", err)
		}
		chosenBytes = guessed
		fmt.Printf("best guess: %d bytes wide (%dpx), %d rows\n",
			guessed, guessed*8, len(data)/guessed)
	} else {
		if chosenBytes <= 0 {
			return fmt.Errorf("-width must be at least 8 pixels")
		}
		fmt.Printf("forced: %d bytes wide (%dpx), %d rows\n",
			chosenBytes, chosenBytes*8, len(data)/chosenBytes)
	}

	if *pngPath != "" {
		if err := writePNG(*pngPath, data, chosenBytes); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", *pngPath)
	}

	return nil
}

func readInput(path string, isB64 bool) ([]byte, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	if !isB64 {
		return data, nil
	}

	// Captured bodies come line wrapped and indented.
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, string(data))
	return base64.StdEncoding.DecodeString(cleaned)
}

// writePNG renders the payload at the chosen byte width, one pixel per bit,
// most significant bit leftmost. Set bits are ink.
func writePNG(path string, data []byte, widthBytes int) error {
	height := len(data) / widthBytes
	if height == 0 {
		return fmt.Errorf("payload shorter than one %d-byte row", widthBytes)
	}

	img := image.NewGray(image.Rect(0, 0, widthBytes*8, height))
	for y := 0; y < height; y++ {
		row := data[y*widthBytes : (y+1)*widthBytes]
		for xb, b := range row {
			for bit := 0; bit < 8; bit++ {
				shade := color.Gray{Y: 0xFF}
				if b&(0x80>>bit) != 0 {
					shade = color.Gray{Y: 0x00}
				}
				img.SetGray(xb*8+bit, y, shade)
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
