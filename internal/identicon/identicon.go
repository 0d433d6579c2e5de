// Package identicon renders deterministic placeholder avatars from
// identity key bytes. Contacts without a cached avatar get a 5x5
// horizontally symmetric block pattern in two colors, both derived from a
// hash of the key, so every client renders the same picture for the same
// peer.
package identicon

import (
	"bytes"
	"crypto/sha256"
	"image"
	"image/color"
	"image/png"
)

const (
	rows       = 5
	activeCols = 3 // left half plus center; right half mirrors
	colorCount = 2
	hueBytes   = 3

	saturation = 0.5
	lightness  = 0.3
)

// Identicon is a computed block pattern ready for rendering.
type Identicon struct {
	colors [colorCount]color.NRGBA
	cells  [rows][activeCols]uint8
}

// New computes the identicon for data, typically a public key.
func New(data []byte) *Identicon {
	sum := sha256.Sum256(data)
	hash := sum[:]

	var ic Identicon

	// The two hues come from the tail of the hash, the cells from the head.
	hue2 := hueFromBytes(hash[len(hash)-hueBytes:])
	hash = hash[:len(hash)-hueBytes]
	hue1 := hueFromBytes(hash[len(hash)-hueBytes:])
	hash = hash[:len(hash)-hueBytes]

	ic.colors[0] = hslColor(hue1, saturation, lightness)
	ic.colors[1] = hslColor(hue2, saturation, lightness)

	for row := 0; row < rows; row++ {
		for col := 0; col < activeCols; col++ {
			ic.cells[row][col] = hash[row*activeCols+col] % colorCount
		}
	}
	return &ic
}

// Image renders the pattern at scale pixels per cell.
func (ic *Identicon) Image(scale int) image.Image {
	if scale < 1 {
		scale = 1
	}
	side := rows * scale
	img := image.NewNRGBA(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		row := y / scale
		for x := 0; x < side; x++ {
			col := x / scale
			// Mirror the right half onto the active columns.
			if col >= activeCols {
				col = rows - 1 - col
			}
			img.SetNRGBA(x, y, ic.colors[ic.cells[row][col]])
		}
	}
	return img
}

// PNG renders the identicon for data as an encoded image.
func PNG(data []byte, scale int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, New(data).Image(scale)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// hueFromBytes maps b onto [0, 1).
func hueFromBytes(b []byte) float64 {
	var v, max uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
		max = max<<8 | 0xff
	}
	return float64(v) / float64(max+1)
}

// hslColor converts HSL to RGBA. Inputs are in [0, 1].
func hslColor(h, s, l float64) color.NRGBA {
	c := (1 - abs(2*l-1)) * s
	hp := h * 6
	x := c * (1 - abs(mod2(hp)-1))

	var r, g, b float64
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	m := l - c/2
	return color.NRGBA{
		R: uint8((r + m) * 255),
		G: uint8((g + m) * 255),
		B: uint8((b + m) * 255),
		A: 255,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func mod2(v float64) float64 {
	for v >= 2 {
		v -= 2
	}
	return v
}
