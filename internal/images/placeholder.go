package images

import (
	"bytes"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"unicode"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	placeholderWidth  = 300
	placeholderHeight = 190
	initialScale      = 6
)

// categoryColors fixes the base color per known card category.
var categoryColors = map[string]color.RGBA{
	"Travel":    {R: 0x1E, G: 0x5A, B: 0xA8, A: 0xFF},
	"Airline":   {R: 0x2B, G: 0x7A, B: 0xB8, A: 0xFF},
	"Hotel":     {R: 0x6A, G: 0x3D, B: 0x9A, A: 0xFF},
	"Cashback":  {R: 0x1F, G: 0x8A, B: 0x4C, A: 0xFF},
	"Dining":    {R: 0xC2, G: 0x4D, B: 0x2C, A: 0xFF},
	"Groceries": {R: 0x7A, G: 0x9A, B: 0x2E, A: 0xFF},
	"Gas":       {R: 0xB8, G: 0x6A, B: 0x1E, A: 0xFF},
	"Business":  {R: 0x3A, G: 0x3A, B: 0x5C, A: 0xFF},
	"Student":   {R: 0x2E, G: 0x8A, B: 0x8A, A: 0xFF},
	"Luxury":    {R: 0x2A, G: 0x2A, B: 0x2A, A: 0xFF},
}

// issuerPalette fixes the base color per major issuer when the category is
// unknown.
var issuerPalette = map[string]color.RGBA{
	"chase":            {R: 0x11, G: 0x4A, B: 0x8B, A: 0xFF},
	"american express": {R: 0x00, G: 0x6F, B: 0xCF, A: 0xFF},
	"capital one":      {R: 0xD0, G: 0x30, B: 0x27, A: 0xFF},
	"citi":             {R: 0x05, G: 0x3B, B: 0x90, A: 0xFF},
	"discover":         {R: 0xE8, G: 0x6A, B: 0x10, A: 0xFF},
	"wells fargo":      {R: 0xB7, G: 0x1C, B: 0x1C, A: 0xFF},
	"bank of america":  {R: 0x8B, G: 0x1A, B: 0x1A, A: 0xFF},
}

// Placeholder synthesizes a card-shaped PNG for a card with no resolvable
// artwork: a vertical gradient colored deterministically from the card's
// category, issuer, or a hash of its identity, with the issuer initial and
// card name drawn on top. Pure function of its inputs.
func Placeholder(cardID, name, issuer, category string) []byte {
	base := baseColor(cardID, issuer, category)
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))

	bottom := darken(base, 0.55)
	for y := 0; y < placeholderHeight; y++ {
		t := float64(y) / float64(placeholderHeight-1)
		row := lerpColor(base, bottom, t)
		for x := 0; x < placeholderWidth; x++ {
			img.SetRGBA(x, y, row)
		}
	}

	drawInitial(img, issuerInitial(issuer, name))
	drawLabel(img, name)

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func baseColor(cardID, issuer, category string) color.RGBA {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	if c, ok := issuerPalette[strings.ToLower(strings.TrimSpace(issuer))]; ok {
		return c
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(cardID + issuer))
	hue := float64(h.Sum32()%360) / 360.0
	return hsvToRGB(hue, 0.55, 0.65)
}

func issuerInitial(issuer, name string) rune {
	for _, source := range []string{issuer, name} {
		for _, r := range source {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToUpper(r)
			}
		}
	}
	return '?'
}

// drawInitial renders the initial small with the bitmap face, then scales
// it up with nearest-neighbor so it dominates the card.
func drawInitial(dst *image.RGBA, initial rune) {
	face := basicfont.Face7x13
	small := image.NewRGBA(image.Rect(0, 0, face.Advance+2, face.Height+2))

	drawer := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xE0}),
		Face: face,
		Dot:  fixed.P(1, face.Ascent+1),
	}
	drawer.DrawString(string(initial))

	w := small.Bounds().Dx() * initialScale
	h := small.Bounds().Dy() * initialScale
	x0 := (placeholderWidth - w) / 2
	y0 := (placeholderHeight-h)/2 - 12
	target := image.Rect(x0, y0, x0+w, y0+h)

	xdraw.NearestNeighbor.Scale(dst, target, small, small.Bounds(), xdraw.Over, nil)
}

// drawLabel writes the card name near the bottom edge, truncated to fit.
func drawLabel(dst *image.RGBA, name string) {
	face := basicfont.Face7x13
	maxChars := (placeholderWidth - 20) / face.Advance
	if len(name) > maxChars && maxChars > 3 {
		name = name[:maxChars-3] + "..."
	}

	width := len(name) * face.Advance
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}),
		Face: face,
		Dot:  fixed.P((placeholderWidth-width)/2, placeholderHeight-14),
	}
	drawer.DrawString(name)
}

func darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	lerp := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 0xFF}
}

func hsvToRGB(h, s, v float64) color.RGBA {
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}

	return color.RGBA{
		R: uint8(r * 255),
		G: uint8(g * 255),
		B: uint8(b * 255),
		A: 0xFF,
	}
}
