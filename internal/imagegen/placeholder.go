package imagegen

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"
	"unicode"

	"github.com/abdulachik/etrimage/internal/pipeline"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Output size of the placeholder image. Text is laid out on a canvas of
// half that size and scaled up so the bitmap font stays legible.
const (
	PlaceholderWidth  = 1024
	PlaceholderHeight = 768

	scale      = 2
	margin     = 24
	lineHeight = 16
)

var (
	background = color.RGBA{R: 0xf4, G: 0xf1, B: 0xea, A: 0xff}
	frame      = color.RGBA{R: 0x9a, G: 0x94, B: 0x88, A: 0xff}
	ink        = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
	muted      = color.RGBA{R: 0x66, G: 0x60, B: 0x58, A: 0xff}
)

// Placeholder draws the prompt, style and temperature on a blank canvas.
// The same request always yields the same bytes.
type Placeholder struct {
	face font.Face
}

// NewPlaceholder creates the local fallback renderer.
func NewPlaceholder() *Placeholder {
	return &Placeholder{face: basicfont.Face7x13}
}

func (p *Placeholder) Name() string {
	return "placeholder"
}

func (p *Placeholder) Render(ctx context.Context, req pipeline.RenderRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h := PlaceholderWidth/scale, PlaceholderHeight/scale
	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	drawFrame(small, frame)

	y := margin + lineHeight
	p.text(small, "ETR - obraz zastepczy", margin, y, ink)
	y += lineHeight
	p.text(small, fmt.Sprintf("Styl: %s   Temperatura: %.2f", req.Style.Label(), req.Temperature), margin, y, muted)
	y += lineHeight * 2

	maxChars := (w - 2*margin) / p.advance()
	maxLines := (h - margin - y) / lineHeight
	for _, line := range fitLines(wrap(ASCIIFold(req.Prompt), maxChars), maxLines) {
		p.text(small, line, margin, y, ink)
		y += lineHeight
	}

	big := image.NewRGBA(image.Rect(0, 0, PlaceholderWidth, PlaceholderHeight))
	draw.NearestNeighbor.Scale(big, big.Bounds(), small, small.Bounds(), draw.Src, nil)

	return encodePNG(big)
}

func (p *Placeholder) advance() int {
	adv, _ := p.face.GlyphAdvance('M')
	return adv.Round()
}

func (p *Placeholder) text(dst draw.Image, s string, x, y int, c color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: p.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func drawFrame(img *image.RGBA, c color.Color) {
	b := img.Bounds().Inset(margin / 2)
	for x := b.Min.X; x < b.Max.X; x++ {
		img.Set(x, b.Min.Y, c)
		img.Set(x, b.Max.Y-1, c)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		img.Set(b.Min.X, y, c)
		img.Set(b.Max.X-1, y, c)
	}
}

// foldReplacer covers letters that do not decompose into base + mark.
var foldReplacer = strings.NewReplacer(
	"ł", "l", "Ł", "L",
	"ß", "ss", "ø", "o", "Ø", "O",
	"„", "\"", "”", "\"", "“", "\"", "‘", "'", "’", "'",
	"–", "-", "—", "-", "…", "...",
)

// ASCIIFold strips diacritics so the text renders with the ASCII bitmap
// font ("Mężczyzna" becomes "Mezczyzna"). Anything still outside printable
// ASCII becomes '?'.
func ASCIIFold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, foldReplacer.Replace(s))
	if err != nil {
		folded = s
	}

	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return ' '
		case r < 0x20 || r > 0x7e:
			return '?'
		}
		return r
	}, folded)
}

// wrap breaks s into lines of at most width characters on word boundaries.
// Words longer than width are split.
func wrap(s string, width int) []string {
	if width <= 0 {
		return nil
	}

	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(s) {
		for len(word) > width {
			if cur.Len() > 0 {
				lines = append(lines, cur.String())
				cur.Reset()
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		switch {
		case cur.Len() == 0:
			cur.WriteString(word)
		case cur.Len()+1+len(word) <= width:
			cur.WriteByte(' ')
			cur.WriteString(word)
		default:
			lines = append(lines, cur.String())
			cur.Reset()
			cur.WriteString(word)
		}
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// fitLines truncates lines to limit, marking the cut with an ellipsis.
func fitLines(lines []string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	if len(lines) <= limit {
		return lines
	}
	out := append([]string(nil), lines[:limit]...)
	last := out[limit-1]
	if len(last) > 3 {
		last = last[:len(last)-3]
	}
	out[limit-1] = last + "..."
	return out
}
