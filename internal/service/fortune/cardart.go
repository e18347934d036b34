package fortune

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io/fs"
	"strconv"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	core "github.com/park285/Cheese-Fortune-bot/internal/fortune"
)

//go:embed assets/cards/*.svg
var cardFiles embed.FS

// DefaultCardFS exposes the embedded card art rooted at assets/cards.
func DefaultCardFS() fs.FS {
	sub, err := fs.Sub(cardFiles, "assets/cards")
	if err != nil {
		return cardFiles
	}
	return sub
}

const cardBackAsset = "back"

// slotBackIcons is the glyph printed on each face-down slot.
var slotBackIcons = [core.SlotCount]core.Icon{
	core.IconTriangle,
	core.IconCircle,
	core.IconStar,
	core.IconCross,
	core.IconCircle,
}

// BackIcon returns the glyph shown on the back of slot index.
func BackIcon(index int) core.Icon {
	if index < 0 || index >= len(slotBackIcons) {
		return ""
	}
	return slotBackIcons[index]
}

type artKey struct {
	name string
	w, h int
}

// CardArt rasterizes card SVGs once per size. A missing or broken asset
// falls back to a vector glyph drawn directly with rasterx.
type CardArt struct {
	files fs.FS

	mu    sync.RWMutex
	cache map[artKey]image.Image
}

func NewCardArt(files fs.FS) *CardArt {
	if files == nil {
		files = DefaultCardFS()
	}
	return &CardArt{files: files, cache: make(map[artKey]image.Image)}
}

// Back returns the face-down image of slot index: the shared back with the
// slot glyph in the middle. Without back art the plain panel is used, and a
// missing glyph asset is drawn with rasterx.
func (a *CardArt) Back(index, w, h int) image.Image {
	key := artKey{name: "back-" + strconv.Itoa(index), w: w, h: h}
	a.mu.RLock()
	if img, ok := a.cache[key]; ok {
		a.mu.RUnlock()
		return img
	}
	a.mu.RUnlock()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	base, err := a.load(cardBackAsset, w, h)
	if err != nil {
		base = plainBack(w, h)
	}
	draw.Draw(img, img.Bounds(), base, image.Point{}, draw.Src)

	size := min(w, h) * 3 / 10
	if icon := BackIcon(index); icon != "" && size > 0 {
		at := image.Rect((w-size)/2, (h-size)/2, (w-size)/2+size, (h-size)/2+size)
		draw.Draw(img, at, a.Icon(icon, size), image.Point{}, draw.Over)
	}

	a.mu.Lock()
	a.cache[key] = img
	a.mu.Unlock()
	return img
}

// Icon returns the glyph for icon at size x size.
func (a *CardArt) Icon(icon core.Icon, size int) image.Image {
	img, err := a.load(string(icon), size, size)
	if err != nil {
		return drawGlyph(icon, size)
	}
	return img
}

func (a *CardArt) load(name string, w, h int) (image.Image, error) {
	key := artKey{name: name, w: w, h: h}

	a.mu.RLock()
	if img, ok := a.cache[key]; ok {
		a.mu.RUnlock()
		return img, nil
	}
	a.mu.RUnlock()

	data, err := fs.ReadFile(a.files, name+".svg")
	if err != nil {
		return nil, fmt.Errorf("read card asset %s: %w", name, err)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse card svg %s: %w", name, err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	a.mu.Lock()
	a.cache[key] = img
	a.mu.Unlock()
	return img, nil
}

var (
	glyphEarth = color.NRGBA{R: 138, G: 107, B: 61, A: 255}
	glyphMetal = color.NRGBA{R: 201, G: 162, B: 39, A: 255}
	glyphFire  = color.NRGBA{R: 224, G: 84, B: 46, A: 255}
	glyphWood  = color.NRGBA{R: 47, G: 125, B: 74, A: 255}
	backFill   = color.NRGBA{R: 77, G: 42, B: 120, A: 255}
	backAccent = color.NRGBA{R: 217, G: 180, B: 90, A: 255}
)

func drawGlyph(icon core.Icon, size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	filler := rasterx.NewFiller(size, size, rasterx.NewScannerGV(size, size, img, img.Bounds()))
	s := float64(size)

	switch icon {
	case core.IconTriangle:
		filler.SetColor(glyphEarth)
		filler.Start(rasterx.ToFixedP(s*0.5, s*0.1))
		filler.Line(rasterx.ToFixedP(s*0.92, s*0.88))
		filler.Line(rasterx.ToFixedP(s*0.08, s*0.88))
		filler.Stop(true)
		filler.Draw()
	case core.IconCircle:
		filler.SetColor(glyphMetal)
		rasterx.AddCircle(s*0.5, s*0.5, s*0.4, filler)
		filler.Draw()
		filler.Clear()
		filler.SetColor(color.White)
		rasterx.AddCircle(s*0.5, s*0.5, s*0.28, filler)
		filler.Draw()
	case core.IconStar:
		pts := [][2]float64{
			{0.50, 0.06}, {0.61, 0.38}, {0.95, 0.38}, {0.67, 0.58}, {0.78, 0.92},
			{0.50, 0.72}, {0.22, 0.92}, {0.33, 0.58}, {0.05, 0.38}, {0.39, 0.38},
		}
		filler.SetColor(glyphFire)
		filler.Start(rasterx.ToFixedP(s*pts[0][0], s*pts[0][1]))
		for _, p := range pts[1:] {
			filler.Line(rasterx.ToFixedP(s*p[0], s*p[1]))
		}
		filler.Stop(true)
		filler.Draw()
	case core.IconCross:
		filler.SetColor(glyphWood)
		rasterx.AddRect(s*0.4, s*0.08, s*0.6, s*0.92, 0, filler)
		rasterx.AddRect(s*0.08, s*0.4, s*0.92, s*0.6, 0, filler)
		filler.Draw()
	default:
		filler.SetColor(backAccent)
		rasterx.AddCircle(s*0.5, s*0.5, s*0.2, filler)
		filler.Draw()
	}
	return img
}

func plainBack(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	drawRoundedPanel(img, img.Bounds(), 12, backFill)
	drawDisc(img, image.Pt(w/2, h/2), min(w, h)/6, backAccent)
	return img
}
