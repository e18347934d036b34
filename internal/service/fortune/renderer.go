package fortune

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	core "github.com/park285/Cheese-Fortune-bot/internal/fortune"
)

// CardView is one card as the renderer sees it. Labels are ASCII because the
// bitmap face has no CJK glyphs.
type CardView struct {
	Index    int
	Revealed bool
	Icon     core.Icon
	Name     string
	Number   int
	Element  string
}

// SpreadView is the full image model: a header, five cards and an optional
// results footer.
type SpreadView struct {
	Header string
	Cards  []CardView
	Result *core.FortuneResult
}

type SpreadRenderer interface {
	RenderPNG(ctx context.Context, view SpreadView) ([]byte, error)
}

type spreadRenderer struct {
	art *CardArt
}

func NewSpreadRenderer(art *CardArt) SpreadRenderer {
	if art == nil {
		art = NewCardArt(nil)
	}
	return &spreadRenderer{art: art}
}

const (
	cardWidth     = 120
	cardHeight    = 180
	cardGap       = 16
	sideMargin    = 24
	headerTop     = 20
	headerHeight  = 36
	gapToCards    = 20
	footerGap     = 18
	footerHeight  = 36
	bottomMargin  = 24
	panelRadius   = 12
	shadowOffsetY = 6
	iconSize      = 72
)

var (
	canvasColor      = color.RGBA{R: 24, G: 18, B: 38, A: 255}
	hudPanelColor    = color.NRGBA{R: 40, G: 30, B: 64, A: 250}
	hudShadowColor   = color.NRGBA{A: 50}
	hudTextPrimary   = color.NRGBA{R: 244, G: 236, B: 214, A: 255}
	cardFaceColor    = color.NRGBA{R: 250, G: 246, B: 236, A: 255}
	cardTextColor    = color.NRGBA{R: 46, G: 34, B: 22, A: 255}
	cardMutedColor   = color.NRGBA{R: 120, G: 102, B: 80, A: 255}
	slotNumberColor  = color.NRGBA{R: 217, G: 180, B: 90, A: 255}
	footerPanelColor = color.NRGBA{R: 92, G: 58, B: 24, A: 245}
)

func (r *spreadRenderer) RenderPNG(ctx context.Context, view SpreadView) ([]byte, error) {
	if len(view.Cards) != core.SlotCount {
		return nil, fmt.Errorf("spread needs %d cards, got %d", core.SlotCount, len(view.Cards))
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	rowWidth := core.SlotCount*cardWidth + (core.SlotCount-1)*cardGap
	totalWidth := rowWidth + sideMargin*2
	cardsTop := headerTop + headerHeight + gapToCards
	totalHeight := cardsTop + cardHeight + bottomMargin
	if view.Result != nil {
		totalHeight += footerGap + footerHeight
	}

	img := image.NewRGBA(image.Rect(0, 0, totalWidth, totalHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(canvasColor), image.Point{}, imagedraw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}

	header := strings.TrimSpace(view.Header)
	if header == "" {
		header = "Fortune Spread"
	}
	headerRect := image.Rect(sideMargin, headerTop, sideMargin+rowWidth, headerTop+headerHeight)
	drawRoundedPanel(img, headerRect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
	drawRoundedPanel(img, headerRect, panelRadius, hudPanelColor)
	drawCenteredString(drawer, headerRect, truncateWithEllipsis(face, header, headerRect.Dx()-24), hudTextPrimary)

	for i, card := range view.Cards {
		x := sideMargin + i*(cardWidth+cardGap)
		rect := image.Rect(x, cardsTop, x+cardWidth, cardsTop+cardHeight)
		drawRoundedPanel(img, rect.Add(image.Pt(0, shadowOffsetY)), panelRadius, hudShadowColor)
		if card.Revealed {
			r.drawFace(img, drawer, rect, card)
		} else {
			r.drawBack(img, drawer, rect, i)
		}
	}

	if view.Result != nil {
		top := cardsTop + cardHeight + footerGap
		footerRect := image.Rect(sideMargin, top, sideMargin+rowWidth, top+footerHeight)
		drawRoundedPanel(img, footerRect, panelRadius, footerPanelColor)
		text := fmt.Sprintf("TOTAL %d  |  DOMINANT %s", view.Result.TotalScore, strings.ToUpper(view.Result.DominantElement))
		drawCenteredString(drawer, footerRect, text, hudTextPrimary)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

func (r *spreadRenderer) drawBack(img *image.RGBA, drawer *font.Drawer, rect image.Rectangle, index int) {
	back := r.art.Back(index, rect.Dx(), rect.Dy())
	imagedraw.Draw(img, rect, back, image.Point{}, imagedraw.Over)
	label := image.Rect(rect.Min.X, rect.Max.Y-28, rect.Max.X, rect.Max.Y-8)
	drawCenteredString(drawer, label, strconv.Itoa(index+1), slotNumberColor)
}

func (r *spreadRenderer) drawFace(img *image.RGBA, drawer *font.Drawer, rect image.Rectangle, card CardView) {
	drawRoundedPanel(img, rect, panelRadius, cardFaceColor)

	iconRect := image.Rect(
		rect.Min.X+(rect.Dx()-iconSize)/2,
		rect.Min.Y+18,
		rect.Min.X+(rect.Dx()-iconSize)/2+iconSize,
		rect.Min.Y+18+iconSize,
	)
	imagedraw.Draw(img, iconRect, r.art.Icon(card.Icon, iconSize), image.Point{}, imagedraw.Over)

	name := truncateWithEllipsis(drawer.Face, card.Name, rect.Dx()-12)
	nameRect := image.Rect(rect.Min.X, iconRect.Max.Y+8, rect.Max.X, iconRect.Max.Y+28)
	drawCenteredString(drawer, nameRect, name, cardTextColor)

	numRect := nameRect.Add(image.Pt(0, 24))
	drawCenteredString(drawer, numRect, strconv.Itoa(card.Number), cardTextColor)

	elemRect := numRect.Add(image.Pt(0, 22))
	drawCenteredString(drawer, elemRect, strings.ToUpper(card.Element), cardMutedColor)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 || face == nil {
		return trimmed
	}

	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}

	ellipsis := "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}

	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if img == nil || rect.Empty() {
		return
	}
	radius = max(radius, 0)
	radius = min(radius, rect.Dx()/2, rect.Dy()/2)
	fill := image.NewUniform(clr)
	if radius == 0 {
		imagedraw.Draw(img, rect, fill, image.Point{}, imagedraw.Over)
		return
	}

	// 모서리 원과 겹치지 않도록 십자 형태로 채운다
	vertical := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y)
	if vertical.Dx() > 0 {
		imagedraw.Draw(img, vertical, fill, image.Point{}, imagedraw.Over)
	}
	left := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius)
	if left.Dy() > 0 {
		imagedraw.Draw(img, left, fill, image.Point{}, imagedraw.Over)
	}
	right := image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	if right.Dy() > 0 {
		imagedraw.Draw(img, right, fill, image.Point{}, imagedraw.Over)
	}

	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, c := range corners {
		drawQuarter(img, c, radius, clr, rect)
	}
}

// drawQuarter paints the disc at c clipped to the part of rect outside the
// filled cross, so translucent panels do not double-blend.
func drawQuarter(img *image.RGBA, c image.Point, radius int, clr color.Color, rect image.Rectangle) {
	inner := image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y)
	sides := image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius)
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > r2 {
				continue
			}
			p := image.Pt(c.X+x, c.Y+y)
			if !p.In(rect) || p.In(inner) || p.In(sides) {
				continue
			}
			blendPixel(img, p.X, p.Y, clr)
		}
	}
}

func drawCenteredString(drawer *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	if drawer == nil {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	metrics := drawer.Face.Metrics()
	width := drawer.MeasureString(text).Round()
	x := max(rect.Min.X+(rect.Dx()-width)/2, rect.Min.X)
	baseline := rect.Min.Y + (rect.Dy()+metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer.Src = image.NewUniform(clr)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	if radius <= 0 {
		blendPixel(img, center.X, center.Y, clr)
		return
	}
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > r2 {
				continue
			}
			blendPixel(img, center.X+x, center.Y+y, clr)
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if img == nil || !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}

	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	// premultiplied source over premultiplied destination
	dst := img.RGBAAt(x, y)
	inv := 1 - float64(sa)/65535.0
	img.SetRGBA(x, y, color.RGBA{
		R: floatToUint8(float64(sr)/257.0 + float64(dst.R)*inv),
		G: floatToUint8(float64(sg)/257.0 + float64(dst.G)*inv),
		B: floatToUint8(float64(sb)/257.0 + float64(dst.B)*inv),
		A: floatToUint8(float64(sa)/257.0 + float64(dst.A)*inv),
	})
}

func floatToUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
