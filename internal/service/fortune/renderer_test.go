package fortune

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	core "github.com/park285/Cheese-Fortune-bot/internal/fortune"
)

func sampleView(withResult bool) SpreadView {
	cards := make([]CardView, core.SlotCount)
	for i := range cards {
		cards[i] = CardView{Index: i}
	}
	cards[0] = CardView{Index: 0, Revealed: true, Icon: core.IconTriangle, Name: "Mountain", Number: 5, Element: "earth"}
	cards[3] = CardView{Index: 3, Revealed: true, Icon: core.IconCross, Name: "Crossroads", Number: 7, Element: "wood"}
	view := SpreadView{Header: "FORTUNE SPREAD  2/5", Cards: cards}
	if withResult {
		view.Result = &core.FortuneResult{TotalScore: 36, DominantElement: "earth"}
	}
	return view
}

func TestSpreadRendererProducesPNG(t *testing.T) {
	r := NewSpreadRenderer(nil)
	plain, err := r.RenderPNG(context.Background(), sampleView(false))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(plain))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	wantW := core.SlotCount*cardWidth + (core.SlotCount-1)*cardGap + sideMargin*2
	if img.Bounds().Dx() != wantW {
		t.Fatalf("width = %d, want %d", img.Bounds().Dx(), wantW)
	}

	withFooter, err := r.RenderPNG(context.Background(), sampleView(true))
	if err != nil {
		t.Fatalf("render with result: %v", err)
	}
	tall, err := png.Decode(bytes.NewReader(withFooter))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tall.Bounds().Dy() != img.Bounds().Dy()+footerGap+footerHeight {
		t.Fatalf("footer height mismatch: %d vs %d", tall.Bounds().Dy(), img.Bounds().Dy())
	}
}

func TestSpreadRendererRejectsWrongShapeAndCancelledContext(t *testing.T) {
	r := NewSpreadRenderer(nil)
	if _, err := r.RenderPNG(context.Background(), SpreadView{}); err == nil {
		t.Fatalf("expected shape error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderPNG(ctx, sampleView(false)); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestCardArtFallsBackToGlyphs(t *testing.T) {
	art := NewCardArt(fstest.MapFS{})
	for _, icon := range []core.Icon{core.IconTriangle, core.IconCircle, core.IconStar, core.IconCross} {
		img := art.Icon(icon, 48)
		if img.Bounds().Dx() != 48 {
			t.Fatalf("%s: unexpected size %v", icon, img.Bounds())
		}
		_, _, _, a := img.At(24, 24).RGBA()
		if a == 0 {
			t.Fatalf("%s: glyph center is transparent", icon)
		}
	}
	back := art.Back(0, 60, 90)
	if back.Bounds().Dx() != 60 || back.Bounds().Dy() != 90 {
		t.Fatalf("unexpected back size %v", back.Bounds())
	}
}

func TestCardBacksFallBackToSlotGlyph(t *testing.T) {
	art := NewCardArt(fstest.MapFS{})
	back := art.Back(3, 60, 90)
	if got, want := color.RGBAModel.Convert(back.At(30, 45)), color.RGBAModel.Convert(glyphWood); got != want {
		t.Fatalf("slot 4 back center = %v, want cross glyph %v", got, want)
	}
	if diffPixels(art.Back(0, 60, 90), art.Back(2, 60, 90), image.Rect(0, 0, 60, 90)) == 0 {
		t.Fatalf("slot 1 and slot 3 backs are identical")
	}
}

func TestSpreadRendererDrawsPerSlotBacks(t *testing.T) {
	cards := make([]CardView, core.SlotCount)
	for i := range cards {
		cards[i] = CardView{Index: i}
	}
	raw, err := NewSpreadRenderer(nil).RenderPNG(context.Background(), SpreadView{Header: "FORTUNE", Cards: cards})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	cardsTop := headerTop + headerHeight + gapToCards
	// slot number labels sit in the bottom band; compare above them
	slotRect := func(i int) image.Rectangle {
		x := sideMargin + i*(cardWidth+cardGap)
		return image.Rect(x, cardsTop, x+cardWidth, cardsTop+cardHeight-32)
	}
	for _, pair := range [][2]int{{0, 2}, {1, 3}} {
		a, b := slotRect(pair[0]), slotRect(pair[1])
		n := 0
		for y := 0; y < a.Dy(); y++ {
			for x := 0; x < a.Dx(); x++ {
				if img.At(a.Min.X+x, a.Min.Y+y) != img.At(b.Min.X+x, b.Min.Y+y) {
					n++
				}
			}
		}
		if n == 0 {
			t.Fatalf("backs of slots %d and %d are identical", pair[0]+1, pair[1]+1)
		}
	}
}

func diffPixels(a, b image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if a.At(x, y) != b.At(x, y) {
				n++
			}
		}
	}
	return n
}

func TestCardArtCachesEmbeddedAssets(t *testing.T) {
	art := NewCardArt(nil)
	first, err := art.load("star", 64, 64)
	if err != nil {
		t.Fatalf("load embedded star: %v", err)
	}
	second, _ := art.load("star", 64, 64)
	if first != second {
		t.Fatalf("expected cached image instance")
	}
}
