package fortune

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func TestDefaultCatalogValid(t *testing.T) {
	cat := DefaultCatalog()
	if err := cat.Validate(); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
	if len(cat) != SlotCount {
		t.Fatalf("expected %d symbols, got %d", SlotCount, len(cat))
	}
	sym, err := cat.ByID(3)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if sym.Name.Get(LocaleZH) != "星" || sym.Name.Get(LocaleEN) != "Guidance" {
		t.Errorf("unexpected names: %+v", sym.Name)
	}
	if _, err := cat.ByID(42); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestCatalogValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Catalog) Catalog
		want   error
	}{
		{"short", func(c Catalog) Catalog { return c[:4] }, ErrCatalogSize},
		{"duplicate id", func(c Catalog) Catalog { c[1].ID = c[0].ID; return c }, ErrDuplicateSymbol},
		{"inverted range", func(c Catalog) Catalog { c[2].NumberSpec = Range(9, 1); return c }, ErrInvalidSymbol},
		{"empty name", func(c Catalog) Catalog { c[3].Name = Bilingual{}; return c }, ErrInvalidSymbol},
		{"bad direction", func(c Catalog) Catalog { c[4].Direction = "up"; return c }, ErrInvalidDirection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(DefaultCatalog()).Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBilingualFallsBackToEnglish(t *testing.T) {
	b := Bilingual{EN: "Mountain"}
	if got := b.Get(LocaleZH); got != "Mountain" {
		t.Fatalf("expected english fallback, got %q", got)
	}
}

func TestNumberSpecFixedIgnoresRNG(t *testing.T) {
	rng := &sequenceRNG{values: []int{5}}
	if got := Fixed(9).Draw(rng); got != 9 {
		t.Fatalf("expected 9, got %d", got)
	}
	if rng.idx != 0 {
		t.Fatalf("fixed range consumed rng")
	}
}

func TestNumberSpecDrawUniform(t *testing.T) {
	const draws = 10000
	ns := Range(3, 8)
	buckets := ns.Max - ns.Min + 1
	counts := make([]int, buckets)
	rng := rand.New(rand.NewPCG(20240601, 7))

	for range draws {
		n := ns.Draw(rng)
		if !ns.Contains(n) {
			t.Fatalf("draw %d outside [%d,%d]", n, ns.Min, ns.Max)
		}
		counts[n-ns.Min]++
	}

	expected := float64(draws) / float64(buckets)
	chi := 0.0
	for _, c := range counts {
		d := float64(c) - expected
		chi += d * d / expected
	}
	// df=5; 25.0 sits far beyond the 0.999 quantile (20.5).
	if chi > 25.0 {
		t.Fatalf("distribution not uniform: chi2=%.2f counts=%v", chi, counts)
	}
}

func TestParseLocale(t *testing.T) {
	for in, want := range map[string]Locale{"EN": LocaleEN, "zh": LocaleZH, "中文": LocaleZH, "english": LocaleEN} {
		got, ok := ParseLocale(in)
		if !ok || got != want {
			t.Errorf("ParseLocale(%q) = %q,%v want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseLocale("fr"); ok {
		t.Errorf("expected fr to be rejected")
	}
	if LocaleEN.Toggle() != LocaleZH || LocaleZH.Toggle() != LocaleEN {
		t.Errorf("toggle broken")
	}
}
