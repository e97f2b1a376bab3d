package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/ionlab/internal/exchange"
)

func TestAddAndLookup(t *testing.T) {
	c := New()
	ion := exchange.Ion{ID: "Li+", Charge: 1, Radius: 0.38, Source: exchange.Measured}
	if err := c.Add(ion); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	got, err := c.Lookup("Li+")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got.ID != "Li+" || got.Radius != 0.38 {
		t.Errorf("lookup returned wrong ion: %+v", got)
	}
}

func TestLookup_Miss(t *testing.T) {
	c := New()
	_, err := c.Lookup("Cs+")
	if !errors.Is(err, exchange.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAdd_Duplicate(t *testing.T) {
	c := New()
	ion := exchange.Ion{ID: "Li+", Charge: 1, Radius: 0.38}
	if err := c.Add(ion); err != nil {
		t.Fatalf("first add failed: %v", err)
	}

	err := c.Add(ion)
	if !errors.Is(err, exchange.ErrDuplicateIon) {
		t.Errorf("expected ErrDuplicateIon, got %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("duplicate add changed catalog size: %d", c.Len())
	}
}

func TestAdd_Invalid(t *testing.T) {
	c := New()
	err := c.Add(exchange.Ion{ID: "X", Charge: 0, Radius: 0.3})
	if !errors.Is(err, exchange.ErrInvalidIon) {
		t.Errorf("expected ErrInvalidIon, got %v", err)
	}
	if c.Len() != 0 {
		t.Error("invalid ion was stored")
	}
}

func TestAll_InsertionOrder(t *testing.T) {
	c := New()
	ids := []string{"Li+", "Rb+", "Cs+"}
	for i, id := range ids {
		if err := c.Add(exchange.Ion{ID: id, Charge: 1, Radius: 0.3 + float64(i)*0.05}); err != nil {
			t.Fatal(err)
		}
	}

	all := c.All()
	for i, id := range ids {
		if all[i].ID != id {
			t.Errorf("order[%d]: got %s, want %s", i, all[i].ID, id)
		}
	}

	// The returned slice must not alias catalog storage.
	all[0].Radius = 99
	got, _ := c.Lookup("Li+")
	if got.Radius == 99 {
		t.Error("All() leaked catalog storage")
	}
}

func TestCopy_Independent(t *testing.T) {
	orig := Builtin()
	snap := orig.Copy()

	if snap.Version() != orig.Version() {
		t.Errorf("copy version: got %d, want %d", snap.Version(), orig.Version())
	}

	if err := orig.Add(exchange.Ion{ID: "Li+", Charge: 1, Radius: 0.38}); err != nil {
		t.Fatal(err)
	}
	if snap.Len() == orig.Len() {
		t.Error("add to the original reached the copy")
	}
	if _, err := snap.Lookup("Li+"); !errors.Is(err, exchange.ErrNotFound) {
		t.Errorf("copy should not see later adds, got %v", err)
	}

	v := orig.Version()
	if err := snap.Add(exchange.Ion{ID: "Rb+", Charge: 1, Radius: 0.33}); err != nil {
		t.Fatal(err)
	}
	if orig.Version() != v {
		t.Error("add to the copy reached the original")
	}
}

func TestVersionIncrements(t *testing.T) {
	c := New()
	v0 := c.Version()
	if err := c.Add(exchange.Ion{ID: "Li+", Charge: 1, Radius: 0.38}); err != nil {
		t.Fatal(err)
	}
	if c.Version() != v0+1 {
		t.Errorf("version: got %d, want %d", c.Version(), v0+1)
	}
}

func TestBuiltin(t *testing.T) {
	c := Builtin()
	if c.Len() != 9 {
		t.Fatalf("builtin catalog size: got %d, want 9", c.Len())
	}

	h, err := c.Lookup("H+")
	if err != nil {
		t.Fatal(err)
	}
	if h.Affinity != 1.0 || !h.HasAffinity {
		t.Errorf("H+ must be the affinity reference, got %+v", h)
	}

	if len(c.Measured()) != 9 {
		t.Errorf("all builtin ions should count as measured, got %d", len(c.Measured()))
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ions.yaml")

	if err := SaveFile(path, Builtin()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Len() != 9 {
		t.Fatalf("loaded size: got %d, want 9", loaded.Len())
	}
	ca, err := loaded.Lookup("Ca2+")
	if err != nil {
		t.Fatal(err)
	}
	if ca.Affinity != 3.9 || ca.Charge != 2 {
		t.Errorf("Ca2+ round trip mismatch: %+v", ca)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(os.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
