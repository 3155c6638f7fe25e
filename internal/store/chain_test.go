package store

import (
	"errors"
	"testing"
)

func TestChainRepository_ChainIDIsStable(t *testing.T) {
	repo := newTestStore(t).Chains()

	first, err := repo.ChainID("gold", "chains/gold.png", 400, 200)
	if err != nil {
		t.Fatalf("ChainID failed: %v", err)
	}
	if first == "" {
		t.Fatal("ChainID returned empty id")
	}

	second, err := repo.ChainID("gold-v2", "chains/gold.png", 800, 400)
	if err != nil {
		t.Fatalf("ChainID failed: %v", err)
	}
	if second != first {
		t.Errorf("second ChainID = %q, want %q", second, first)
	}

	c, err := repo.GetByID(first)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if c.Name != "gold-v2" || c.Width != 800 || c.Height != 400 {
		t.Errorf("record not refreshed: %+v", c)
	}

	other, err := repo.ChainID("silver", "chains/silver.png", 10, 10)
	if err != nil {
		t.Fatalf("ChainID failed: %v", err)
	}
	if other == first {
		t.Error("distinct sources must get distinct ids")
	}
}

func TestChainRepository_SharedBaseName(t *testing.T) {
	repo := newTestStore(t).Chains()

	png, err := repo.ChainID("gold", "chains/gold.png", 40, 20)
	if err != nil {
		t.Fatalf("ChainID(png) failed: %v", err)
	}
	jpg, err := repo.ChainID("gold", "chains/gold.jpg", 80, 10)
	if err != nil {
		t.Fatalf("ChainID(jpg) failed: %v", err)
	}
	if png == jpg {
		t.Fatalf("gold.png and gold.jpg share id %q", png)
	}

	// Each keeps its own record across a reload.
	again, err := repo.ChainID("gold", "chains/gold.jpg", 80, 10)
	if err != nil {
		t.Fatalf("ChainID(jpg) failed: %v", err)
	}
	if again != jpg {
		t.Errorf("reloaded jpg id = %q, want %q", again, jpg)
	}

	c, err := repo.GetBySource("chains/gold.png")
	if err != nil {
		t.Fatalf("GetBySource failed: %v", err)
	}
	if c.ID != png || c.Width != 40 {
		t.Errorf("png record = %+v", c)
	}

	chains, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(chains) != 2 {
		t.Errorf("List() returned %d chains, want 2", len(chains))
	}
}

func TestChainRepository_List(t *testing.T) {
	repo := newTestStore(t).Chains()

	for _, name := range []string{"rope", "box", "figaro"} {
		if _, err := repo.ChainID(name, name+".png", 1, 1); err != nil {
			t.Fatalf("ChainID(%q) failed: %v", name, err)
		}
	}

	chains, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	want := []string{"box", "figaro", "rope"}
	if len(chains) != len(want) {
		t.Fatalf("List() returned %d chains, want %d", len(chains), len(want))
	}
	for i, c := range chains {
		if c.Name != want[i] {
			t.Errorf("chains[%d].Name = %q, want %q", i, c.Name, want[i])
		}
	}
}

func TestChainRepository_NotFound(t *testing.T) {
	repo := newTestStore(t).Chains()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"GetByID", func() error { _, err := repo.GetByID("missing"); return err }},
		{"GetByName", func() error { _, err := repo.GetByName("missing"); return err }},
		{"GetBySource", func() error { _, err := repo.GetBySource("missing.png"); return err }},
		{"Delete", func() error { return repo.Delete("missing") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrNotFound) {
				t.Errorf("error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestChainRepository_Delete(t *testing.T) {
	repo := newTestStore(t).Chains()

	id, err := repo.ChainID("gold", "gold.png", 1, 1)
	if err != nil {
		t.Fatalf("ChainID failed: %v", err)
	}
	if err := repo.Delete(id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID after delete: %v, want ErrNotFound", err)
	}
}
