package catalog

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ayusman/chainfit/internal/store"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func mustAsset(t *testing.T, id string) *Asset {
	t.Helper()
	a, err := NewAsset(id, id, id+".png", solid(4, 2))
	if err != nil {
		t.Fatalf("NewAsset: %v", err)
	}
	return a
}

type fixedIDs map[string]string

func (f fixedIDs) ChainID(name, _ string, _, _ int) (string, error) {
	return f[name], nil
}

func TestNewAsset(t *testing.T) {
	tests := []struct {
		name    string
		img     image.Image
		wantErr bool
	}{
		{"valid", solid(10, 5), false},
		{"nil image", nil, true},
		{"zero width", image.NewRGBA(image.Rect(0, 0, 0, 5)), true},
		{"zero height", image.NewRGBA(image.Rect(0, 0, 5, 0)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAsset("id", "gold", "gold.png", tt.img)
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyImage) {
					t.Errorf("error = %v, want ErrEmptyImage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.Size() != image.Pt(10, 5) {
				t.Errorf("Size() = %v, want (10,5)", a.Size())
			}
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b-rope.png"), solid(30, 10))
	writePNG(t, filepath.Join(dir, "a-box.PNG"), solid(20, 10))
	if err := os.WriteFile(filepath.Join(dir, "c-broken.jpg"), []byte("not a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	ids := fixedIDs{"a-box": "id-box", "b-rope": "id-rope"}
	assets, err := LoadDir(dir, ids, nil)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	if len(assets) != 2 {
		t.Fatalf("LoadDir returned %d assets, want 2", len(assets))
	}
	if assets[0].Name != "a-box" || assets[1].Name != "b-rope" {
		t.Errorf("names = %q, %q; want a-box, b-rope", assets[0].Name, assets[1].Name)
	}
	if assets[0].ID != "id-box" || assets[1].ID != "id-rope" {
		t.Errorf("ids = %q, %q", assets[0].ID, assets[1].ID)
	}
	if assets[1].Size() != image.Pt(30, 10) {
		t.Errorf("rope size = %v, want (30,10)", assets[1].Size())
	}
}

func TestLoadDir_SharedBaseName(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "gold.png"), solid(40, 20))
	f, err := os.Create(filepath.Join(dir, "gold.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(f, solid(80, 10), nil); err != nil {
		t.Fatal(err)
	}
	f.Close()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	defer s.Close()

	assets, err := LoadDir(dir, s.Chains(), nil)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("LoadDir returned %d assets, want 2", len(assets))
	}
	if assets[0].ID == assets[1].ID {
		t.Fatalf("both files got id %q", assets[0].ID)
	}

	sel := NewSelector(assets)
	if _, err := sel.Select(1); err != nil {
		t.Fatalf("Select(1) failed: %v", err)
	}
	want := sel.Active()

	// A reload resolves the saved ID back to the same file.
	reloaded, err := LoadDir(dir, s.Chains(), nil)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	restored := NewSelector(reloaded)
	got, err := restored.SelectID(want.ID)
	if err != nil {
		t.Fatalf("SelectID failed: %v", err)
	}
	if restored.ActiveIndex() != 1 || got.Source != want.Source || got.Size() != want.Size() {
		t.Errorf("restored %s %v at %d, want %s %v at 1", got.Source, got.Size(), restored.ActiveIndex(), want.Source, want.Size())
	}
}

func TestLoadDir_RandomIDs(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "gold.png"), solid(2, 2))

	assets, err := LoadDir(dir, nil, nil)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(assets) != 1 || assets[0].ID == "" {
		t.Fatalf("expected one asset with an id, got %+v", assets)
	}
}

func TestLoadDir_MissingDir(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope"), nil, nil); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestDataURI_Decode(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(1, 1, color.RGBA{R: 0xff, A: 0xff})
	a, err := NewAsset("id", "dot", "", src)
	if err != nil {
		t.Fatal(err)
	}

	uri, err := DataURI(a)
	if err != nil {
		t.Fatalf("DataURI failed: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("unexpected prefix: %.30s", uri)
	}

	img, err := Decode(uri)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Size() != image.Pt(3, 2) {
		t.Errorf("decoded size = %v, want (3,2)", img.Bounds().Size())
	}
	r, _, _, alpha := img.At(1, 1).RGBA()
	if r != 0xffff || alpha != 0xffff {
		t.Errorf("pixel (1,1) = %v, want opaque red", img.At(1, 1))
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		ref  string
	}{
		{"missing file", filepath.Join(t.TempDir(), "missing.png")},
		{"no comma", "data:image/png;base64"},
		{"not base64 header", "data:image/png,abcd"},
		{"not an image type", "data:text/plain;base64,aGVsbG8="},
		{"bad payload", "data:image/png;base64,!!!"},
		{"not an image", "data:image/png;base64,aGVsbG8="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.ref); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSelector_Navigation(t *testing.T) {
	s := NewSelector([]*Asset{mustAsset(t, "a"), mustAsset(t, "b"), mustAsset(t, "c")})

	if got := s.Active().ID; got != "a" {
		t.Fatalf("initial active = %q, want a", got)
	}

	steps := []struct {
		name string
		fn   func() (*Asset, error)
		want string
	}{
		{"next", s.Next, "b"},
		{"next", s.Next, "c"},
		{"next wraps to first", s.Next, "a"},
		{"previous wraps to last", s.Previous, "c"},
		{"previous", s.Previous, "b"},
	}

	for _, st := range steps {
		a, err := st.fn()
		if err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		if a.ID != st.want || s.Active().ID != st.want {
			t.Fatalf("%s: got %q, want %q", st.name, a.ID, st.want)
		}
	}

	if s.ActiveIndex() != 1 {
		t.Errorf("ActiveIndex() = %d, want 1", s.ActiveIndex())
	}
}

func TestSelector_Select(t *testing.T) {
	s := NewSelector([]*Asset{mustAsset(t, "a"), mustAsset(t, "b")})

	if _, err := s.Select(1); err != nil {
		t.Fatalf("Select(1): %v", err)
	}
	if s.Active().ID != "b" {
		t.Errorf("active = %q, want b", s.Active().ID)
	}

	for _, i := range []int{-1, 2} {
		if _, err := s.Select(i); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Select(%d) error = %v, want ErrOutOfRange", i, err)
		}
	}
	if s.Active().ID != "b" {
		t.Errorf("failed select changed active to %q", s.Active().ID)
	}

	if _, err := s.SelectID("a"); err != nil {
		t.Fatalf("SelectID(a): %v", err)
	}
	if _, err := s.SelectID("zzz"); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("SelectID(zzz) error = %v, want ErrUnknownAsset", err)
	}
	if _, err := s.Lookup("b"); err != nil {
		t.Errorf("Lookup(b): %v", err)
	}
}

func TestSelector_Empty(t *testing.T) {
	s := NewSelector(nil)

	if s.Active() != nil {
		t.Error("empty selector should have no active asset")
	}
	if s.ActiveIndex() != -1 {
		t.Errorf("ActiveIndex() = %d, want -1", s.ActiveIndex())
	}
	for name, fn := range map[string]func() (*Asset, error){
		"Next":     s.Next,
		"Previous": s.Previous,
		"Select":   func() (*Asset, error) { return s.Select(0) },
	} {
		if _, err := fn(); !errors.Is(err, ErrNoAssets) {
			t.Errorf("%s error = %v, want ErrNoAssets", name, err)
		}
	}
}

func TestSelector_SetAssetsKeepsActive(t *testing.T) {
	s := NewSelector([]*Asset{mustAsset(t, "a"), mustAsset(t, "b")})
	if _, err := s.SelectID("b"); err != nil {
		t.Fatal(err)
	}

	s.SetAssets([]*Asset{mustAsset(t, "z"), mustAsset(t, "b"), mustAsset(t, "c")})
	if s.Active().ID != "b" || s.ActiveIndex() != 1 {
		t.Errorf("active = %q at %d, want b at 1", s.Active().ID, s.ActiveIndex())
	}

	s.SetAssets([]*Asset{mustAsset(t, "x")})
	if s.Active().ID != "x" {
		t.Errorf("active = %q, want x after removal", s.Active().ID)
	}
}

func TestSelector_OnChange(t *testing.T) {
	s := NewSelector([]*Asset{mustAsset(t, "a"), mustAsset(t, "b")})

	var gotIndex int
	var gotID string
	s.OnChange(func(i int, a *Asset) {
		gotIndex, gotID = i, a.ID
	})

	if _, err := s.Next(); err != nil {
		t.Fatal(err)
	}
	if gotIndex != 1 || gotID != "b" {
		t.Errorf("OnChange got (%d, %q), want (1, b)", gotIndex, gotID)
	}
}

func TestSelector_ConcurrentSwitching(t *testing.T) {
	assets := []*Asset{mustAsset(t, "a"), mustAsset(t, "b"), mustAsset(t, "c")}
	s := NewSelector(assets)
	valid := map[*Asset]bool{}
	for _, a := range assets {
		valid[a] = true
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				s.Next()
			}
		}()
	}

	for j := 0; j < 2000; j++ {
		if a := s.Active(); !valid[a] {
			t.Fatalf("observed asset %p not in catalog", a)
		}
	}
	wg.Wait()

	// 2000 steps over three assets from index 0.
	if got := s.ActiveIndex(); got != 2000%3 {
		t.Errorf("ActiveIndex() = %d, want %d", got, 2000%3)
	}
}

func TestThumbnailer(t *testing.T) {
	th, err := NewThumbnailer(50, 4)
	if err != nil {
		t.Fatalf("NewThumbnailer: %v", err)
	}

	a, err := NewAsset("wide", "wide", "", solid(200, 100))
	if err != nil {
		t.Fatal(err)
	}

	data, err := th.PNG(a)
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if img.Bounds().Size() != image.Pt(50, 25) {
		t.Errorf("thumbnail size = %v, want (50,25)", img.Bounds().Size())
	}

	again, err := th.PNG(a)
	if err != nil {
		t.Fatal(err)
	}
	if &again[0] != &data[0] {
		t.Error("second call should be served from cache")
	}

	th.Purge()
	fresh, err := th.PNG(a)
	if err != nil {
		t.Fatal(err)
	}
	if &fresh[0] == &data[0] {
		t.Error("purge should drop cached thumbnails")
	}
}

func TestNewThumbnailer_InvalidCapacity(t *testing.T) {
	if _, err := NewThumbnailer(10, 0); err == nil {
		t.Error("expected error for zero capacity")
	}
}
