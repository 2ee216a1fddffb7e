package registry

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bitnetlabs/bitnet/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "registry.json"), zerolog.New(io.Discard))
}

// ─── Load Tests ─────────────────────────────────────────────────────────────

func TestStore_Load_MissingFile(t *testing.T) {
	s := newTestStore(t)

	reg := s.Load()
	if len(reg.Models) != 0 {
		t.Errorf("len(Models) = %d, want 0", len(reg.Models))
	}

	// A fresh install is not a warning condition
	select {
	case w := <-s.Warnings():
		t.Errorf("unexpected warning for missing file: %+v", w)
	default:
	}
}

func TestStore_Load_Corrupt(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.Path(), []byte("{not valid json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	reg := s.Load()
	if len(reg.Models) != 0 {
		t.Errorf("len(Models) = %d, want 0", len(reg.Models))
	}

	select {
	case w := <-s.Warnings():
		if w.Path != s.Path() {
			t.Errorf("warning path = %q, want %q", w.Path, s.Path())
		}
		if w.Reason == "" {
			t.Error("warning should carry a reason")
		}
	default:
		t.Error("corrupt registry should emit a warning")
	}
}

func TestStore_LoadStrict_Corrupt(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.Path(), []byte("[]"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	_, err := s.LoadStrict()
	if !errors.Is(err, domain.ErrRegistryCorrupt) {
		t.Errorf("LoadStrict() error = %v, want ErrRegistryCorrupt", err)
	}
}

func TestStore_Load_NullModels(t *testing.T) {
	// An explicit {"models": null} still yields a usable map
	s := newTestStore(t)
	if err := os.WriteFile(s.Path(), []byte(`{"models": null}`), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg := s.Load()
	if reg.Models == nil {
		t.Fatal("Models map should never be nil after Load()")
	}
}

// ─── Save Tests ─────────────────────────────────────────────────────────────

func TestStore_SaveLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	reg := domain.NewRegistry()
	reg.Models["BitNet-b1.58-2B-4T"] = domain.InstalledModel{
		ModelID:     "microsoft/BitNet-b1.58-2B-4T",
		ModelName:   "BitNet-b1.58-2B-4T",
		QuantType:   "i2_s",
		Path:        "/models/BitNet-b1.58-2B-4T",
		GGUFPath:    "/models/BitNet-b1.58-2B-4T/ggml-model-i2_s.gguf",
		Description: "Official BitNet 2B parameter model (4T tokens)",
	}
	if err := s.Save(reg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got := s.Load()
	rec, ok := got.Models["BitNet-b1.58-2B-4T"]
	if !ok {
		t.Fatal("saved model missing after Load()")
	}
	if rec.QuantType != "i2_s" {
		t.Errorf("QuantType = %q, want %q", rec.QuantType, "i2_s")
	}
	if rec.GGUFPath != "/models/BitNet-b1.58-2B-4T/ggml-model-i2_s.gguf" {
		t.Errorf("GGUFPath = %q, want round-tripped path", rec.GGUFPath)
	}
}

func TestStore_Save_DocumentShape(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(domain.NewRegistry()); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}

	want := "{\n  \"models\": {}\n}"
	if string(data) != want {
		t.Errorf("document = %q, want %q", data, want)
	}
}

func TestStore_Save_Overwrites(t *testing.T) {
	s := newTestStore(t)

	reg := domain.NewRegistry()
	reg.Models["a"] = domain.InstalledModel{ModelName: "a"}
	reg.Models["b"] = domain.InstalledModel{ModelName: "b"}
	if err := s.Save(reg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// Whole-document semantics: dropping a record and saving removes it
	delete(reg.Models, "a")
	if err := s.Save(reg); err != nil {
		t.Fatalf("second Save() error: %v", err)
	}

	got := s.Load()
	if _, ok := got.Models["a"]; ok {
		t.Error("record \"a\" should be gone after overwrite")
	}
	if _, ok := got.Models["b"]; !ok {
		t.Error("record \"b\" should survive overwrite")
	}
}
