package registry

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bitnetlabs/bitnet/internal/infra/sqlite"
)

// fakeFetcher stands in for the download tool. Tests never hit the
// network — the manager only cares about the exit status and whatever
// files appear in the destination directory.
type fakeFetcher struct {
	calls []string // model ids, in call order
	fail  bool
	files []string // relative paths to create under destDir on success
}

func (f *fakeFetcher) Fetch(_ context.Context, modelID, destDir, logPath string) error {
	f.calls = append(f.calls, modelID)
	if err := os.WriteFile(logPath, []byte("fetched "+modelID+"\n"), 0o644); err != nil {
		return err
	}
	if f.fail {
		return errors.New("exit status 1")
	}
	for _, rel := range f.files {
		if err := os.WriteFile(filepath.Join(destDir, rel), []byte("real weights"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// newTestManager creates a Manager over temp directories with a fake
// fetcher and a throwaway journal. Arch is pinned to x86_64 so quant
// expectations hold on any host.
func newTestManager(t *testing.T) (*Manager, *fakeFetcher) {
	t.Helper()
	dir := t.TempDir()

	db, err := sqlite.Open(filepath.Join(dir, "db"))
	if err != nil {
		t.Fatalf("Open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fetcher := &fakeFetcher{}
	mgr, err := NewManager(
		filepath.Join(dir, "models"),
		filepath.Join(dir, "logs"),
		fetcher, db, zerolog.New(io.Discard),
	)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	mgr.arch = "x86_64"
	return mgr, fetcher
}

const testModelID = "microsoft/BitNet-b1.58-2B-4T"
const testModelName = "BitNet-b1.58-2B-4T"

// ─── Download Tests ─────────────────────────────────────────────────────────

func TestManager_Download(t *testing.T) {
	mgr, fetcher := newTestManager(t)

	if ok := mgr.Download(context.Background(), testModelID, "i2_s"); !ok {
		t.Fatal("Download() = false, want true")
	}

	if len(fetcher.calls) != 1 || fetcher.calls[0] != testModelID {
		t.Errorf("fetcher calls = %v, want [%s]", fetcher.calls, testModelID)
	}

	rec, ok := mgr.ModelInfo(testModelName)
	if !ok {
		t.Fatal("model missing from registry after Download()")
	}
	if rec.ModelID != testModelID {
		t.Errorf("ModelID = %q, want %q", rec.ModelID, testModelID)
	}
	if rec.QuantType != "i2_s" {
		t.Errorf("QuantType = %q, want %q", rec.QuantType, "i2_s")
	}
	if rec.Description != "Official BitNet 2B parameter model (4T tokens)" {
		t.Errorf("Description = %q", rec.Description)
	}

	// Placeholder weight file materialized with the exact marker content
	data, err := os.ReadFile(rec.GGUFPath)
	if err != nil {
		t.Fatalf("read weight file: %v", err)
	}
	if string(data) != "# Placeholder GGUF file" {
		t.Errorf("placeholder content = %q", data)
	}

	// Fetch output landed in the per-operation log
	logPath := filepath.Join(mgr.logsDir, "download_model_"+testModelName+".log")
	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("download log missing: %v", err)
	}
}

func TestManager_Download_DefaultQuant(t *testing.T) {
	mgr, _ := newTestManager(t)

	if ok := mgr.Download(context.Background(), testModelID, ""); !ok {
		t.Fatal("Download() = false, want true")
	}

	rec, _ := mgr.ModelInfo(testModelName)
	if rec.QuantType != "i2_s" {
		t.Errorf("QuantType = %q, want default %q", rec.QuantType, "i2_s")
	}
	if filepath.Base(rec.GGUFPath) != "ggml-model-i2_s.gguf" {
		t.Errorf("GGUFPath base = %q, want ggml-model-i2_s.gguf", filepath.Base(rec.GGUFPath))
	}
}

func TestManager_Download_UnknownModel(t *testing.T) {
	mgr, fetcher := newTestManager(t)

	if ok := mgr.Download(context.Background(), "acme/404", ""); ok {
		t.Fatal("Download(unknown) = true, want false")
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("fetcher called %d times for unknown model, want 0", len(fetcher.calls))
	}
	if n := len(mgr.ListInstalled()); n != 0 {
		t.Errorf("ListInstalled() has %d records, want 0", n)
	}
}

func TestManager_Download_UnsupportedQuant(t *testing.T) {
	mgr, fetcher := newTestManager(t)

	// tl1 is an arm64 kernel; the manager is pinned to x86_64
	if ok := mgr.Download(context.Background(), testModelID, "tl1"); ok {
		t.Fatal("Download(tl1 on x86_64) = true, want false")
	}
	if len(fetcher.calls) != 0 {
		t.Error("rejected quant type must not reach the fetcher")
	}
	if _, err := os.Stat(filepath.Join(mgr.modelsDir, testModelName)); !os.IsNotExist(err) {
		t.Error("rejected download must not create the model directory")
	}
}

func TestManager_Download_FetchFails(t *testing.T) {
	mgr, fetcher := newTestManager(t)
	fetcher.fail = true

	if ok := mgr.Download(context.Background(), testModelID, "i2_s"); ok {
		t.Fatal("Download() = true, want false when fetch fails")
	}
	if n := len(mgr.ListInstalled()); n != 0 {
		t.Errorf("failed download left %d registry records, want 0", n)
	}

	ops, err := mgr.journal.ListOperations(10)
	if err != nil {
		t.Fatalf("ListOperations() error: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("len(ops) = %d, want 1", len(ops))
	}
	if ops[0].Kind != sqlite.OpDownload || ops[0].Status != sqlite.StatusFailed {
		t.Errorf("op = %s/%s, want download/failed", ops[0].Kind, ops[0].Status)
	}
}

func TestManager_Download_KeepsRealWeights(t *testing.T) {
	mgr, fetcher := newTestManager(t)
	fetcher.files = []string{"ggml-model-i2_s.gguf"}

	if ok := mgr.Download(context.Background(), testModelID, "i2_s"); !ok {
		t.Fatal("Download() = false, want true")
	}

	rec, _ := mgr.ModelInfo(testModelName)
	data, err := os.ReadFile(rec.GGUFPath)
	if err != nil {
		t.Fatalf("read weight file: %v", err)
	}
	if string(data) != "real weights" {
		t.Errorf("fetched weights overwritten with placeholder: %q", data)
	}
}

func TestManager_Download_Reinstall(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	if ok := mgr.Download(ctx, testModelID, "i2_s"); !ok {
		t.Fatal("first Download() failed")
	}
	if ok := mgr.Download(ctx, testModelID, "tl2"); !ok {
		t.Fatal("second Download() failed")
	}

	// Same name, overwritten record
	if n := len(mgr.ListInstalled()); n != 1 {
		t.Fatalf("len(ListInstalled()) = %d, want 1", n)
	}
	rec, _ := mgr.ModelInfo(testModelName)
	if rec.QuantType != "tl2" {
		t.Errorf("QuantType = %q, want %q after reinstall", rec.QuantType, "tl2")
	}
}

// ─── Remove Tests ───────────────────────────────────────────────────────────

func TestManager_Remove(t *testing.T) {
	mgr, _ := newTestManager(t)
	if ok := mgr.Download(context.Background(), testModelID, "i2_s"); !ok {
		t.Fatal("Download() failed")
	}
	rec, _ := mgr.ModelInfo(testModelName)

	if ok := mgr.Remove(testModelName); !ok {
		t.Fatal("Remove() = false, want true")
	}
	if _, err := os.Stat(rec.Path); !os.IsNotExist(err) {
		t.Error("model directory should be deleted")
	}
	if _, ok := mgr.ModelInfo(testModelName); ok {
		t.Error("registry record should be gone")
	}

	// Second removal finds nothing
	if ok := mgr.Remove(testModelName); ok {
		t.Error("second Remove() = true, want false")
	}
}

func TestManager_Remove_Unknown(t *testing.T) {
	mgr, _ := newTestManager(t)
	if ok := mgr.Remove("ghost"); ok {
		t.Error("Remove(ghost) = true, want false")
	}
}

func TestManager_Remove_FilesystemFailure(t *testing.T) {
	mgr, _ := newTestManager(t)
	if ok := mgr.Download(context.Background(), testModelID, "i2_s"); !ok {
		t.Fatal("Download() failed")
	}

	mgr.removeFn = func(string) error { return errors.New("device busy") }
	if ok := mgr.Remove(testModelName); ok {
		t.Fatal("Remove() = true, want false when deletion fails")
	}

	// Record must survive so it still reflects the on-disk state
	if _, ok := mgr.ModelInfo(testModelName); !ok {
		t.Error("registry record must be kept when deletion fails")
	}
}

// ─── Lookup Tests ───────────────────────────────────────────────────────────

func TestManager_ModelPath(t *testing.T) {
	mgr, _ := newTestManager(t)
	if ok := mgr.Download(context.Background(), testModelID, "i2_s"); !ok {
		t.Fatal("Download() failed")
	}

	path, ok := mgr.ModelPath(testModelName)
	if !ok {
		t.Fatal("ModelPath() = false, want true")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("ModelPath() points at missing file: %v", err)
	}

	if _, ok := mgr.ModelPath("ghost"); ok {
		t.Error("ModelPath(ghost) = true, want false")
	}
}

func TestManager_ListAvailable(t *testing.T) {
	mgr, _ := newTestManager(t)

	entries := mgr.ListAvailable()
	if len(entries) != 8 {
		t.Errorf("len(ListAvailable()) = %d, want 8", len(entries))
	}

	found := false
	for _, e := range entries {
		if e.ModelID == testModelID {
			found = true
		}
	}
	if !found {
		t.Errorf("default model %s missing from catalog", testModelID)
	}
}

// ─── Persistence Tests ──────────────────────────────────────────────────────

func TestManager_RegistrySurvivesRestart(t *testing.T) {
	mgr, _ := newTestManager(t)
	if ok := mgr.Download(context.Background(), testModelID, "i2_s"); !ok {
		t.Fatal("Download() failed")
	}

	// A second manager over the same directories sees the same state
	mgr2, err := NewManager(mgr.modelsDir, mgr.logsDir, &fakeFetcher{}, nil, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	rec, ok := mgr2.ModelInfo(testModelName)
	if !ok {
		t.Fatal("restarted manager lost the registry record")
	}
	if rec.QuantType != "i2_s" {
		t.Errorf("QuantType = %q, want %q", rec.QuantType, "i2_s")
	}
}
