package files

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/Naveen474/fake-product-detection/internal/models"
)

func TestLabelStoreSaveAndGetAll(t *testing.T) {
	store := NewLabelStore(filepath.Join(t.TempDir(), "labels"))

	labels, err := store.GetAll()
	if err != nil || len(labels) != 0 {
		t.Fatalf("empty store GetAll = %v, %v", labels, err)
	}

	label, err := store.Save(models.Product{ProductID: "abc123", Name: "Widget"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if label.ID == "" || label.CreatedAt.IsZero() {
		t.Fatalf("label = %+v", label)
	}
	info, err := os.Stat(label.Path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("label image missing: %v", err)
	}

	if _, err := store.Save(models.Product{ProductID: "abc123"}); !errors.Is(err, ErrDuplicateLabel) {
		t.Fatalf("duplicate Save = %v", err)
	}
	if _, err := store.Save(models.Product{ProductID: "def456", Name: "Gadget"}); err != nil {
		t.Fatal(err)
	}

	labels, err = store.GetAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 2 || labels[0].ProductID != "abc123" || labels[1].Name != "Gadget" {
		t.Fatalf("labels = %+v", labels)
	}
}

func TestLabelStoreRejectsMissingID(t *testing.T) {
	store := NewLabelStore(t.TempDir())
	if _, err := store.Save(models.Product{Name: "x"}); err == nil {
		t.Fatal("expected error for product without ID")
	}
}

func TestLabelStoreClear(t *testing.T) {
	store := NewLabelStore(t.TempDir())
	label, err := store.Save(models.Product{ProductID: "p1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(label.Path); !os.IsNotExist(err) {
		t.Fatalf("label image should be gone: %v", err)
	}
	labels, err := store.GetAll()
	if err != nil || len(labels) != 0 {
		t.Fatalf("GetAll after Clear = %v, %v", labels, err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestLabelStoreCorruptIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, indexFileName), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLabelStore(dir).GetAll(); err == nil {
		t.Fatal("expected corrupt index error")
	}
}

func TestLabelStoreIndexFailureRemovesImage(t *testing.T) {
	dir := t.TempDir()
	store := NewLabelStore(dir)
	store.writeFile = func(string, []byte, fs.FileMode) error { return errors.New("disk full") }

	if _, err := store.Save(models.Product{ProductID: "p1"}); err == nil {
		t.Fatal("expected index write error")
	}
	if _, err := os.Stat(filepath.Join(dir, "qr_p1.png")); !os.IsNotExist(err) {
		t.Fatalf("orphan label image left behind: %v", err)
	}
}
