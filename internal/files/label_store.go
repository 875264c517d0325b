package files

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/Naveen474/fake-product-detection/internal/models"
)

const (
	indexFileName = "labels.json"
	labelSize     = 256
)

var ErrDuplicateLabel = errors.New("a label for this product already exists")

// Label is a printable QR code carrying a registered product's ID.
type Label struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// LabelStore keeps label PNGs and a JSON index of them in one directory.
type LabelStore struct {
	dir       string
	mu        sync.RWMutex
	now       func() time.Time
	writeFile func(name string, data []byte, perm fs.FileMode) error
}

func NewLabelStore(dir string) *LabelStore {
	return &LabelStore{dir: dir, now: time.Now, writeFile: os.WriteFile}
}

func (s *LabelStore) Dir() string { return s.dir }

// Save renders a QR code for the product ID and records it in the index.
func (s *LabelStore) Save(product models.Product) (Label, error) {
	if product.ProductID == "" {
		return Label{}, errors.New("product has no ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	labels, err := s.read()
	if err != nil {
		return Label{}, err
	}
	for _, l := range labels {
		if l.ProductID == product.ProductID {
			return Label{}, ErrDuplicateLabel
		}
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return Label{}, fmt.Errorf("failed to create label directory: %w", err)
	}
	label := Label{
		ID:        uuid.NewString(),
		ProductID: product.ProductID,
		Name:      product.Name,
		Path:      filepath.Join(s.dir, "qr_"+product.ProductID+".png"),
		CreatedAt: s.now(),
	}
	if err := qrcode.WriteFile(product.ProductID, qrcode.Highest, labelSize, label.Path); err != nil {
		return Label{}, fmt.Errorf("failed to write label image: %w", err)
	}

	labels = append(labels, label)
	data, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return Label{}, err
	}
	if err := s.writeFile(s.indexPath(), data, 0644); err != nil {
		os.Remove(label.Path)
		return Label{}, fmt.Errorf("failed to write label index: %w", err)
	}
	return label, nil
}

// GetAll returns every label in creation order.
func (s *LabelStore) GetAll() ([]Label, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

// Clear removes the index and every label image it lists.
func (s *LabelStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	labels, err := s.read()
	if err != nil {
		return err
	}
	var errs []error
	for _, l := range labels {
		if err := os.Remove(l.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := os.Remove(s.indexPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *LabelStore) indexPath() string { return filepath.Join(s.dir, indexFileName) }

func (s *LabelStore) read() ([]Label, error) {
	data, err := os.ReadFile(s.indexPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var labels []Label
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("corrupt label index: %w", err)
	}
	return labels, nil
}
