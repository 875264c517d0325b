package utils

import (
	"os"
	"path/filepath"
)

// DataDir returns the per-user directory holding client files
// (~/.fake-product-detection), falling back to the temp dir.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "fake-product-detection")
	}
	return filepath.Join(home, ".fake-product-detection")
}

// LabelDir returns the default directory for generated product QR labels.
func LabelDir() string {
	return filepath.Join(DataDir(), "labels")
}
