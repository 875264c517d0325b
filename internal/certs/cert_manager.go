package certs

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CertManager loads the CA certificates trusted for the ledger connection
// from a directory of .crt/.pem files.
type CertManager struct {
	certDir string
	now     func() time.Time
}

// NewCertManager creates a new CertManager for the given directory.
func NewCertManager(certDir string) *CertManager {
	return &CertManager{certDir: certDir, now: time.Now}
}

// LoadCertificates loads all certificates from the cert directory. A file
// may hold several PEM blocks.
func (cm *CertManager) LoadCertificates() ([]*x509.Certificate, error) {
	var certs []*x509.Certificate

	err := filepath.WalkDir(cm.certDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".crt") || strings.HasSuffix(d.Name(), ".pem") {
			loaded, err := cm.loadCertificates(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			certs = append(certs, loaded...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return certs, nil
}

func (cm *CertManager) loadCertificates(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, errors.New("failed to parse certificate PEM")
	}
	return certs, nil
}

// IsExpired checks if a certificate is expired.
func (cm *CertManager) IsExpired(cert *x509.Certificate) bool {
	return cert.NotAfter.Before(cm.now())
}

// Pool returns the system roots extended with every unexpired certificate
// in the directory. Expired certificates are reported in skipped.
func (cm *CertManager) Pool() (pool *x509.CertPool, skipped []*x509.Certificate, err error) {
	certs, err := cm.LoadCertificates()
	if err != nil {
		return nil, nil, err
	}
	pool, err = x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	for _, cert := range certs {
		if cm.IsExpired(cert) {
			skipped = append(skipped, cert)
			continue
		}
		pool.AddCert(cert)
	}
	return pool, skipped, nil
}
