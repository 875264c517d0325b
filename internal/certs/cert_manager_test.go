package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCert(t *testing.T, dir, name string, notAfter time.Time) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: name},
		NotBefore:             notAfter.Add(-48 * time.Hour),
		NotAfter:              notAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(filepath.Join(dir, name), data, 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCertificatesAndPool(t *testing.T) {
	dir := t.TempDir()
	writeCert(t, dir, "ledger-ca.pem", time.Now().Add(24*time.Hour))
	writeCert(t, dir, "old-ca.crt", time.Now().Add(-time.Hour))
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0600); err != nil {
		t.Fatal(err)
	}

	cm := NewCertManager(dir)
	certs, err := cm.LoadCertificates()
	if err != nil {
		t.Fatalf("LoadCertificates: %v", err)
	}
	if len(certs) != 2 {
		t.Fatalf("loaded %d certificates, want 2", len(certs))
	}

	pool, skipped, err := cm.Pool()
	if err != nil {
		t.Fatalf("Pool: %v", err)
	}
	if pool == nil {
		t.Fatal("nil pool")
	}
	if len(skipped) != 1 || skipped[0].Subject.CommonName != "old-ca.crt" {
		t.Fatalf("skipped = %v, want the expired certificate", skipped)
	}
}

func TestLoadCertificatesRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.pem"), []byte("not a certificate"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCertManager(dir).LoadCertificates(); err == nil {
		t.Fatal("expected error for unparsable PEM")
	}
}
