package certs

import (
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	t.Parallel()
	cert, err := Generate(24 * time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(cert.TLSCert.Certificate) == 0 {
		t.Fatal("no certificate data")
	}

	x509Cert, err := x509.ParseCertificate(cert.TLSCert.Certificate[0])
	if err != nil {
		t.Fatalf("failed to parse cert: %v", err)
	}
	if x509Cert.Subject.CommonName != "tsdemux" {
		t.Errorf("common name = %q", x509Cert.Subject.CommonName)
	}
	if x509Cert.NotAfter.Before(time.Now()) {
		t.Error("cert is already expired")
	}
	if cert.Fingerprint != sha256.Sum256(cert.TLSCert.Certificate[0]) {
		t.Error("fingerprint mismatch")
	}
}

func TestGenerateMaxValidity(t *testing.T) {
	t.Parallel()
	cert, err := Generate(30 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	x509Cert, err := x509.ParseCertificate(cert.TLSCert.Certificate[0])
	if err != nil {
		t.Fatalf("failed to parse cert: %v", err)
	}
	if validity := x509Cert.NotAfter.Sub(x509Cert.NotBefore); validity > 14*24*time.Hour+2*time.Minute {
		t.Errorf("validity should be capped at 14 days, got: %v", validity)
	}
}

func TestParseFingerprint(t *testing.T) {
	t.Parallel()
	cert, err := Generate(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	fp, err := ParseFingerprint(cert.FingerprintBase64())
	if err != nil {
		t.Fatal(err)
	}
	if fp != cert.Fingerprint {
		t.Error("round trip through base64 changed the fingerprint")
	}

	for _, bad := range []string{"not base64!", "AAAA"} {
		if _, err := ParseFingerprint(bad); err == nil {
			t.Errorf("ParseFingerprint(%q) should fail", bad)
		}
	}
}

func TestVerifyFingerprint(t *testing.T) {
	t.Parallel()
	a, err := Generate(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	verify := VerifyFingerprint(a.Fingerprint)
	if err := verify(a.TLSCert.Certificate, nil); err != nil {
		t.Errorf("matching certificate rejected: %v", err)
	}
	if err := verify(b.TLSCert.Certificate, nil); !errors.Is(err, ErrFingerprintMismatch) {
		t.Errorf("expected ErrFingerprintMismatch, got %v", err)
	}
	if err := verify(nil, nil); !errors.Is(err, ErrFingerprintMismatch) {
		t.Errorf("expected ErrFingerprintMismatch for no certs, got %v", err)
	}
}
