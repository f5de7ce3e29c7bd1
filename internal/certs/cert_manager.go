package certs

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"
)

var ErrExpired = errors.New("certificate expired")

// LoadCertificate reads the first PEM certificate in path.
func LoadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("failed to parse certificate PEM")
	}
	return x509.ParseCertificate(block.Bytes)
}

// IsExpired checks if a certificate is expired at now.
func IsExpired(cert *x509.Certificate, now time.Time) bool {
	return cert.NotAfter.Before(now)
}

// ExpiresWithin reports whether cert expires before now+d.
func ExpiresWithin(cert *x509.Certificate, d time.Duration, now time.Time) bool {
	return cert.NotAfter.Before(now.Add(d))
}

// LoadKeyPair loads the listener certificate and refuses an expired one.
func LoadKeyPair(certFile, keyFile string, now time.Time) (tls.Certificate, error) {
	pair, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("load key pair: %w", err)
	}
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		return tls.Certificate{}, err
	}
	if IsExpired(leaf, now) {
		return tls.Certificate{}, fmt.Errorf("%w: %s not after %s", ErrExpired, certFile, leaf.NotAfter.Format(time.RFC3339))
	}
	pair.Leaf = leaf
	return pair, nil
}
