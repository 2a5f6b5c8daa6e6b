package httpexec

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
)

// CertificateBundle carries the PEM material attached to a credential-lookup
// secret for mutual-TLS APIs.
type CertificateBundle struct {
	Certificate string `json:"certificate"`
	PrivateKey  string `json:"private_key"`
	CACert      string `json:"ca_certificate"`
}

// Empty reports whether the bundle holds no client certificate.
func (b CertificateBundle) Empty() bool {
	return strings.TrimSpace(b.Certificate) == "" && strings.TrimSpace(b.PrivateKey) == ""
}

// NewMTLSConfig builds a TLS config presenting the bundle's client
// certificate. A CA certificate, when present, replaces the system roots.
func NewMTLSConfig(bundle CertificateBundle) (*tls.Config, error) {
	if bundle.Empty() {
		return nil, errors.New("certificate bundle is empty")
	}

	cert, err := tls.X509KeyPair([]byte(bundle.Certificate), []byte(bundle.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}

	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}

	if ca := strings.TrimSpace(bundle.CACert); ca != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(ca)) {
			return nil, errors.New("invalid ca certificate")
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}
