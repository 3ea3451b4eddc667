package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNoCertsFound is returned when PEM data holds no certificate block.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")

	// ErrIncompleteKeyPair is returned when only one of cert_file and
	// key_file is set.
	ErrIncompleteKeyPair = errors.New("tlsroots: cert_file and key_file must be set together")
)

// Pool is a set of trusted root certificates.
type Pool struct {
	certs *x509.CertPool
	added int
}

// NewPool starts from the system roots, or from an empty pool where the
// platform has none.
func NewPool() *Pool {
	certs, err := x509.SystemCertPool()
	if err != nil {
		certs = x509.NewCertPool()
	}
	return &Pool{certs: certs}
}

// NewEmptyPool returns a pool that trusts nothing until certificates are
// added.
func NewEmptyPool() *Pool {
	return &Pool{certs: x509.NewCertPool()}
}

// AddCertFile adds every certificate in the PEM file at path.
func (p *Pool) AddCertFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read %s: %w", path, err)
	}
	if err := p.AddCertPEM(data); err != nil {
		return fmt.Errorf("%w (%s)", err, path)
	}
	return nil
}

// AddCertPEM adds every CERTIFICATE block in data. Other block types are
// skipped.
func (p *Pool) AddCertPEM(data []byte) error {
	n := 0
	for len(data) > 0 {
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
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		p.certs.AddCert(cert)
		n++
	}
	if n == 0 {
		return ErrNoCertsFound
	}
	p.added += n
	return nil
}

// Added reports how many certificates were added on top of the base pool.
func (p *Pool) Added() int { return p.added }

// CertPool returns the underlying x509 pool.
func (p *Pool) CertPool() *x509.CertPool { return p.certs }

// Options names the PEM files for one backend. All fields are optional.
type Options struct {
	CAFile   string
	CertFile string
	KeyFile  string
}

// Empty reports whether no TLS customisation is requested.
func (o Options) Empty() bool {
	return o.CAFile == "" && o.CertFile == "" && o.KeyFile == ""
}

// Validate checks that the key pair is either complete or absent.
func (o Options) Validate() error {
	if (o.CertFile == "") != (o.KeyFile == "") {
		return ErrIncompleteKeyPair
	}
	return nil
}

// ClientConfig builds a client tls.Config from o. It returns nil when o is
// empty so callers keep Go's default transport settings.
func ClientConfig(o Options) (*tls.Config, error) {
	if o.Empty() {
		return nil, nil
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if o.CAFile != "" {
		pool := NewPool()
		if err := pool.AddCertFile(o.CAFile); err != nil {
			return nil, err
		}
		cfg.RootCAs = pool.CertPool()
	}

	if o.CertFile != "" {
		pair, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("tlsroots: load key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}

	return cfg, nil
}
