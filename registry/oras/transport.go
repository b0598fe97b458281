package oras

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"sync"

	"github.com/gobwas/glob"

	"github.com/meigma/ocifetch/registry"
)

// TransportPolicy derives transport security settings for registry hosts.
//
// A TransportPolicy is immutable once created and safe for concurrent use.
type TransportPolicy struct {
	allowInsecure bool
	insecureHosts []glob.Glob
	caPaths       []string
	logger        *slog.Logger

	systemRoots func() (*x509.CertPool, error)
	client      func() (*http.Client, error)
}

// TransportOption configures a TransportPolicy.
type TransportOption func(*TransportPolicy)

// WithTransportLogger sets the logger for trust store warnings.
func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(p *TransportPolicy) {
		p.logger = logger
	}
}

// NewTransportPolicy creates a transport policy.
//
// When allowInsecure is set, plain HTTP is permitted for the registry host of
// the reference being fetched. A non-empty insecureHosts narrows that to the
// listed hosts. Entries may be glob patterns such as "*.local:5000" or
// "localhost:*"; "*" does not cross '.' or ':'. Certificates from caPaths are
// added to the system roots.
func NewTransportPolicy(allowInsecure bool, insecureHosts, caPaths []string, opts ...TransportOption) *TransportPolicy {
	p := &TransportPolicy{
		allowInsecure: allowInsecure,
		insecureHosts: compileHosts(insecureHosts),
		caPaths:       slices.Clone(caPaths),
		systemRoots:   x509.SystemCertPool,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client = sync.OnceValues(p.buildClient)
	return p
}

// PlainHTTP reports whether requests to host may use plain HTTP.
func (p *TransportPolicy) PlainHTTP(host string) bool {
	if p == nil || !p.allowInsecure || host == "" {
		return false
	}
	if len(p.insecureHosts) == 0 {
		return true
	}
	for _, g := range p.insecureHosts {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// compileHosts compiles host patterns. A malformed pattern matches only
// itself.
func compileHosts(hosts []string) []glob.Glob {
	globs := make([]glob.Glob, 0, len(hosts))
	for _, h := range hosts {
		g, err := glob.Compile(h, '.', ':')
		if err != nil {
			g = glob.MustCompile(glob.QuoteMeta(h))
		}
		globs = append(globs, g)
	}
	return globs
}

// HTTPClient returns the HTTP client trusting the policy's root pool.
//
// The client is built once; a CA load failure is returned on every call.
func (p *TransportPolicy) HTTPClient() (*http.Client, error) {
	if p == nil {
		return http.DefaultClient, nil
	}
	return p.client()
}

// RootCAs returns the system roots plus every certificate in the policy's CA paths.
// Without system roots only the configured certificates are trusted.
func (p *TransportPolicy) RootCAs() (*x509.CertPool, error) {
	if p == nil {
		return systemPool(x509.SystemCertPool, nil), nil
	}
	pool := systemPool(p.systemRoots, p.log())
	certs, err := LoadCertificates(p.caPaths)
	if err != nil {
		return nil, err
	}
	for _, cert := range certs {
		pool.AddCert(cert)
	}
	return pool, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (p *TransportPolicy) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// systemPool loads the system roots, or an empty pool if they are unavailable.
func systemPool(load func() (*x509.CertPool, error), logger *slog.Logger) *x509.CertPool {
	pool, err := load()
	if err == nil && pool != nil {
		return pool
	}
	if logger != nil {
		logger.Warn("system root certificates unavailable, trusting only additional CAs", "error", fmt.Sprint(err))
	}
	return x509.NewCertPool()
}

func (p *TransportPolicy) buildClient() (*http.Client, error) {
	if len(p.caPaths) == 0 {
		return &http.Client{Transport: http.DefaultTransport}, nil
	}
	pool, err := p.RootCAs()
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}
	return &http.Client{Transport: transport}, nil
}

// LoadCertificates reads certificates from each path.
//
// A file may hold one or more PEM CERTIFICATE blocks or raw DER. Any path that
// cannot be read or yields no certificate fails the whole load.
func LoadCertificates(paths []string) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", registry.ErrCertLoad, path, err)
		}
		parsed, err := parseCertificates(data)
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s: %w", registry.ErrCertLoad, path, err)
		}
		certs = append(certs, parsed...)
	}
	return certs, nil
}

func parseCertificates(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
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
	if len(certs) > 0 {
		return certs, nil
	}

	// No PEM blocks, try raw DER.
	certs, err := x509.ParseCertificates(data)
	if err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return nil, errors.New("no certificates found")
	}
	return certs, nil
}
