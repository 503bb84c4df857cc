package client

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedRootCAs is returned when no certificate can be parsed from the root CA material.
	ErrMalformedRootCAs = errors.New("malformed root certificates")
	// ErrUnauthorizedServer is returned by checkers rejecting the peer.
	ErrUnauthorizedServer = errors.New("server is not authorized")
)

// ServerAuthorizationChecker decides whether a TLS peer is acceptable.
// It runs after certificate chain verification, whether or not hostname verification is enabled.
type ServerAuthorizationChecker interface {
	Check(state tls.ConnectionState) error
}

// CheckerFunc adapts a function to ServerAuthorizationChecker.
type CheckerFunc func(state tls.ConnectionState) error

func (f CheckerFunc) Check(state tls.ConnectionState) error {
	return f(state)
}

// AllowAll accepts every peer whose chain has been verified.
var AllowAll ServerAuthorizationChecker = CheckerFunc(func(tls.ConnectionState) error { return nil })

// NameChecker accepts a peer whose leaf certificate carries one of Names,
// either as a DNS SAN or as the subject common name.
type NameChecker struct {
	Names []string
}

func (c NameChecker) Check(state tls.ConnectionState) error {
	if len(state.PeerCertificates) == 0 {
		return errors.WithMessage(ErrUnauthorizedServer, "no peer certificate")
	}
	leaf := state.PeerCertificates[0]
	for _, name := range c.Names {
		if leaf.Subject.CommonName == name {
			return nil
		}
		for _, dns := range leaf.DNSNames {
			if dns == name {
				return nil
			}
		}
	}
	return errors.WithMessagef(ErrUnauthorizedServer, "certificate of %q does not match %v", leaf.Subject.CommonName, c.Names)
}

// Identity is a client private key and its certificate chain, PEM encoded.
type Identity struct {
	KeyPEM  []byte
	CertPEM []byte
}

// TLSOptions describes the certificate material and the verification policy of a channel.
type TLSOptions struct {
	// RootCAs is the PEM encoded roots of trust.
	// If empty, the system pool is used.
	RootCAs []byte
	// Identities are presented to the server when it asks for a client certificate.
	Identities []Identity
	// SkipHostnameVerification still verifies the certificate chain, but not the
	// server name in it. The Checker is then the only identity check.
	SkipHostnameVerification bool
	// ServerName overrides the name used for SNI and hostname verification.
	ServerName string
	// Checker is run on every handshake. Default to AllowAll.
	Checker ServerAuthorizationChecker
}

// Config builds a *tls.Config from the options.
func (o *TLSOptions) Config() (*tls.Config, error) {
	var roots *x509.CertPool
	if len(o.RootCAs) > 0 {
		roots = x509.NewCertPool()
		if !roots.AppendCertsFromPEM(o.RootCAs) {
			return nil, ErrMalformedRootCAs
		}
	}

	certs := make([]tls.Certificate, 0, len(o.Identities))
	for i, id := range o.Identities {
		cert, err := tls.X509KeyPair(id.CertPEM, id.KeyPEM)
		if err != nil {
			return nil, errors.Wrapf(err, "load identity #%d", i)
		}
		certs = append(certs, cert)
	}

	checker := o.Checker
	if checker == nil {
		checker = AllowAll
	}

	config := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		RootCAs:      roots,
		Certificates: certs,
		ServerName:   o.ServerName,
	}
	if !o.SkipHostnameVerification {
		config.VerifyConnection = checker.Check
		return config, nil
	}

	// Chain verification is done by hand without a DNS name.
	config.InsecureSkipVerify = true
	config.VerifyConnection = func(state tls.ConnectionState) error {
		if err := verifyChain(state, roots); err != nil {
			return err
		}
		return checker.Check(state)
	}
	return config, nil
}

func verifyChain(state tls.ConnectionState, roots *x509.CertPool) error {
	if len(state.PeerCertificates) == 0 {
		return errors.New("tls: server presented no certificate")
	}
	intermediates := x509.NewCertPool()
	for _, cert := range state.PeerCertificates[1:] {
		intermediates.AddCert(cert)
	}
	_, err := state.PeerCertificates[0].Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	return errors.Wrap(err, "verify server certificate")
}
