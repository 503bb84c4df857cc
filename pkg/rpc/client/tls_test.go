package client

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AutoMQ/rocketmq-client/pkg/util/testutil"
)

func TestTLSOptions_Config(t *testing.T) {
	m := testutil.NewTLSMaterial(t)
	tests := []struct {
		name     string
		opts     TLSOptions
		wantErr  string
		wantSkip bool
	}{
		{name: "system roots", opts: TLSOptions{}},
		{name: "roots and identity", opts: TLSOptions{RootCAs: m.CAPEM, Identities: []Identity{{KeyPEM: m.ClientKeyPEM, CertPEM: m.ClientCertPEM}}}},
		{name: "skip hostname", opts: TLSOptions{RootCAs: m.CAPEM, SkipHostnameVerification: true}, wantSkip: true},
		{name: "malformed roots", opts: TLSOptions{RootCAs: []byte("not a pem")}, wantErr: "malformed root certificates"},
		{name: "malformed identity", opts: TLSOptions{Identities: []Identity{{KeyPEM: []byte("x"), CertPEM: m.ClientCertPEM}}}, wantErr: "load identity #0"},
		{name: "mismatched identity", opts: TLSOptions{Identities: []Identity{{KeyPEM: m.ServerKeyPEM, CertPEM: m.ClientCertPEM}}}, wantErr: "load identity #0"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			config, err := tt.opts.Config()
			if tt.wantErr != "" {
				re.ErrorContains(err, tt.wantErr)
				return
			}
			re.NoError(err)
			re.Equal(tt.wantSkip, config.InsecureSkipVerify)
			re.Len(config.Certificates, len(tt.opts.Identities))
			re.NotNil(config.VerifyConnection)
			re.Equal(uint16(tls.VersionTLS12), config.MinVersion)
		})
	}
}

func TestTLSOptions_VerifyConnection(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	m := testutil.NewTLSMaterial(t)
	other := testutil.NewTLSMaterial(t)
	server := parseCert(t, m.ServerCertPEM)
	untrusted := parseCert(t, other.ServerCertPEM)

	config, err := (&TLSOptions{RootCAs: m.CAPEM, SkipHostnameVerification: true}).Config()
	re.NoError(err)
	re.NoError(config.VerifyConnection(tls.ConnectionState{PeerCertificates: []*x509.Certificate{server}}))
	re.ErrorContains(config.VerifyConnection(tls.ConnectionState{PeerCertificates: []*x509.Certificate{untrusted}}), "verify server certificate")
	re.Error(config.VerifyConnection(tls.ConnectionState{}))

	config, err = (&TLSOptions{
		RootCAs:                  m.CAPEM,
		SkipHostnameVerification: true,
		Checker:                  NameChecker{Names: []string{"someone else"}},
	}).Config()
	re.NoError(err)
	re.ErrorIs(config.VerifyConnection(tls.ConnectionState{PeerCertificates: []*x509.Certificate{server}}), ErrUnauthorizedServer)
}

func TestNameChecker(t *testing.T) {
	m := testutil.NewTLSMaterial(t)
	cert := parseCert(t, m.ServerCertPEM)
	tests := []struct {
		name    string
		names   []string
		state   tls.ConnectionState
		wantErr bool
	}{
		{name: "common name", names: []string{testutil.ServerCommonName}, state: tls.ConnectionState{PeerCertificates: []*x509.Certificate{cert}}},
		{name: "dns name", names: []string{"nope", "localhost"}, state: tls.ConnectionState{PeerCertificates: []*x509.Certificate{cert}}},
		{name: "no match", names: []string{"nope"}, state: tls.ConnectionState{PeerCertificates: []*x509.Certificate{cert}}, wantErr: true},
		{name: "no names", state: tls.ConnectionState{PeerCertificates: []*x509.Certificate{cert}}, wantErr: true},
		{name: "no certificate", names: []string{"localhost"}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			err := NameChecker{Names: tt.names}.Check(tt.state)
			if tt.wantErr {
				re.ErrorIs(err, ErrUnauthorizedServer)
				return
			}
			re.NoError(err)
		})
	}
}

func parseCert(tb testing.TB, certPEM []byte) *x509.Certificate {
	block, _ := pem.Decode(certPEM)
	require.NotNil(tb, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(tb, err)
	return cert
}
