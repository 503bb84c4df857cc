package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ServerCommonName is the subject common name of the server certificate of TLSMaterial.
// The certificate carries no DNS name matching it, so it only passes with hostname verification skipped.
const ServerCommonName = "broker.rocketmq.test"

// TLSMaterial is a CA and a server and a client certificate it signed, all PEM encoded.
type TLSMaterial struct {
	CAPEM []byte

	ServerCertPEM []byte
	ServerKeyPEM  []byte

	ClientCertPEM []byte
	ClientKeyPEM  []byte
}

// NewTLSMaterial generates fresh certificates.
// The server certificate is valid for "localhost" and 127.0.0.1.
func NewTLSMaterial(tb testing.TB) *TLSMaterial {
	re := require.New(tb)

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	re.NoError(err)
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "rocketmq test ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTemplate, caTemplate, &caKey.PublicKey, caKey)
	re.NoError(err)
	ca, err := x509.ParseCertificate(caDER)
	re.NoError(err)

	m := &TLSMaterial{CAPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER})}
	m.ServerCertPEM, m.ServerKeyPEM = issue(tb, ca, caKey, &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: ServerCommonName},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	m.ClientCertPEM, m.ClientKeyPEM = issue(tb, ca, caKey, &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: "rocketmq test client"},
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	})
	return m
}

func issue(tb testing.TB, ca *x509.Certificate, caKey *ecdsa.PrivateKey, template *x509.Certificate) (certPEM, keyPEM []byte) {
	re := require.New(tb)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	re.NoError(err)
	template.NotBefore = time.Now().Add(-time.Hour)
	template.NotAfter = time.Now().Add(24 * time.Hour)
	template.KeyUsage = x509.KeyUsageDigitalSignature
	der, err := x509.CreateCertificate(rand.Reader, template, ca, &key.PublicKey, caKey)
	re.NoError(err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	re.NoError(err)
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
}

// ServerConfig returns a server side *tls.Config requiring a client certificate signed by the CA.
func (m *TLSMaterial) ServerConfig(tb testing.TB) *tls.Config {
	re := require.New(tb)

	cert, err := tls.X509KeyPair(m.ServerCertPEM, m.ServerKeyPEM)
	re.NoError(err)
	pool := x509.NewCertPool()
	re.True(pool.AppendCertsFromPEM(m.CAPEM))
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
	}
}
