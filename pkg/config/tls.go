package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/AutoMQ/rocketmq-client/pkg/rpc/client"
)

// TLS is the configuration of transport security.
type TLS struct {
	Enable bool
	// CAFile holds PEM encoded root certificates. Empty means the system roots.
	CAFile   string
	CertFile string
	KeyFile  string
	// SkipHostnameVerification verifies the certificate chain but not the name in it.
	SkipHostnameVerification bool
	ServerName               string
	// AuthorizedNames, if not empty, are the only server names accepted.
	AuthorizedNames []string
}

// Validate checks the key pair is complete.
func (t *TLS) Validate() error {
	if !t.Enable {
		return nil
	}
	if (t.CertFile == "") != (t.KeyFile == "") {
		return errors.Errorf("cert file `%s` and key file `%s` must be set together", t.CertFile, t.KeyFile)
	}
	return nil
}

// Options reads the files and returns the channel TLS options, or nil if TLS is disabled.
func (t *TLS) Options() (*client.TLSOptions, error) {
	if !t.Enable {
		return nil, nil
	}
	ca, err := readFile(t.CAFile)
	if err != nil {
		return nil, errors.WithMessage(err, "root certificates")
	}
	opts := &client.TLSOptions{
		RootCAs:                  ca,
		SkipHostnameVerification: t.SkipHostnameVerification,
		ServerName:               t.ServerName,
	}
	if t.CertFile != "" {
		cert, err := readFile(t.CertFile)
		if err != nil {
			return nil, errors.WithMessage(err, "client certificate")
		}
		key, err := readFile(t.KeyFile)
		if err != nil {
			return nil, errors.WithMessage(err, "client key")
		}
		opts.Identities = []client.Identity{{KeyPEM: key, CertPEM: cert}}
	}
	if len(t.AuthorizedNames) > 0 {
		opts.Checker = client.NameChecker{Names: t.AuthorizedNames}
	}
	return opts, nil
}

func tlsConfigure(v *viper.Viper, fs *pflag.FlagSet) {
	fs.Bool("tls-enable", false, "connect to brokers over TLS")
	fs.String("tls-ca-file", "", "PEM file of the root certificates (default system roots)")
	fs.String("tls-cert-file", "", "PEM file of the client certificate")
	fs.String("tls-key-file", "", "PEM file of the client private key")
	fs.Bool("tls-skip-hostname-verification", false, "verify the server certificate chain but not its host name")
	fs.String("tls-server-name", "", "server name expected in the certificate (default the dialed host)")
	fs.StringSlice("tls-authorized-names", []string{}, "names a server certificate must carry to be accepted (default any)")
	_ = v.BindPFlag("tls.enable", fs.Lookup("tls-enable"))
	_ = v.BindPFlag("tls.caFile", fs.Lookup("tls-ca-file"))
	_ = v.BindPFlag("tls.certFile", fs.Lookup("tls-cert-file"))
	_ = v.BindPFlag("tls.keyFile", fs.Lookup("tls-key-file"))
	_ = v.BindPFlag("tls.skipHostnameVerification", fs.Lookup("tls-skip-hostname-verification"))
	_ = v.BindPFlag("tls.serverName", fs.Lookup("tls-server-name"))
	_ = v.BindPFlag("tls.authorizedNames", fs.Lookup("tls-authorized-names"))
}
