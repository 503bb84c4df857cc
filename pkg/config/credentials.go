package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/AutoMQ/rocketmq-client/pkg/auth"
)

// Credentials providers.
const (
	ProviderNone   = "none"
	ProviderStatic = "static"
	ProviderEnv    = "env"
	ProviderFile   = "file"
)

// Credentials selects where request credentials come from.
type Credentials struct {
	// Provider is one of none, static, env and file.
	// If empty, static is used when AccessKey is set, file otherwise.
	// Requests are sent unsigned only with none.
	Provider      string
	AccessKey     string
	AccessSecret  string
	SecurityToken string
	// File is a JSON credentials file, see auth.ConfigFileCredentialsProvider.
	File string
}

func (c *Credentials) provider() string {
	switch {
	case c.Provider != "":
		return c.Provider
	case c.AccessKey != "":
		return ProviderStatic
	default:
		return ProviderFile
	}
}

// Validate checks the provider is known and has what it needs.
func (c *Credentials) Validate() error {
	switch c.provider() {
	case ProviderNone, ProviderEnv:
		return nil
	case ProviderStatic:
		if c.AccessKey == "" || c.AccessSecret == "" {
			return errors.New("static credentials need both access key and access secret")
		}
		return nil
	case ProviderFile:
		return nil
	default:
		return errors.Errorf("unknown credentials provider `%s`", c.Provider)
	}
}

// CredentialsProvider returns the credentials provider, or nil if requests are not signed.
func (c *Credentials) CredentialsProvider() (auth.CredentialsProvider, error) {
	switch c.provider() {
	case ProviderNone:
		return nil, nil
	case ProviderStatic:
		return auth.NewStaticCredentialsProvider(c.AccessKey, c.AccessSecret, c.SecurityToken), nil
	case ProviderEnv:
		return auth.EnvironmentVariableCredentialsProvider{}, nil
	case ProviderFile:
		path := c.File
		if path == "" {
			path = auth.DefaultCredentialsFile()
		}
		return auth.NewConfigFileCredentialsProvider(path), nil
	default:
		return nil, errors.Errorf("unknown credentials provider `%s`", c.Provider)
	}
}

func credentialsConfigure(v *viper.Viper, fs *pflag.FlagSet) {
	fs.String("credentials-provider", "", "where credentials come from, one of: none|static|env|file (default static if an access key is set, file otherwise)")
	fs.String("credentials-access-key", "", "access key of static credentials")
	fs.String("credentials-access-secret", "", "access secret of static credentials")
	fs.String("credentials-security-token", "", "security token of static credentials")
	fs.String("credentials-file", "", "JSON credentials file (default '${HOME}/rocketmq/credentials')")
	_ = v.BindPFlag("credentials.provider", fs.Lookup("credentials-provider"))
	_ = v.BindPFlag("credentials.accessKey", fs.Lookup("credentials-access-key"))
	_ = v.BindPFlag("credentials.accessSecret", fs.Lookup("credentials-access-secret"))
	_ = v.BindPFlag("credentials.securityToken", fs.Lookup("credentials-security-token"))
	_ = v.BindPFlag("credentials.file", fs.Lookup("credentials-file"))
}
