// Package auth provides credentials and request signing.
package auth

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EnvAccessKey     = "ROCKETMQ_ACCESS_KEY"
	EnvAccessSecret  = "ROCKETMQ_ACCESS_SECRET"
	EnvSecurityToken = "ROCKETMQ_SECURITY_TOKEN"
)

var (
	// ErrEmptyCredentials is returned when the access key or the access secret is missing.
	ErrEmptyCredentials = errors.New("empty credentials")
	// ErrExpiredCredentials is returned when the credentials are past their expiration.
	ErrExpiredCredentials = errors.New("expired credentials")
)

// Credentials identify the client to the server.
type Credentials struct {
	AccessKey     string
	AccessSecret  string
	SecurityToken string
	// Expiration is zero for credentials that never expire.
	Expiration time.Time
}

// Empty reports whether the access key or the access secret is missing.
func (c Credentials) Empty() bool {
	return c.AccessKey == "" || c.AccessSecret == ""
}

// Expired reports whether the credentials are no longer valid at now.
func (c Credentials) Expired(now time.Time) bool {
	return !c.Expiration.IsZero() && !now.Before(c.Expiration)
}

// CredentialsProvider supplies the current credentials.
// Implementations must not block for long, as they are called on every signing.
type CredentialsProvider interface {
	Credentials() (Credentials, error)
}

// StaticCredentialsProvider always returns the same credentials.
type StaticCredentialsProvider struct {
	creds Credentials
}

// NewStaticCredentialsProvider returns a provider of fixed credentials.
func NewStaticCredentialsProvider(accessKey, accessSecret, securityToken string) *StaticCredentialsProvider {
	return &StaticCredentialsProvider{creds: Credentials{
		AccessKey:     accessKey,
		AccessSecret:  accessSecret,
		SecurityToken: securityToken,
	}}
}

func (p *StaticCredentialsProvider) Credentials() (Credentials, error) {
	return p.creds, nil
}

// EnvironmentVariableCredentialsProvider reads credentials from the environment on every call.
type EnvironmentVariableCredentialsProvider struct{}

func (EnvironmentVariableCredentialsProvider) Credentials() (Credentials, error) {
	return Credentials{
		AccessKey:     os.Getenv(EnvAccessKey),
		AccessSecret:  os.Getenv(EnvAccessSecret),
		SecurityToken: os.Getenv(EnvSecurityToken),
	}, nil
}

// ConfigFileCredentialsProvider reads credentials from a JSON file such as
//
//	{"AccessKey": "ak", "AccessSecret": "sk", "SecurityToken": "", "Expiration": "2024-01-01T00:00:00Z"}
//
// The file is read again when its modification time changes.
type ConfigFileCredentialsProvider struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	cached  Credentials
}

// DefaultCredentialsFile returns $HOME/rocketmq/credentials.
func DefaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, "rocketmq", "credentials")
}

// NewConfigFileCredentialsProvider returns a provider reading path.
// An empty path means DefaultCredentialsFile().
func NewConfigFileCredentialsProvider(path string) *ConfigFileCredentialsProvider {
	if path == "" {
		path = DefaultCredentialsFile()
	}
	return &ConfigFileCredentialsProvider{path: path}
}

func (p *ConfigFileCredentialsProvider) Credentials() (Credentials, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return Credentials{}, errors.Wrapf(err, "stat credentials file %s", p.path)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.modTime.IsZero() && info.ModTime().Equal(p.modTime) {
		return p.cached, nil
	}

	v := viper.New()
	v.SetConfigFile(p.path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return Credentials{}, errors.Wrapf(err, "read credentials file %s", p.path)
	}
	creds := Credentials{
		AccessKey:     v.GetString("AccessKey"),
		AccessSecret:  v.GetString("AccessSecret"),
		SecurityToken: v.GetString("SecurityToken"),
	}
	if v.IsSet("Expiration") {
		creds.Expiration = v.GetTime("Expiration")
	}

	p.cached = creds
	p.modTime = info.ModTime()
	return creds, nil
}
