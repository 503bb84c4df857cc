package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCredentials(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tests := []struct {
		name        string
		creds       Credentials
		wantEmpty   bool
		wantExpired bool
	}{
		{name: "valid", creds: Credentials{AccessKey: "ak", AccessSecret: "sk"}},
		{name: "no key", creds: Credentials{AccessSecret: "sk"}, wantEmpty: true},
		{name: "no secret", creds: Credentials{AccessKey: "ak"}, wantEmpty: true},
		{name: "not expired", creds: Credentials{AccessKey: "ak", AccessSecret: "sk", Expiration: now.Add(time.Second)}},
		{name: "expired", creds: Credentials{AccessKey: "ak", AccessSecret: "sk", Expiration: now}, wantExpired: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			re.Equal(tt.wantEmpty, tt.creds.Empty())
			re.Equal(tt.wantExpired, tt.creds.Expired(now))
		})
	}
}

func TestEnvironmentVariableCredentialsProvider(t *testing.T) {
	re := require.New(t)

	t.Setenv(EnvAccessKey, "ak")
	t.Setenv(EnvAccessSecret, "sk")
	t.Setenv(EnvSecurityToken, "token")

	creds, err := EnvironmentVariableCredentialsProvider{}.Credentials()
	re.NoError(err)
	re.Equal(Credentials{AccessKey: "ak", AccessSecret: "sk", SecurityToken: "token"}, creds)
}

func TestConfigFileCredentialsProvider(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	path := filepath.Join(t.TempDir(), "credentials")
	p := NewConfigFileCredentialsProvider(path)

	_, err := p.Credentials()
	re.ErrorContains(err, "stat credentials file")

	re.NoError(os.WriteFile(path, []byte(`{"AccessKey": "ak", "AccessSecret": "sk"}`), 0600))
	creds, err := p.Credentials()
	re.NoError(err)
	re.Equal(Credentials{AccessKey: "ak", AccessSecret: "sk"}, creds)

	re.NoError(os.WriteFile(path, []byte(`{"AccessKey": "ak2", "AccessSecret": "sk2", "SecurityToken": "t", "Expiration": "2030-01-01T00:00:00Z"}`), 0600))
	// make sure the modification time moves even on coarse file systems
	later := time.Now().Add(time.Minute)
	re.NoError(os.Chtimes(path, later, later))
	creds, err = p.Credentials()
	re.NoError(err)
	re.Equal("ak2", creds.AccessKey)
	re.Equal("sk2", creds.AccessSecret)
	re.Equal("t", creds.SecurityToken)
	re.True(creds.Expiration.Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))

	re.NoError(os.WriteFile(path, []byte(`{`), 0600))
	re.NoError(os.Chtimes(path, later.Add(time.Minute), later.Add(time.Minute)))
	_, err = p.Credentials()
	re.ErrorContains(err, "read credentials file")
}

func TestDefaultCredentialsFile(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	re.Equal(filepath.Join("rocketmq", "credentials"), filepath.Join(filepath.Base(filepath.Dir(DefaultCredentialsFile())), "credentials"))
	re.Equal(DefaultCredentialsFile(), NewConfigFileCredentialsProvider("").path)
}
