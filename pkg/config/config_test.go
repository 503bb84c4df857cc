package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/AutoMQ/rocketmq-client/pkg/auth"
	"github.com/AutoMQ/rocketmq-client/pkg/route"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/codec/format"
	"github.com/AutoMQ/rocketmq-client/pkg/util/testutil"
	"github.com/AutoMQ/rocketmq-client/pkg/util/typeutil"
)

const _testConfigToml = `
endpoint = "10.0.0.1:8081,10.0.0.2:8081"
arn = "MQ_INST_1"
tenantID = "tenant-from-file"
region = "cn-hangzhou"
ioTimeout = "5s"
format = "json"

[log]
level = "WARN"

[log.zap]
encoding = "console"

[producer]
maxAttempts = 5
routeRefreshInterval = "1m"

[fault]
enable = false
multiplier = 3.0

[worker]
capacity = 16
`

func writeFile(tb testing.TB, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(tb, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNewConfig(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "rocketmq.toml", _testConfigToml)

	type want struct {
		endpoint    string
		tenantID    string
		region      string
		ioTimeout   time.Duration
		format      string
		level       zapcore.Level
		encoding    string
		maxAttempts int
		refresh     time.Duration
		fault       bool
		multiplier  float64
		capacity    int32
		names       []string
	}
	tests := []struct {
		name      string
		arguments []string
		want      want
		wantErr   bool
		errMsg    string
	}{
		{
			name:      "default config",
			arguments: []string{},
			want: want{
				ioTimeout:   3 * time.Second,
				format:      "protobuf",
				level:       zapcore.InfoLevel,
				encoding:    "json",
				maxAttempts: 3,
				refresh:     30 * time.Second,
				fault:       true,
				multiplier:  2,
				capacity:    64,
				names:       []string{},
			},
		},
		{
			name: "config from command line",
			arguments: []string{
				"--endpoint=127.0.0.1:8081",
				"--tenant-id=test-tenant",
				"--region=test-region",
				"--io-timeout=1h1m1s",
				"--format=flatbuffer",
				"--log-level=DEBUG",
				"--producer-max-attempts=7",
				"--producer-route-refresh-interval=10s",
				"--fault-enable=false",
				"--fault-multiplier=1.5",
				"--worker-capacity=8",
				"--tls-authorized-names=a,b",
			},
			want: want{
				endpoint:    "127.0.0.1:8081",
				tenantID:    "test-tenant",
				region:      "test-region",
				ioTimeout:   time.Hour + time.Minute + time.Second,
				format:      "flatbuffer",
				level:       zapcore.DebugLevel,
				encoding:    "json",
				maxAttempts: 7,
				refresh:     10 * time.Second,
				fault:       false,
				multiplier:  1.5,
				capacity:    8,
				names:       []string{"a", "b"},
			},
		},
		{
			name:      "config from toml file",
			arguments: []string{"--config=" + file},
			want: want{
				endpoint:    "10.0.0.1:8081,10.0.0.2:8081",
				tenantID:    "tenant-from-file",
				region:      "cn-hangzhou",
				ioTimeout:   5 * time.Second,
				format:      "json",
				level:       zapcore.WarnLevel,
				encoding:    "console",
				maxAttempts: 5,
				refresh:     time.Minute,
				fault:       false,
				multiplier:  3,
				capacity:    16,
				names:       []string{},
			},
		},
		{
			name:      "command line overrides file",
			arguments: []string{"--config=" + file, "--tenant-id=from-flag", "--producer-max-attempts=2"},
			want: want{
				endpoint:    "10.0.0.1:8081,10.0.0.2:8081",
				tenantID:    "from-flag",
				region:      "cn-hangzhou",
				ioTimeout:   5 * time.Second,
				format:      "json",
				level:       zapcore.WarnLevel,
				encoding:    "console",
				maxAttempts: 2,
				refresh:     time.Minute,
				fault:       false,
				multiplier:  3,
				capacity:    16,
				names:       []string{},
			},
		},
		{
			name:      "unknown flag",
			arguments: []string{"--no-such-flag"},
			wantErr:   true,
			errMsg:    "unknown flag",
		},
		{
			name:      "missing config file",
			arguments: []string{"--config=" + filepath.Join(dir, "missing.toml")},
			wantErr:   true,
			errMsg:    "read configuration file",
		},
		{
			name:      "invalid log level",
			arguments: []string{"--log-level=BAD"},
			wantErr:   true,
			errMsg:    "adjust log config",
		},
		{
			name:      "invalid duration",
			arguments: []string{"--io-timeout=3ks"},
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			cfg, err := NewConfig(tt.arguments, io.Discard)
			if tt.wantErr {
				re.Error(err)
				if tt.errMsg != "" {
					re.ErrorContains(err, tt.errMsg)
				}
				return
			}
			re.NoError(err)
			re.NotNil(cfg.Logger())

			re.Equal(tt.want.endpoint, cfg.Endpoint)
			re.Equal(tt.want.tenantID, cfg.TenantID)
			re.Equal(tt.want.region, cfg.Region)
			re.Equal(tt.want.ioTimeout, cfg.IOTimeout.Duration)
			re.Equal(tt.want.format, cfg.Format)
			re.Equal(tt.want.level, cfg.Log.Zap.Level.Level())
			re.Equal(tt.want.encoding, cfg.Log.Zap.Encoding)
			re.Equal(tt.want.maxAttempts, cfg.Producer.MaxAttempts)
			re.Equal(tt.want.refresh, cfg.Producer.RouteRefreshInterval.Duration)
			re.Equal(tt.want.fault, cfg.Fault.Enable)
			re.Equal(tt.want.multiplier, cfg.Fault.Multiplier)
			re.Equal(tt.want.capacity, cfg.Worker.Capacity)
			re.ElementsMatch(tt.want.names, cfg.TLS.AuthorizedNames)
		})
	}
}

func TestNewConfig_Env(t *testing.T) {
	re := require.New(t)
	t.Setenv("ROCKETMQ_REGION", "region-from-env")
	t.Setenv("ROCKETMQ_PRODUCER_MAXATTEMPTS", "9")

	cfg, err := NewConfig([]string{"--producer-max-attempts=4"}, io.Discard)
	re.NoError(err)
	re.Equal("region-from-env", cfg.Region)
	// flags set on the command line win
	re.Equal(4, cfg.Producer.MaxAttempts)
}

func TestNewConfig_Durations(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	file := writeFile(t, t.TempDir(), "rocketmq.toml", `
ioTimeout = "750ms"

[fault]
initialIsolation = "2s"
maxIsolation = "5m"

[producer]
routeRefreshInterval = "45s"
`)
	cfg, err := NewConfig([]string{"--config=" + file}, io.Discard)
	re.NoError(err)
	re.NoError(cfg.Adjust())
	re.NoError(cfg.Validate())
	re.Equal(750*time.Millisecond, cfg.IOTimeout.Duration)
	re.Equal(2*time.Second, cfg.Fault.InitialIsolation.Duration)
	re.Equal(5*time.Minute, cfg.Fault.MaxIsolation.Duration)
	re.Equal(45*time.Second, cfg.Producer.RouteRefreshInterval.Duration)

	file = writeFile(t, t.TempDir(), "rocketmq.toml", `ioTimeout = "soon"`)
	_, err = NewConfig([]string{"--config=" + file}, io.Discard)
	re.ErrorContains(err, "unmarshal configuration")
}

func TestNewConfig_Args(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	cfg, err := NewConfig([]string{"--endpoint=127.0.0.1:8081", "TopicA", "hello"}, io.Discard)
	re.NoError(err)
	re.Equal("127.0.0.1:8081", cfg.Endpoint)
	re.Equal([]string{"TopicA", "hello"}, cfg.Args())

	cfg, err = NewConfig(nil, io.Discard)
	re.NoError(err)
	re.Empty(cfg.Args())
}

func TestConfig_Validate(t *testing.T) {
	valid := func(tb testing.TB) *Config {
		c := &Config{
			TLS:         &TLS{},
			Credentials: &Credentials{},
			Fault:       &Fault{},
			Producer:    &Producer{},
			Worker:      &Worker{},
			Endpoint:    "127.0.0.1:8081",
		}
		require.NoError(tb, c.Adjust())
		return c
	}
	tests := []struct {
		name   string
		modify func(c *Config)
		errMsg string
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "empty endpoint", modify: func(c *Config) { c.Endpoint = "" }, errMsg: "invalid endpoint"},
		{name: "bad endpoint", modify: func(c *Config) { c.Endpoint = "no-port" }, errMsg: "invalid endpoint"},
		{name: "negative timeout", modify: func(c *Config) { c.IOTimeout = typeutil.NewDuration(-time.Second) }, errMsg: "invalid io timeout"},
		{name: "bad format", modify: func(c *Config) { c.Format = "xml" }, errMsg: "invalid format"},
		{name: "half key pair", modify: func(c *Config) { c.TLS.Enable = true; c.TLS.CertFile = "cert.pem" }, errMsg: "must be set together"},
		{name: "half key pair without tls", modify: func(c *Config) { c.TLS.CertFile = "cert.pem" }},
		{name: "static without secret", modify: func(c *Config) { c.Credentials.AccessKey = "ak" }, errMsg: "access secret"},
		{name: "unknown provider", modify: func(c *Config) { c.Credentials.Provider = "vault" }, errMsg: "unknown credentials provider"},
		{name: "max below initial", modify: func(c *Config) { c.Fault.MaxIsolation = typeutil.NewDuration(time.Millisecond) }, errMsg: "max isolation"},
		{name: "small multiplier", modify: func(c *Config) { c.Fault.Multiplier = 0.5 }, errMsg: "invalid multiplier"},
		{name: "no attempts", modify: func(c *Config) { c.Producer.MaxAttempts = -1 }, errMsg: "invalid max attempts"},
		{name: "negative capacity", modify: func(c *Config) { c.Worker.Capacity = -1 }, errMsg: "invalid worker capacity"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			c := valid(t)
			tt.modify(c)
			err := c.Validate()
			if tt.errMsg != "" {
				re.ErrorContains(err, tt.errMsg)
				return
			}
			re.NoError(err)
		})
	}
}

func TestConfig_Adjust(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	c := &Config{
		TLS:         &TLS{AuthorizedNames: []string{"", "broker", ""}},
		Credentials: &Credentials{},
		Fault:       &Fault{},
		Producer:    &Producer{},
		Worker:      &Worker{},
	}
	re.NoError(c.Adjust())
	re.Equal("MQ", c.ServiceName)
	re.Equal(3*time.Second, c.IOTimeout.Duration)
	re.Equal("protobuf", c.Format)
	re.Equal([]string{"broker"}, c.TLS.AuthorizedNames)
	re.Equal(time.Second, c.Fault.InitialIsolation.Duration)
	re.Equal(time.Minute, c.Fault.MaxIsolation.Duration)
	re.Equal(2.0, c.Fault.Multiplier)
	re.Equal(3, c.Producer.MaxAttempts)
	re.Equal(30*time.Second, c.Producer.RouteRefreshInterval.Duration)
	re.Equal(int32(64), c.Worker.Capacity)
}

func TestConfig_PoolOptions(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	m := testutil.NewTLSMaterial(t)
	dir := t.TempDir()
	c := &Config{
		TLS: &TLS{
			Enable:          true,
			CAFile:          writeFile(t, dir, "ca.pem", string(m.CAPEM)),
			CertFile:        writeFile(t, dir, "client.pem", string(m.ClientCertPEM)),
			KeyFile:         writeFile(t, dir, "client-key.pem", string(m.ClientKeyPEM)),
			ServerName:      "localhost",
			AuthorizedNames: []string{testutil.ServerCommonName},
		},
		Credentials: &Credentials{},
		Fault:       &Fault{},
		Producer:    &Producer{},
		Worker:      &Worker{Capacity: 4},
		Format:      "json",
		IOTimeout:   typeutil.NewDuration(time.Second),
	}

	opts, err := c.PoolOptions()
	re.NoError(err)
	re.Equal(time.Second, opts.Timeout)
	re.Equal(int32(4), opts.WorkerCapacity)
	re.Equal(format.JSON(), opts.Channel.Format)
	re.NotNil(opts.Channel.TLS)
	re.Equal(m.CAPEM, opts.Channel.TLS.RootCAs)
	re.Len(opts.Channel.TLS.Identities, 1)
	re.NotNil(opts.Channel.TLS.Checker)
	_, err = opts.Channel.TLS.Config()
	re.NoError(err)

	c.TLS.Enable = false
	opts, err = c.PoolOptions()
	re.NoError(err)
	re.Nil(opts.Channel.TLS)

	c.TLS.Enable = true
	c.TLS.CAFile = filepath.Join(dir, "missing.pem")
	_, err = c.PoolOptions()
	re.ErrorContains(err, "root certificates")
}

func TestConfig_SignConfig(t *testing.T) {
	tests := []struct {
		name        string
		credentials Credentials
		want        interface{}
	}{
		{name: "none", credentials: Credentials{Provider: ProviderNone}, want: nil},
		{name: "default", credentials: Credentials{}, want: &auth.ConfigFileCredentialsProvider{}},
		{name: "static", credentials: Credentials{AccessKey: "ak", AccessSecret: "sk"}, want: &auth.StaticCredentialsProvider{}},
		{name: "env", credentials: Credentials{Provider: ProviderEnv}, want: auth.EnvironmentVariableCredentialsProvider{}},
		{name: "file", credentials: Credentials{File: "credentials.json"}, want: &auth.ConfigFileCredentialsProvider{}},
		{name: "default file", credentials: Credentials{Provider: ProviderFile}, want: &auth.ConfigFileCredentialsProvider{}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			c := &Config{Credentials: &tt.credentials, Arn: "MQ_INST_1", Region: "r", ServiceName: "MQ"}
			sc, err := c.SignConfig()
			re.NoError(err)
			re.Equal("MQ_INST_1", sc.Arn)
			re.Equal("r", sc.Region)
			if tt.want == nil {
				re.Nil(sc.Provider)
				return
			}
			re.IsType(tt.want, sc.Provider)
		})
	}
}

func TestNewConfig_DefaultCredentials(t *testing.T) {
	re := require.New(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := NewConfig([]string{"--endpoint=127.0.0.1:8081"}, io.Discard)
	re.NoError(err)
	re.NoError(cfg.Adjust())
	re.NoError(cfg.Validate())
	sc, err := cfg.SignConfig()
	re.NoError(err)
	re.IsType(&auth.ConfigFileCredentialsProvider{}, sc.Provider)

	// signing fails loudly until the default file exists
	md := make(map[string]string)
	re.Error(auth.Sign(sc, md))
	re.Empty(md)

	re.NoError(os.MkdirAll(filepath.Join(home, "rocketmq"), 0o755))
	re.NoError(os.WriteFile(filepath.Join(home, "rocketmq", "credentials"), []byte(`{"AccessKey": "ak", "AccessSecret": "sk"}`), 0o600))
	re.NoError(auth.Sign(sc, md))
	re.Contains(md[auth.HeaderAuthorization], "Credential=ak/")

	cfg, err = NewConfig([]string{"--endpoint=127.0.0.1:8081", "--credentials-provider=none"}, io.Discard)
	re.NoError(err)
	re.NoError(cfg.Adjust())
	re.NoError(cfg.Validate())
	sc, err = cfg.SignConfig()
	re.NoError(err)
	re.Nil(sc.Provider)
}

func TestConfig_NameServer(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	c := &Config{Endpoint: "10.0.0.1:8081, 10.0.0.2:8081"}
	ns, err := c.NameServer()
	re.NoError(err)
	re.Equal(route.IPv4, ns.Scheme())
	re.Len(ns.Addresses(), 2)

	c.Endpoint = "ns.rocketmq.test:9876"
	ns, err = c.NameServer()
	re.NoError(err)
	re.Equal(route.DomainName, ns.Scheme())
	re.Equal("dns:///ns.rocketmq.test:9876", ns.Target())
}

func TestFault_Tracker(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	f := &Fault{}
	f.Adjust()
	re.Nil(f.Tracker())

	f.Enable = true
	tracker := f.Tracker()
	re.NotNil(tracker)
	re.Equal(time.Second, tracker.ReportFailure("broker-0"))
	re.False(tracker.Available("broker-0"))
}
