package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/AutoMQ/rocketmq-client/pkg/auth"
	"github.com/AutoMQ/rocketmq-client/pkg/route"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/client"
	"github.com/AutoMQ/rocketmq-client/pkg/rpc/codec/format"
	"github.com/AutoMQ/rocketmq-client/pkg/util/typeutil"
)

var (
	_defaultConfigFilePaths = []string{".", "$CONFIG_DIR/"}
)

const (
	_envPrefix = "ROCKETMQ"

	_defaultServiceName = "MQ"
	_defaultIOTimeout   = 3 * time.Second
	_defaultFormat      = "protobuf"
)

// Config is the configuration of a client.
type Config struct {
	Log         *Log
	TLS         *TLS
	Credentials *Credentials
	Fault       *Fault
	Producer    *Producer
	Worker      *Worker

	// Endpoint is the name server, a comma-separated list of host:port.
	Endpoint    string
	Arn         string
	TenantID    string
	Region      string
	ServiceName string
	IOTimeout   typeutil.Duration
	Format      string

	args []string
	lg   *zap.Logger
}

// NewConfig loads the configuration from, in order of precedence, command line arguments,
// environment variables prefixed with ROCKETMQ_, and the file named by --config.
// Usage and parse errors are written to errOutput.
func NewConfig(arguments []string, errOutput io.Writer) (*Config, error) {
	cfg := &Config{}
	cfg.Log = NewLog()
	cfg.TLS = &TLS{}
	cfg.Credentials = &Credentials{}
	cfg.Fault = &Fault{}
	cfg.Producer = &Producer{}
	cfg.Worker = &Worker{}

	v := newViper()
	fs := newFlagSet(errOutput)
	configure(v, fs)

	// parse from command line
	fs.String("config", "", "configuration file")
	err := fs.Parse(arguments)
	if err != nil {
		return nil, err
	}
	cfg.args = fs.Args()

	// read configuration from file
	c, _ := fs.GetString("config")
	v.SetConfigFile(c)
	err = v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "read configuration file")
		}
	}

	err = v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal configuration")
	}

	// new and set logger (first thing after configuration loaded)
	err = cfg.Log.Adjust()
	if err != nil {
		return nil, errors.Wrap(err, "adjust log config")
	}
	logger, err := cfg.Log.Logger()
	if err != nil {
		return nil, errors.Wrap(err, "create logger")
	}
	cfg.lg = logger

	if configFile := v.ConfigFileUsed(); configFile != "" {
		logger.Debug("load configuration from file", zap.String("file-name", configFile))
	}

	return cfg, nil
}

// Adjust fills defaults for the fields left empty.
func (c *Config) Adjust() error {
	if c.ServiceName == "" {
		c.ServiceName = _defaultServiceName
	}
	if c.IOTimeout.Duration == 0 {
		c.IOTimeout = typeutil.NewDuration(_defaultIOTimeout)
	}
	if c.Format == "" {
		c.Format = _defaultFormat
	}
	c.TLS.AuthorizedNames = typeutil.FilterZero(c.TLS.AuthorizedNames)
	c.Fault.Adjust()
	c.Producer.Adjust()
	c.Worker.Adjust()
	return nil
}

// Validate checks whether the configuration is valid. It should be called after Adjust.
func (c *Config) Validate() error {
	if _, err := c.NameServer(); err != nil {
		return errors.Wrapf(err, "invalid endpoint `%s`", c.Endpoint)
	}
	if c.IOTimeout.Duration < 0 {
		return errors.Errorf("invalid io timeout `%s`", c.IOTimeout)
	}
	if _, err := format.Parse(c.Format); err != nil {
		return errors.Wrap(err, "invalid format")
	}
	if err := c.TLS.Validate(); err != nil {
		return errors.Wrap(err, "validate tls config")
	}
	if err := c.Credentials.Validate(); err != nil {
		return errors.Wrap(err, "validate credentials config")
	}
	if err := c.Fault.Validate(); err != nil {
		return errors.Wrap(err, "validate fault config")
	}
	if err := c.Producer.Validate(); err != nil {
		return errors.Wrap(err, "validate producer config")
	}
	if err := c.Worker.Validate(); err != nil {
		return errors.Wrap(err, "validate worker config")
	}
	return nil
}

// Logger returns the logger built from Log.
func (c *Config) Logger() *zap.Logger {
	if c != nil {
		return c.lg
	}
	return nil
}

// Args returns the arguments left after the flags.
func (c *Config) Args() []string {
	return c.args
}

// NameServer parses Endpoint.
func (c *Config) NameServer() (route.ServiceAddress, error) {
	return route.ParseServiceAddress(c.Endpoint)
}

// SignConfig returns the settings used to sign every request.
func (c *Config) SignConfig() (auth.SignConfig, error) {
	provider, err := c.Credentials.CredentialsProvider()
	if err != nil {
		return auth.SignConfig{}, err
	}
	return auth.SignConfig{
		Arn:         c.Arn,
		TenantID:    c.TenantID,
		Region:      c.Region,
		ServiceName: c.ServiceName,
		Provider:    provider,
	}, nil
}

// PoolOptions returns the options of the client pool.
func (c *Config) PoolOptions() (client.PoolOptions, error) {
	f, err := format.Parse(c.Format)
	if err != nil {
		return client.PoolOptions{}, err
	}
	tlsOptions, err := c.TLS.Options()
	if err != nil {
		return client.PoolOptions{}, errors.WithMessage(err, "tls options")
	}
	return client.PoolOptions{
		Channel: client.ChannelOptions{
			TLS:    tlsOptions,
			Format: f,
		},
		Timeout:        c.IOTimeout.Duration,
		WorkerCapacity: c.Worker.Capacity,
	}, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix(_envPrefix)
	v.AutomaticEnv()
	for _, filePath := range _defaultConfigFilePaths {
		v.AddConfigPath(filePath)
	}
	return v
}

func newFlagSet(errOutput io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("rocketmq", pflag.ContinueOnError)
	fs.SetOutput(errOutput)
	return fs
}

func configure(v *viper.Viper, fs *pflag.FlagSet) {
	fs.String("endpoint", "", "name server endpoints, e.g. 127.0.0.1:8081,127.0.0.1:8082")
	fs.String("arn", "", "resource namespace of topics and groups")
	fs.String("tenant-id", "", "tenant id sent with every request")
	fs.String("region", "", "region of the credentials, used in signatures")
	fs.String("service-name", _defaultServiceName, "service name used in signatures")
	fs.Duration("io-timeout", _defaultIOTimeout, "default deadline of a call")
	fs.String("format", _defaultFormat, "wire format of messages, one of: protobuf|flatbuffer|json")
	_ = v.BindPFlag("endpoint", fs.Lookup("endpoint"))
	_ = v.BindPFlag("arn", fs.Lookup("arn"))
	_ = v.BindPFlag("tenantID", fs.Lookup("tenant-id"))
	_ = v.BindPFlag("region", fs.Lookup("region"))
	_ = v.BindPFlag("serviceName", fs.Lookup("service-name"))
	_ = v.BindPFlag("ioTimeout", fs.Lookup("io-timeout"))
	_ = v.BindPFlag("format", fs.Lookup("format"))

	logConfigure(v, fs)
	tlsConfigure(v, fs)
	credentialsConfigure(v, fs)
	faultConfigure(v, fs)
	producerConfigure(v, fs)
	workerConfigure(v, fs)
}

func readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read file `%s`", path)
	}
	return b, nil
}
