package config

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"
	"github.com/willie68/go_mapview/configs"
	"github.com/willie68/go_mapview/internal/download"
	"github.com/willie68/go_mapview/internal/logging"
	"github.com/willie68/go_mapview/internal/mapview"
	"github.com/willie68/go_mapview/internal/measurement"
	"github.com/willie68/go_mapview/internal/model"
	"github.com/willie68/go_mapview/internal/provider"
	"github.com/willie68/go_mapview/internal/shttp"
	"go.yaml.in/yaml/v3"
)

type Config struct {
	Port       int                  `yaml:"port"`
	HealthPort int                  `yaml:"healthport"`
	Logging    logging.Config       `yaml:"logging"`
	HTTP       download.HTTPOptions `yaml:"http"`
	Providers  provider.ConfigMap   `yaml:"providers"`
	View       mapview.Config       `yaml:"view"`
	Metrics    measurement.Config   `yaml:"metrics"`
}

var (
	config = Default()
)

// Default the embedded default config
func Default() Config {
	c := Config{HTTP: download.DefaultHTTPOptions()}
	if err := yaml.Unmarshal([]byte(configs.ConfigFile), &c); err != nil {
		panic(fmt.Sprintf("embedded config is invalid: %v", err))
	}
	return c
}

// Parameter overwrites a config value, e.g. from the command line
type Parameter func(c *Config)

// WithPort sets the port, 0 keeps the configured one
func WithPort(port int) Parameter {
	return func(c *Config) {
		if port > 0 {
			c.Port = port
		}
	}
}

// WithProvider selects the provider of the view, empty keeps the configured one
func WithProvider(name string) Parameter {
	return func(c *Config) {
		if name != "" {
			c.View.Provider = name
		}
	}
}

// WithPosition sets the live position of the view
func WithPosition(pos *model.Position) Parameter {
	return func(c *Config) {
		if pos != nil {
			c.View.Position = *pos
		}
	}
}

func SetParameter(params ...Parameter) {
	for _, p := range params {
		p(&config)
	}
}

// Get a copy of the actual config
func Get() Config {
	return config
}

func JSON() string {
	js, err := config.JSON()
	if err != nil {
		return ""
	}
	return js
}

// Load loads the config, values missing in the file keep their defaults
func Load(file string) error {
	_, err := os.Stat(file)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("can't load config file: %s", err.Error())
	}

	c := Default()
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return fmt.Errorf("can't unmarshal config file: %s", err.Error())
	}
	if err := c.Validate(); err != nil {
		return err
	}
	config = c
	return nil
}

// Validate checks the references between the sections
func (c *Config) Validate() error {
	if c.View.Provider == "" {
		return nil
	}
	if _, ok := c.Providers[c.View.Provider]; !ok {
		return fmt.Errorf("view provider %q is not configured", c.View.Provider)
	}
	return nil
}

func Init(inj do.Injector) {
	do.ProvideValue(inj, &config)

	ver := NewVersion()
	do.ProvideValue(inj, *ver)
}

func (c *Config) JSON() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("can't marshal config to json: %s", err.Error())
	}
	return string(data), nil
}

func (c *Config) GetLoggingConfig() logging.Config {
	return c.Logging
}

func (c *Config) GetHTTPConfig() download.HTTPOptions {
	return c.HTTP
}

func (c *Config) GetProviderConfig() provider.ConfigMap {
	return c.Providers
}

func (c *Config) GetViewConfig() mapview.Config {
	return c.View
}

func (c *Config) GetMetricsConfig() measurement.Config {
	return c.Metrics
}

func (c *Config) GetServerConfig() shttp.Config {
	return shttp.Config{Port: c.Port, HealthPort: c.HealthPort}
}
