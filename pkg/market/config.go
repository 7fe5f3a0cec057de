package market

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"beatai-api/pkg/confkit"
)

// DefaultProviderOrder is the failover order used when no config is supplied:
// generic aggregators first, direct exchanges next, equities fallback last.
var DefaultProviderOrder = []string{"cryptocompare", "coingecko", "bybit", "binance", "mexc", "yahoo"}

// Config describes the ordered provider chain behind the gateway.
type Config struct {
	CallTimeoutRaw string            `yaml:"call_timeout"`
	CallTimeout    time.Duration     `yaml:"-"`
	Providers      []*ProviderConfig `yaml:"providers"`
}

// ProviderConfig configures a single provider. List position is its priority.
type ProviderConfig struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	BaseURL  string   `yaml:"base_url"`
	Hosts    []string `yaml:"hosts"`
	APIKey   string   `yaml:"api_key"`
	Disabled bool     `yaml:"disabled"`

	TimeoutRaw string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
}

// ProviderBuilder constructs a Provider from configuration.
type ProviderBuilder func(cfg *ProviderConfig) (Provider, error)

var (
	providerRegistry   = make(map[string]ProviderBuilder)
	providerRegistryMu sync.RWMutex
)

// RegisterProvider registers a provider constructor under a type name.
func RegisterProvider(typeName string, builder ProviderBuilder) {
	providerRegistryMu.Lock()
	defer providerRegistryMu.Unlock()
	providerRegistry[normaliseType(typeName)] = builder
}

func lookupProviderBuilder(typeName string) (ProviderBuilder, bool) {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	builder, ok := providerRegistry[normaliseType(typeName)]
	return builder, ok
}

func normaliseType(typeName string) string {
	return strings.ToLower(strings.TrimSpace(typeName))
}

// DefaultConfig returns the built-in provider chain with adapter defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	for _, name := range DefaultProviderOrder {
		cfg.Providers = append(cfg.Providers, &ProviderConfig{Name: name, Type: name})
	}
	return cfg
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads market configuration from the default project location and panics on error.
func MustLoad() *Config {
	cfg, err := LoadConfig(confkit.MustProjectPath("etc/market.yaml"))
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read market config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal market config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	c.CallTimeoutRaw = strings.TrimSpace(os.ExpandEnv(c.CallTimeoutRaw))
	if c.CallTimeoutRaw != "" {
		d, err := parsePositiveDuration(c.CallTimeoutRaw)
		if err != nil {
			return fmt.Errorf("market config: call_timeout: %w", err)
		}
		c.CallTimeout = d
	}
	for i, provider := range c.Providers {
		if provider == nil {
			return fmt.Errorf("market config: provider #%d is empty", i)
		}
		provider.expandEnv()
		if provider.Name == "" {
			provider.Name = provider.Type
		}
		if provider.TimeoutRaw != "" {
			d, err := parsePositiveDuration(provider.TimeoutRaw)
			if err != nil {
				return fmt.Errorf("market provider %s: timeout: %w", provider.Name, err)
			}
			provider.Timeout = d
		}
	}
	return nil
}

func (p *ProviderConfig) expandEnv() {
	p.Name = strings.TrimSpace(os.ExpandEnv(p.Name))
	p.Type = normaliseType(os.ExpandEnv(p.Type))
	p.BaseURL = strings.TrimSpace(os.ExpandEnv(p.BaseURL))
	p.APIKey = strings.TrimSpace(os.ExpandEnv(p.APIKey))
	p.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.TimeoutRaw))
	for i, host := range p.Hosts {
		p.Hosts[i] = strings.TrimSpace(os.ExpandEnv(host))
	}
}

func parsePositiveDuration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", d)
	}
	return d, nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Providers))
	enabled := 0
	for _, provider := range c.Providers {
		if provider == nil {
			return fmt.Errorf("market config: provider entry is nil")
		}
		if provider.Type == "" {
			return fmt.Errorf("market config: provider %q must specify type", provider.Name)
		}
		if _, ok := lookupProviderBuilder(provider.Type); !ok {
			return fmt.Errorf("market config: provider %s has unsupported type %q", provider.Name, provider.Type)
		}
		if _, dup := seen[provider.Name]; dup {
			return fmt.Errorf("market config: duplicate provider name %q", provider.Name)
		}
		seen[provider.Name] = struct{}{}
		if !provider.Disabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("market config: providers cannot be empty")
	}
	return nil
}

// BuildProviders instantiates enabled providers, preserving configured order.
func (c *Config) BuildProviders() ([]Provider, error) {
	result := make([]Provider, 0, len(c.Providers))
	for _, providerCfg := range c.Providers {
		if providerCfg.Disabled {
			continue
		}
		builder, ok := lookupProviderBuilder(providerCfg.Type)
		if !ok {
			return nil, fmt.Errorf("market provider %s: unsupported type %q", providerCfg.Name, providerCfg.Type)
		}
		provider, err := builder(providerCfg)
		if err != nil {
			return nil, fmt.Errorf("market provider %s: %w", providerCfg.Name, err)
		}
		result = append(result, provider)
	}
	return result, nil
}

// BuildGateway builds the providers and wraps them in a Gateway.
func (c *Config) BuildGateway() (*Gateway, error) {
	providers, err := c.BuildProviders()
	if err != nil {
		return nil, err
	}
	return NewGateway(providers, WithCallTimeout(c.CallTimeout)), nil
}
