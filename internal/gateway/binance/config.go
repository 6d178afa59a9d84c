package binance

import "time"

// Config describes the Binance spot REST connection.
type Config struct {
	APIKey          string
	APISecret       string
	RESTBaseURL     string
	RESTProxyURL    string
	ProxyEnabled    bool
	HTTPTimeout     time.Duration
	DefaultTakerFee float64
}

func (c Config) withDefaults() Config {
	if c.RESTBaseURL == "" {
		c.RESTBaseURL = "https://api.binance.com"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	if c.DefaultTakerFee <= 0 {
		c.DefaultTakerFee = 0.001
	}
	return c
}
