package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
market:
  api_key: "k"
  api_secret: "s"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, "ETHUSDT", cfg.Market.CleanSymbol())
	assert.Equal(t, "5m", cfg.Market.FastInterval)
	assert.Equal(t, "1h", cfg.Market.SlowInterval)
	assert.Equal(t, 0.006, cfg.Strategy.BaseRiskPct)
	assert.Equal(t, 4, cfg.Strategy.MaxAdds)
	assert.Equal(t, 0.80, cfg.Strategy.AddSizeDecay)
	assert.Equal(t, 0.30, cfg.Strategy.ExposureCapNotionalPct)
	assert.Equal(t, 200, cfg.Strategy.EMAPeriod)
	assert.Equal(t, 18.0, cfg.Strategy.ADXTrendMin)
	assert.Equal(t, 90*time.Second, cfg.Strategy.UnfilledTimeout())
	assert.Equal(t, 10*time.Minute, cfg.Strategy.DataMaxAge())
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
market:
  symbol: "BTC/USDT"
  base_asset: "BTC"
  quote_asset: "USDT"
strategy:
  base_risk_pct: 0.004
  max_adds: 2
tick:
  interval: "15m"
`))
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", cfg.Market.CleanSymbol())
	assert.Equal(t, 0.004, cfg.Strategy.BaseRiskPct)
	assert.Equal(t, 2, cfg.Strategy.MaxAdds)
	assert.Equal(t, "15m", cfg.Tick.Interval)
}

func TestLoadRejectsOutOfRangeValues(t *testing.T) {
	cases := map[string]string{
		"risk above one": `
strategy:
  base_risk_pct: 1.5
`,
		"unsupported exchange": `
market:
  exchange: "kraken"
`,
		"candle limit too small": `
market:
  candle_limit: 100
`,
		"bad log level": `
app:
  log_level: "verbose"
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParamMappers(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	rp := cfg.Strategy.RiskParams()
	assert.Equal(t, cfg.Strategy.BaseRiskPct, rp.BaseRiskPct)
	assert.Equal(t, cfg.Strategy.MaxAdds, rp.MaxAdds)

	sp := cfg.Strategy.SignalParams()
	assert.Equal(t, cfg.Strategy.DonchianPeriod, sp.DonchianPeriod)
	assert.Equal(t, cfg.Strategy.TrendTPATR, sp.TrendTPATR)

	ip := cfg.Strategy.InventoryParams()
	assert.Equal(t, cfg.Strategy.TargetAllocPct, ip.TargetAllocPct)
}
