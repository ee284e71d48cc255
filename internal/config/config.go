package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config 运行配置，TOML 文件加载，缺省值见 withDefaults。
type Config struct {
	LogLevel string        `toml:"log_level"`
	Fetch    FetchConfig   `toml:"fetch"`
	Analysis AnalysisConfig `toml:"analysis"`
	Storage  StorageConfig `toml:"storage"`
	Server   ServerConfig  `toml:"server"`
	Report   ReportConfig  `toml:"report"`
}

// FetchConfig 行情拉取配置。
type FetchConfig struct {
	Source      string `toml:"source"` // coingecko | binance
	Top         int    `toml:"top"`
	Days        int    `toml:"days"`
	Concurrency int    `toml:"concurrency"`
	Refresh     bool   `toml:"refresh"` // true 时无视缓存强制重拉
	// ExcludeStablecoins 剔除稳定币，Exclude 为额外黑名单。
	ExcludeStablecoins bool     `toml:"exclude_stablecoins"`
	Exclude            []string `toml:"exclude"`

	CoinGecko CoinGeckoConfig `toml:"coingecko"`
	Binance   BinanceConfig   `toml:"binance"`
}

type CoinGeckoConfig struct {
	BaseURL               string `toml:"base_url"`
	MaxRetries            int    `toml:"max_retries"`
	InitialBackoffSeconds int    `toml:"initial_backoff_seconds"`
	MaxBackoffSeconds     int    `toml:"max_backoff_seconds"`
	PauseMinSeconds       int    `toml:"pause_min_seconds"`
	PauseMaxSeconds       int    `toml:"pause_max_seconds"`
}

type BinanceConfig struct {
	Quote string `toml:"quote"`
}

// AnalysisConfig 离群筛选阈值。
type AnalysisConfig struct {
	CorrelationThreshold float64 `toml:"correlation_threshold"`
	DistanceThreshold    float64 `toml:"distance_threshold"`
}

type StorageConfig struct {
	Database    string `toml:"database"`
	ArtifactDir string `toml:"artifact_dir"`
}

type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type ReportConfig struct {
	Snapshot     bool   `toml:"snapshot"`
	SnapshotPath string `toml:"snapshot_path"`
}

// Load 读取 TOML 配置；path 为空或文件不存在时使用全量缺省值。
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("读取配置失败: %w", err)
			}
		} else if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置失败: %w", err)
		}
	}
	out := cfg.withDefaults()
	return &out, nil
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.LogLevel == "" {
		out.LogLevel = "info"
	}
	if out.Fetch.Source == "" {
		out.Fetch.Source = "coingecko"
	}
	if out.Fetch.Top <= 0 {
		out.Fetch.Top = 100
	}
	if out.Fetch.Days <= 0 {
		out.Fetch.Days = 180
	}
	if out.Fetch.Concurrency <= 0 {
		out.Fetch.Concurrency = 1
	}
	if out.Fetch.CoinGecko.BaseURL == "" {
		out.Fetch.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if out.Fetch.CoinGecko.MaxRetries <= 0 {
		out.Fetch.CoinGecko.MaxRetries = 5
	}
	if out.Fetch.CoinGecko.InitialBackoffSeconds <= 0 {
		out.Fetch.CoinGecko.InitialBackoffSeconds = 10
	}
	if out.Fetch.CoinGecko.MaxBackoffSeconds <= 0 {
		out.Fetch.CoinGecko.MaxBackoffSeconds = 120
	}
	if out.Fetch.CoinGecko.PauseMinSeconds <= 0 {
		out.Fetch.CoinGecko.PauseMinSeconds = 3
	}
	if out.Fetch.CoinGecko.PauseMaxSeconds <= 0 {
		out.Fetch.CoinGecko.PauseMaxSeconds = 5
	}
	if out.Fetch.Binance.Quote == "" {
		out.Fetch.Binance.Quote = "USDT"
	}
	if out.Analysis.CorrelationThreshold == 0 {
		out.Analysis.CorrelationThreshold = 0.3
	}
	if out.Analysis.DistanceThreshold == 0 {
		out.Analysis.DistanceThreshold = 0.3
	}
	if out.Storage.Database == "" {
		out.Storage.Database = "data/corrwatch.db"
	}
	if out.Storage.ArtifactDir == "" {
		out.Storage.ArtifactDir = "analysis_results"
	}
	if out.Server.Addr == "" {
		out.Server.Addr = ":8087"
	}
	if out.Report.SnapshotPath == "" {
		out.Report.SnapshotPath = "analysis_results/dashboard.png"
	}
	return out
}
