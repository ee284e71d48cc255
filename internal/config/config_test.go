package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("空路径应返回缺省配置: %v", err)
	}
	if cfg.Fetch.Top != 100 || cfg.Fetch.Days != 180 {
		t.Fatalf("拉取缺省值错误: %+v", cfg.Fetch)
	}
	if cfg.Analysis.CorrelationThreshold != 0.3 || cfg.Analysis.DistanceThreshold != 0.3 {
		t.Fatalf("阈值缺省值应为 0.3: %+v", cfg.Analysis)
	}
	if cfg.Server.Addr != ":8087" {
		t.Fatalf("服务地址缺省值错误: %s", cfg.Server.Addr)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrwatch.toml")
	body := `
log_level = "debug"

[fetch]
source = "binance"
top = 20
days = 30

[analysis]
correlation_threshold = 0.5
distance_threshold = 0.8
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("写临时配置失败: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if cfg.Fetch.Source != "binance" || cfg.Fetch.Top != 20 || cfg.Fetch.Days != 30 {
		t.Fatalf("覆盖未生效: %+v", cfg.Fetch)
	}
	if cfg.Analysis.CorrelationThreshold != 0.5 || cfg.Analysis.DistanceThreshold != 0.8 {
		t.Fatalf("阈值覆盖未生效: %+v", cfg.Analysis)
	}
	// 未覆盖的字段仍应回填缺省值
	if cfg.Fetch.CoinGecko.MaxRetries != 5 {
		t.Fatalf("缺省回填失败: %+v", cfg.Fetch.CoinGecko)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("文件不存在应回退缺省值: %v", err)
	}
	if cfg.Fetch.Source != "coingecko" {
		t.Fatalf("缺省数据源应为 coingecko: %s", cfg.Fetch.Source)
	}
}
