package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"corrwatch/internal/analysis"
	"corrwatch/internal/charts"
	"corrwatch/internal/coins"
	"corrwatch/internal/config"
	"corrwatch/internal/gateway/binance"
	"corrwatch/internal/gateway/coingecko"
	"corrwatch/internal/logger"
	"corrwatch/internal/market"
	"corrwatch/internal/pipeline"
	"corrwatch/internal/report"
	"corrwatch/internal/store"
	httpapi "corrwatch/internal/transport/http"
)

func main() {
	configPath := flag.String("config", "config.toml", "TOML 配置文件路径")
	serve := flag.Bool("serve", false, "分析完成后启动仪表盘（覆盖配置）")
	flag.Parse()

	if err := run(*configPath, *serve); err != nil {
		logger.Errorf("corrwatch 退出: %v", err)
		os.Exit(1)
	}
}

func run(configPath string, forceServe bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	logger.Infof("数据源: %s, top=%d, days=%d", src.Name(), cfg.Fetch.Top, cfg.Fetch.Days)

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Database), 0o755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}
	cache, err := store.OpenSeriesStore(cfg.Storage.Database)
	if err != nil {
		return err
	}
	defer cache.Close()

	csvStore, err := store.NewCSVStore(cfg.Storage.ArtifactDir)
	if err != nil {
		return err
	}
	artifacts := store.NewTeeStore(store.NewMemoryStore(), csvStore)

	runner, err := pipeline.NewRunner(pipeline.Params{
		Source:      src,
		Cache:       cache,
		Artifacts:   artifacts,
		Filter:      coins.NewFilter(cfg.Fetch.ExcludeStablecoins, cfg.Fetch.Exclude),
		Top:         cfg.Fetch.Top,
		Days:        cfg.Fetch.Days,
		Concurrency: cfg.Fetch.Concurrency,
		Refresh:     cfg.Fetch.Refresh,
		Thresholds: analysis.Thresholds{
			Correlation: cfg.Analysis.CorrelationThreshold,
			Distance:    cfg.Analysis.DistanceThreshold,
		},
	})
	if err != nil {
		return err
	}

	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	renderer, err := charts.NewRenderer(cfg.Storage.ArtifactDir)
	if err != nil {
		return err
	}
	renderer.RenderAll(res.Ranking, res.Divergence.Records, res.Payload, analysis.Thresholds{
		Correlation: cfg.Analysis.CorrelationThreshold,
		Distance:    cfg.Analysis.DistanceThreshold,
	})

	report.PrintSummary(os.Stdout, res.Summaries, 20)
	report.PrintOutliers(os.Stdout, res.Outliers)

	if !forceServe && !cfg.Server.Enabled {
		return nil
	}

	server, err := httpapi.NewServer(httpapi.Config{Addr: cfg.Server.Addr})
	if err != nil {
		return err
	}
	server.Publish(res)
	logger.Infof("仪表盘: http://localhost%s", cfg.Server.Addr)

	if cfg.Report.Snapshot {
		go func() {
			// 等服务起来再截图
			time.Sleep(2 * time.Second)
			url := "http://localhost" + cfg.Server.Addr
			if err := report.CaptureDashboard(ctx, url, cfg.Report.SnapshotPath, 30*time.Second); err != nil {
				logger.Warnf("仪表盘截图失败(忽略): %v", err)
			} else {
				logger.Infof("仪表盘截图已保存: %s", cfg.Report.SnapshotPath)
			}
		}()
	}

	return server.Start(ctx)
}

func newSource(cfg *config.Config) (market.Source, error) {
	switch cfg.Fetch.Source {
	case "coingecko":
		return coingecko.New(coingecko.Config{
			BaseURL:        cfg.Fetch.CoinGecko.BaseURL,
			MaxRetries:     cfg.Fetch.CoinGecko.MaxRetries,
			InitialBackoff: time.Duration(cfg.Fetch.CoinGecko.InitialBackoffSeconds) * time.Second,
			MaxBackoff:     time.Duration(cfg.Fetch.CoinGecko.MaxBackoffSeconds) * time.Second,
			PauseMin:       time.Duration(cfg.Fetch.CoinGecko.PauseMinSeconds) * time.Second,
			PauseMax:       time.Duration(cfg.Fetch.CoinGecko.PauseMaxSeconds) * time.Second,
		}), nil
	case "binance":
		return binance.New(binance.Config{Quote: cfg.Fetch.Binance.Quote}), nil
	default:
		return nil, fmt.Errorf("未知数据源: %s", cfg.Fetch.Source)
	}
}
