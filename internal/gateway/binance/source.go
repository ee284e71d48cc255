package binance

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"

	"corrwatch/internal/logger"
	"corrwatch/internal/market"
)

const maxKlineLimit = 1000

// Config 描述 Binance Source 运行所需的参数。
type Config struct {
	Quote string // 计价币，缺省 USDT
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Quote == "" {
		out.Quote = "USDT"
	}
	return out
}

// Source 实现 market.Source，基于 Binance 现货日线。
// 榜单没有市值口径，用 24h 成交额近似排序。
type Source struct {
	cfg    Config
	client *binance.Client
}

func New(cfg Config) *Source {
	return &Source{cfg: cfg.withDefaults(), client: binance.NewClient("", "")}
}

func (s *Source) Name() string { return "binance" }

// TopCoins 按 24h 计价币成交额降序取前 limit 个交易对。
func (s *Source) TopCoins(ctx context.Context, limit int) ([]market.CoinInfo, error) {
	if limit <= 0 {
		limit = 100
	}
	stats, err := s.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("拉取 24h 行情失败: %w", err)
	}
	type ranked struct {
		info market.CoinInfo
		vol  float64
	}
	var list []ranked
	for _, st := range stats {
		if st == nil || !strings.HasSuffix(st.Symbol, s.cfg.Quote) {
			continue
		}
		base := strings.TrimSuffix(st.Symbol, s.cfg.Quote)
		if base == "" || isLeveragedToken(base) {
			continue
		}
		vol := parseFloat(st.QuoteVolume)
		list = append(list, ranked{
			info: market.CoinInfo{
				ID:           st.Symbol,
				Symbol:       base,
				Name:         base,
				CurrentPrice: parseFloat(st.LastPrice),
				TotalVolume:  vol,
				Change24h:    parseFloat(st.PriceChangePercent),
			},
			vol: vol,
		})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].vol > list[j].vol })
	if len(list) > limit {
		list = list[:limit]
	}
	out := make([]market.CoinInfo, 0, len(list))
	for i, r := range list {
		r.info.MarketCapRank = i + 1
		out = append(out, r.info)
	}
	logger.Infof("[binance] 榜单共 %d 个 %s 交易对", len(out), s.cfg.Quote)
	return out, nil
}

// DailyHistory 拉取最近 days 根日线，取收盘价构建序列。
func (s *Source) DailyHistory(ctx context.Context, coin market.CoinInfo, days int) (market.Series, error) {
	if coin.ID == "" {
		return market.Series{}, fmt.Errorf("symbol 不能为空")
	}
	if days <= 0 {
		days = 180
	}
	if days > maxKlineLimit {
		days = maxKlineLimit
	}
	klines, err := s.client.NewKlinesService().
		Symbol(coin.ID).
		Interval("1d").
		Limit(days).
		Do(ctx)
	if err != nil {
		return market.Series{}, fmt.Errorf("拉取 %s 日线失败: %w", coin.ID, err)
	}
	points := make([]market.PricePoint, 0, len(klines))
	for _, k := range klines {
		if k == nil {
			continue
		}
		points = append(points, market.PricePoint{
			Date:   time.UnixMilli(k.OpenTime).UTC(),
			Price:  parseFloat(k.Close),
			Volume: parseFloat(k.Volume),
		})
	}
	return market.NewSeries(coin.Symbol, coin.Name, points)
}

// isLeveragedToken 过滤 UP/DOWN/BULL/BEAR 杠杆代币。
func isLeveragedToken(base string) bool {
	for _, suffix := range []string{"UP", "DOWN", "BULL", "BEAR"} {
		if strings.HasSuffix(base, suffix) && len(base) > len(suffix) {
			return true
		}
	}
	return false
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
