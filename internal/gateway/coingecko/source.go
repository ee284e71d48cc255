package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"corrwatch/internal/logger"
	"corrwatch/internal/market"
)

// Config 描述 CoinGecko Source 运行所需的参数。
type Config struct {
	BaseURL        string
	HTTPTimeout    time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// 相邻两次历史请求之间的礼貌停顿区间，免费档限流很紧。
	PauseMin time.Duration
	PauseMax time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 30 * time.Second
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = 5
	}
	if out.InitialBackoff <= 0 {
		out.InitialBackoff = 10 * time.Second
	}
	if out.MaxBackoff <= 0 {
		out.MaxBackoff = 120 * time.Second
	}
	if out.PauseMin <= 0 {
		out.PauseMin = 3 * time.Second
	}
	if out.PauseMax < out.PauseMin {
		out.PauseMax = out.PauseMin + 2*time.Second
	}
	return out
}

// Source 实现 market.Source，对接 CoinGecko 免费 REST API。
type Source struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Source {
	final := cfg.withDefaults()
	return &Source{
		cfg:        final,
		httpClient: &http.Client{Timeout: final.HTTPTimeout},
	}
}

func (s *Source) Name() string { return "coingecko" }

// TopCoins 拉取按市值排序的榜单快照。
func (s *Source) TopCoins(ctx context.Context, limit int) ([]market.CoinInfo, error) {
	if limit <= 0 {
		limit = 100
	}
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", fmt.Sprintf("%d", limit))
	q.Set("page", "1")
	q.Set("sparkline", "false")
	body, err := s.getWithRetry(ctx, s.cfg.BaseURL+"/coins/markets?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("拉取榜单失败: %w", err)
	}
	var raw []struct {
		ID            string  `json:"id"`
		Symbol        string  `json:"symbol"`
		Name          string  `json:"name"`
		CurrentPrice  float64 `json:"current_price"`
		MarketCap     float64 `json:"market_cap"`
		MarketCapRank int     `json:"market_cap_rank"`
		TotalVolume   float64 `json:"total_volume"`
		Change24h     float64 `json:"price_change_percentage_24h"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("解析榜单失败: %w", err)
	}
	out := make([]market.CoinInfo, 0, len(raw))
	for _, c := range raw {
		out = append(out, market.CoinInfo{
			ID:            c.ID,
			Symbol:        c.Symbol,
			Name:          c.Name,
			CurrentPrice:  c.CurrentPrice,
			MarketCap:     c.MarketCap,
			MarketCapRank: c.MarketCapRank,
			TotalVolume:   c.TotalVolume,
			Change24h:     c.Change24h,
		})
	}
	return out, nil
}

// DailyHistory 拉取单币种最近 days 天的日线序列。
// 返回前会做一次随机礼貌停顿，避免连续请求触发限流。
func (s *Source) DailyHistory(ctx context.Context, coin market.CoinInfo, days int) (market.Series, error) {
	if coin.ID == "" {
		return market.Series{}, fmt.Errorf("coin id 不能为空")
	}
	if days <= 0 {
		days = 180
	}
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", fmt.Sprintf("%d", days))
	q.Set("interval", "daily")
	u := fmt.Sprintf("%s/coins/%s/market_chart?%s", s.cfg.BaseURL, url.PathEscape(coin.ID), q.Encode())
	body, err := s.getWithRetry(ctx, u)
	if err != nil {
		return market.Series{}, fmt.Errorf("拉取 %s 历史失败: %w", coin.ID, err)
	}
	var raw struct {
		Prices     [][2]float64 `json:"prices"`
		Volumes    [][2]float64 `json:"total_volumes"`
		MarketCaps [][2]float64 `json:"market_caps"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return market.Series{}, fmt.Errorf("解析 %s 历史失败: %w", coin.ID, err)
	}
	points := make([]market.PricePoint, 0, len(raw.Prices))
	for i, entry := range raw.Prices {
		p := market.PricePoint{
			Date:  time.UnixMilli(int64(entry[0])).UTC(),
			Price: entry[1],
		}
		if len(raw.Volumes) == len(raw.Prices) {
			p.Volume = raw.Volumes[i][1]
		}
		if len(raw.MarketCaps) == len(raw.Prices) {
			p.MarketCap = raw.MarketCaps[i][1]
		}
		points = append(points, p)
	}
	s.pause(ctx)
	return market.NewSeries(coin.Symbol, coin.Name, points)
}

// getWithRetry 针对 429 与网络错误做指数退避重试，退避带 0.8~1.2 抖动。
func (s *Source) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	delay := s.cfg.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			jitter := 0.8 + rand.Float64()*0.4
			sleep := time.Duration(float64(delay) * jitter)
			if sleep > s.cfg.MaxBackoff {
				sleep = s.cfg.MaxBackoff
			}
			logger.Warnf("[coingecko] 第 %d/%d 次重试，等待 %s: %v", attempt, s.cfg.MaxRetries, sleep, lastErr)
			if err := sleepCtx(ctx, sleep); err != nil {
				return nil, err
			}
			delay *= 2
		}
		body, retryable, err := s.getOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("重试耗尽: %w", lastErr)
}

func (s *Source) getOnce(ctx context.Context, url string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	logger.Debugf("[coingecko] REST %s", url)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK:
		b, err := io.ReadAll(resp.Body)
		return b, err != nil, err
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("rate limited: %s", resp.Status)
	default:
		return nil, false, fmt.Errorf("coingecko error: %s", resp.Status)
	}
}

func (s *Source) pause(ctx context.Context) {
	span := s.cfg.PauseMax - s.cfg.PauseMin
	d := s.cfg.PauseMin + time.Duration(rand.Float64()*float64(span))
	_ = sleepCtx(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
