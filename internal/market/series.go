package market

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// CoinInfo 描述榜单快照中的一个币种。
type CoinInfo struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	CurrentPrice  float64 `json:"current_price"`
	MarketCap     float64 `json:"market_cap"`
	MarketCapRank int     `json:"market_cap_rank"`
	TotalVolume   float64 `json:"total_volume"`
	Change24h     float64 `json:"price_change_percentage_24h"`
}

// PricePoint 一条日线数据；Volume/MarketCap 缺省时为 0。
type PricePoint struct {
	Date      time.Time `json:"date"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume,omitempty"`
	MarketCap float64   `json:"market_cap,omitempty"`
}

// Series 单个币种的日线价格序列，日期严格递增、无重复。
type Series struct {
	Symbol string       `json:"symbol"`
	Name   string       `json:"name,omitempty"`
	Points []PricePoint `json:"points"`
}

// NewSeries 规范化并校验一条序列：symbol 转大写，按日期排序、去重。
func NewSeries(symbol, name string, points []PricePoint) (Series, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return Series{}, fmt.Errorf("symbol 不能为空")
	}
	pts := make([]PricePoint, len(points))
	copy(pts, points)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
	out := pts[:0]
	for _, p := range pts {
		if len(out) > 0 && sameDay(out[len(out)-1].Date, p.Date) {
			// 同一天保留最后一条
			out[len(out)-1] = p
			continue
		}
		out = append(out, p)
	}
	return Series{Symbol: sym, Name: name, Points: out}, nil
}

// Len 返回序列长度。
func (s Series) Len() int { return len(s.Points) }

// Dates 返回日期轴拷贝。
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Date
	}
	return out
}

// Prices 返回价格列拷贝。
func (s Series) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// DailyReturns 计算逐日收益率：r[i] = p[i]/p[i-1] - 1。
// 首日没有前值，置为 NaN；长度与 Points 一致。
func (s Series) DailyReturns() []float64 {
	out := make([]float64, len(s.Points))
	if len(out) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(s.Points); i++ {
		prev := s.Points[i-1].Price
		if prev == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = s.Points[i].Price/prev - 1
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
