package analysis

import (
	"math"
	"strconv"
)

// NullFloat 在 JSON 里把 NaN/Inf 编码为 null。
// encoding/json 遇到 NaN 会直接报错，而未定义统计量必须原样传给展示层。
type NullFloat float64

// MarshalJSON 实现 json.Marshaler。
func (f NullFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// UnmarshalJSON 把 null 还原为 NaN。
func (f *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = NullFloat(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = NullFloat(v)
	return nil
}

func nullFloats(vs []float64) []NullFloat {
	out := make([]NullFloat, len(vs))
	for i, v := range vs {
		out[i] = NullFloat(v)
	}
	return out
}

// ComparisonCoin 展示层用的单币种对比数据。
type ComparisonCoin struct {
	Name             string      `json:"name"`
	Data             []NullFloat `json:"data"`
	CumulativeReturn NullFloat   `json:"cumulative_return"`
	PriceDistance    NullFloat   `json:"price_distance"`
	RelativeDistance NullFloat   `json:"relative_distance"`
}

// ComparisonPayload 大盘 vs 离群币种的反规范化时序载荷，
// 字段名是与展示层的契约，不可改动。
type ComparisonPayload struct {
	Dates     []string                  `json:"dates"`
	MarketAvg []NullFloat               `json:"market_avg"`
	Coins     map[string]ComparisonCoin `json:"coins"`
}

// BuildComparison 基于偏离度结果与已筛选的离群集合组装载荷。
// 只纳入超阈值币种，逐日序列取复利累计值。
func BuildComparison(res *DivergenceResult, beyond []DivergenceRecord) ComparisonPayload {
	p := ComparisonPayload{
		Dates:     make([]string, len(res.Market)),
		MarketAvg: nullFloats(res.MarketCumulative),
		Coins:     make(map[string]ComparisonCoin, len(beyond)),
	}
	for i, m := range res.Market {
		p.Dates[i] = m.Date.Format("2006-01-02")
	}
	for _, rec := range beyond {
		p.Coins[rec.Symbol] = ComparisonCoin{
			Name:             rec.Symbol,
			Data:             nullFloats(res.CoinCumulative[rec.Symbol]),
			CumulativeReturn: NullFloat(rec.Cumulative),
			PriceDistance:    NullFloat(rec.Distance),
			RelativeDistance: NullFloat(rec.RelativeDistance),
		}
	}
	return p
}
