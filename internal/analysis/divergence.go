package analysis

import (
	"math"
	"sort"
	"time"
)

// MarketPoint 等权合成"大盘"在某一天的收益率。
type MarketPoint struct {
	Date   time.Time
	Return float64
}

// DivergenceRecord 单币种期末累计收益与大盘累计收益的偏离。
// RelativeDistance 在大盘期末累计收益为 0 时为 NaN。
type DivergenceRecord struct {
	Symbol           string
	Cumulative       float64
	Distance         float64
	MarketReturn     float64
	RelativeDistance float64
}

// DivergenceResult 大盘偏离度分析的完整输出。
type DivergenceResult struct {
	Market           []MarketPoint
	MarketCumulative []float64
	// CoinCumulative 逐币种的逐日复利累计序列，供展示层使用。
	CoinCumulative map[string][]float64
	// Records 按 Distance 降序。
	Records []DivergenceRecord
}

// MarketAverage 构建合成大盘收益率序列：每日对当天有观测的币种
// 取算术平均，缺失值不进分母；当天全部缺失时记 NaN。
func MarketAverage(returns *AlignedMatrix) []MarketPoint {
	out := make([]MarketPoint, returns.Days())
	for d := range returns.Dates {
		sum := 0.0
		n := 0
		for _, col := range returns.Columns {
			if math.IsNaN(col[d]) {
				continue
			}
			sum += col[d]
			n++
		}
		r := math.NaN()
		if n > 0 {
			r = sum / float64(n)
		}
		out[d] = MarketPoint{Date: returns.Dates[d], Return: r}
	}
	return out
}

// Diverge 计算各币种对合成大盘的偏离度。
// 复利口径与 Summaries 一致：缺失日按无涨跌处理。
func Diverge(returns *AlignedMatrix) *DivergenceResult {
	market := MarketAverage(returns)
	marketRets := make([]float64, len(market))
	for i, p := range market {
		marketRets[i] = p.Return
	}
	marketCum := compoundSeries(marketRets)
	finalMarket := 0.0
	if len(marketCum) > 0 {
		finalMarket = marketCum[len(marketCum)-1]
	}

	res := &DivergenceResult{
		Market:           market,
		MarketCumulative: marketCum,
		CoinCumulative:   make(map[string][]float64, len(returns.Symbols)),
	}
	for i, sym := range returns.Symbols {
		cum := compoundSeries(returns.Columns[i])
		res.CoinCumulative[sym] = cum
		final := 0.0
		if len(cum) > 0 {
			final = cum[len(cum)-1]
		}
		dist := math.Abs(final - finalMarket)
		rel := math.NaN()
		if finalMarket != 0 {
			rel = dist / math.Abs(finalMarket)
		}
		res.Records = append(res.Records, DivergenceRecord{
			Symbol:           sym,
			Cumulative:       final,
			Distance:         dist,
			MarketReturn:     finalMarket,
			RelativeDistance: rel,
		})
	}
	sort.SliceStable(res.Records, func(i, j int) bool {
		return lessDesc(res.Records[i].Distance, res.Records[j].Distance)
	})
	return res
}
