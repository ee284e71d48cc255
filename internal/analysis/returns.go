package analysis

import (
	"math"
	"sort"
)

const yearDays = 365

// ReturnSummary 单个币种在分析窗口内的收益统计。
// SharpeRatio 在 StdDaily 为 0 时为 NaN（未定义），不得折算成 0。
type ReturnSummary struct {
	Symbol      string
	MeanDaily   float64
	StdDaily    float64
	Cumulative  float64
	Annualized  float64
	SharpeRatio float64
}

// Summaries 基于对齐后的收益率矩阵逐列计算收益统计，
// 按年化收益率降序排列（稳定排序，并列保持输入顺序）。
func Summaries(returns *AlignedMatrix) []ReturnSummary {
	window := returns.Days()
	out := make([]ReturnSummary, 0, len(returns.Symbols))
	for i, sym := range returns.Symbols {
		col := returns.Columns[i]
		mean, std := meanStd(col)
		// 均值/标准差跳过 NaN（瞬时波动忽略缺口），
		// 复利累计则把 NaN 当作 0（缺口视为无涨跌日）。
		// 两种处理口径不同是有意为之，与市场均值序列的构建保持一致。
		cum := compound(col)
		ann := math.Pow(1+cum, float64(yearDays)/float64(window)) - 1
		sharpe := math.NaN()
		if std != 0 {
			sharpe = mean / std * math.Sqrt(yearDays)
		}
		out = append(out, ReturnSummary{
			Symbol:      sym,
			MeanDaily:   mean,
			StdDaily:    std,
			Cumulative:  cum,
			Annualized:  ann,
			SharpeRatio: sharpe,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lessDesc(out[i].Annualized, out[j].Annualized)
	})
	return out
}

// meanStd 返回列的均值与样本标准差（n-1），仅统计非 NaN 观测。
// 有效观测不足 2 个时标准差记 0，由调用方据此将比率置为 NaN。
func meanStd(col []float64) (mean, std float64) {
	n := 0
	sum := 0.0
	for _, v := range col {
		if math.IsNaN(v) {
			continue
		}
		n++
		sum += v
	}
	if n == 0 {
		return math.NaN(), 0
	}
	mean = sum / float64(n)
	if n < 2 {
		return mean, 0
	}
	ss := 0.0
	for _, v := range col {
		if math.IsNaN(v) {
			continue
		}
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(n-1))
}

// compound 复利累计收益：∏(1+r) - 1，NaN 按 0 参与。
func compound(col []float64) float64 {
	prod := 1.0
	for _, v := range col {
		if math.IsNaN(v) {
			continue
		}
		prod *= 1 + v
	}
	return prod - 1
}

// compoundSeries 返回逐日复利累计序列，NaN 按 0 参与。
func compoundSeries(col []float64) []float64 {
	out := make([]float64, len(col))
	prod := 1.0
	for i, v := range col {
		if !math.IsNaN(v) {
			prod *= 1 + v
		}
		out[i] = prod - 1
	}
	return out
}

// lessDesc 降序比较，NaN 排在最后。
func lessDesc(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a > b
}

// lessAsc 升序比较，NaN 排在最后。
func lessAsc(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a < b
}
