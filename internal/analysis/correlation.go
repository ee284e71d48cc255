package analysis

import (
	"math"
	"sort"
)

// CorrelationMatrix 全量两两 Pearson 相关系数矩阵。
// 对角线恒为 1，矩阵对称；无重叠观测或零方差的币对记 NaN。
type CorrelationMatrix struct {
	Symbols []string
	Cells   [][]float64
}

// At 按 symbol 下标取值。
func (m *CorrelationMatrix) At(i, j int) float64 { return m.Cells[i][j] }

// AvgCorrelation 某币种与篮子内其余币种相关系数的均值。
type AvgCorrelation struct {
	Symbol string
	Value  float64
}

// Correlate 对收益率矩阵逐列两两计算 Pearson 相关系数。
// 每个币对只取双方都有观测的日期（pairwise complete），
// 均值也在该重叠子集上重新计算。
func Correlate(returns *AlignedMatrix) *CorrelationMatrix {
	n := len(returns.Symbols)
	cells := make([][]float64, n)
	for i := range cells {
		cells[i] = make([]float64, n)
		cells[i][i] = 1.0
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := pearson(returns.Columns[i], returns.Columns[j])
			cells[i][j] = r
			cells[j][i] = r
		}
	}
	syms := make([]string, n)
	copy(syms, returns.Symbols)
	return &CorrelationMatrix{Symbols: syms, Cells: cells}
}

// AverageRanking 计算每个币种对篮子的平均相关度并按升序排列
// （最偏离大盘的排最前），NaN 条目排在末尾。
// 均值剔除自相关，也跳过 NaN 币对。
func AverageRanking(m *CorrelationMatrix) []AvgCorrelation {
	out := make([]AvgCorrelation, 0, len(m.Symbols))
	for i, sym := range m.Symbols {
		sum := 0.0
		n := 0
		for j, v := range m.Cells[i] {
			if j == i || math.IsNaN(v) {
				continue
			}
			sum += v
			n++
		}
		avg := math.NaN()
		if n > 0 {
			avg = sum / float64(n)
		}
		out = append(out, AvgCorrelation{Symbol: sym, Value: avg})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lessAsc(out[i].Value, out[j].Value)
	})
	return out
}

// pearson 在双方均非 NaN 的观测子集上计算相关系数。
// 重叠不足 2 个观测或任一侧零方差时返回 NaN。
func pearson(a, b []float64) float64 {
	n := 0
	sumA, sumB := 0.0, 0.0
	for k := range a {
		if math.IsNaN(a[k]) || math.IsNaN(b[k]) {
			continue
		}
		n++
		sumA += a[k]
		sumB += b[k]
	}
	if n < 2 {
		return math.NaN()
	}
	meanA := sumA / float64(n)
	meanB := sumB / float64(n)
	var cov, varA, varB float64
	for k := range a {
		if math.IsNaN(a[k]) || math.IsNaN(b[k]) {
			continue
		}
		da := a[k] - meanA
		db := b[k] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(varA*varB)
}
