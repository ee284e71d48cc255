package analysis

import (
	"math"
	"testing"

	"corrwatch/internal/market"
)

func scenarioReturns(t *testing.T) *AlignedMatrix {
	t.Helper()
	return alignReturns(t, map[string]market.Series{
		"AAA": mkSeries(t, "AAA", 100, 101, 102, 103, 104),
		"BBB": mkSeries(t, "BBB", 50, 49, 48, 47, 46),
		"CCC": mkSeries(t, "CCC", 10, 10, 10, 10, 10),
	})
}

func TestCorrelationMatrixInvariants(t *testing.T) {
	m := Correlate(scenarioReturns(t))
	n := len(m.Symbols)
	for i := 0; i < n; i++ {
		if m.Cells[i][i] != 1.0 {
			t.Fatalf("对角线必须为 1, [%d][%d]=%v", i, i, m.Cells[i][i])
		}
		for j := 0; j < n; j++ {
			a, b := m.Cells[i][j], m.Cells[j][i]
			if math.IsNaN(a) != math.IsNaN(b) || (!math.IsNaN(a) && a != b) {
				t.Fatalf("矩阵必须对称: [%d][%d]=%v [%d][%d]=%v", i, j, a, j, i, b)
			}
			if !math.IsNaN(a) && (a < -1-1e-12 || a > 1+1e-12) {
				t.Fatalf("相关系数越界: %v", a)
			}
		}
	}
}

func TestCorrelationScenarioABC(t *testing.T) {
	m := Correlate(scenarioReturns(t))
	idx := func(sym string) int {
		for i, s := range m.Symbols {
			if s == sym {
				return i
			}
		}
		t.Fatalf("缺少 %s", sym)
		return -1
	}
	ab := m.At(idx("AAA"), idx("BBB"))
	if !(ab < -0.9) {
		t.Fatalf("corr(AAA,BBB) 应强负相关, 实际=%v", ab)
	}
	if !math.IsNaN(m.At(idx("AAA"), idx("CCC"))) {
		t.Fatalf("零方差币对相关系数应为 NaN")
	}
}

func TestAverageRankingAscendingAndDeterministic(t *testing.T) {
	rets := scenarioReturns(t)
	r1 := AverageRanking(Correlate(rets))
	r2 := AverageRanking(Correlate(rets))
	if len(r1) != len(r2) {
		t.Fatalf("两次运行长度不一致")
	}
	for i := range r1 {
		if r1[i].Symbol != r2[i].Symbol {
			t.Fatalf("排序必须确定: %v vs %v", r1, r2)
		}
		v1, v2 := r1[i].Value, r2[i].Value
		if math.IsNaN(v1) != math.IsNaN(v2) || (!math.IsNaN(v1) && v1 != v2) {
			t.Fatalf("取值必须确定: %v vs %v", v1, v2)
		}
	}
	for i := 1; i < len(r1); i++ {
		prev, cur := r1[i-1].Value, r1[i].Value
		if math.IsNaN(prev) && !math.IsNaN(cur) {
			t.Fatalf("NaN 应排在末尾: %v", r1)
		}
		if !math.IsNaN(prev) && !math.IsNaN(cur) && prev > cur {
			t.Fatalf("平均相关度应升序: %v", r1)
		}
	}
}

func TestAverageRankingExcludesSelfAndNaN(t *testing.T) {
	m := Correlate(scenarioReturns(t))
	ranking := AverageRanking(m)
	byIdx := make(map[string]AvgCorrelation, len(ranking))
	for _, r := range ranking {
		byIdx[r.Symbol] = r
	}
	// AAA 与 CCC 的币对为 NaN，被跳过后 AAA 均值只剩 corr(AAA,BBB)
	aaa := byIdx["AAA"].Value
	if math.IsNaN(aaa) || !(aaa < -0.9) {
		t.Fatalf("AAA 平均相关度应等于 corr(AAA,BBB), 实际=%v", aaa)
	}
	// CCC 所有币对均为 NaN → 均值 NaN
	if !math.IsNaN(byIdx["CCC"].Value) {
		t.Fatalf("全 NaN 行均值应为 NaN, 实际=%v", byIdx["CCC"].Value)
	}
}

func TestPearsonPairwiseComplete(t *testing.T) {
	a := []float64{math.NaN(), 0.1, 0.2, 0.3, math.NaN()}
	b := []float64{0.5, 0.2, 0.4, 0.6, 0.1}
	// 仅取双方均有值的第 1~3 位
	got := pearson(a, b)
	if math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("重叠子集完全线性相关, got=%v", got)
	}
	if !math.IsNaN(pearson([]float64{math.NaN(), 0.1}, []float64{0.2, math.NaN()})) {
		t.Fatalf("零重叠币对应为 NaN")
	}
}
