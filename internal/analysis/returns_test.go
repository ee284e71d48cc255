package analysis

import (
	"math"
	"testing"

	"corrwatch/internal/market"
)

func alignReturns(t *testing.T, in map[string]market.Series) *AlignedMatrix {
	t.Helper()
	_, returns, err := Align(in)
	if err != nil {
		t.Fatalf("对齐失败: %v", err)
	}
	return returns
}

func TestSummariesScenarioABC(t *testing.T) {
	returns := alignReturns(t, map[string]market.Series{
		"AAA": mkSeries(t, "AAA", 100, 101, 102, 103, 104),
		"BBB": mkSeries(t, "BBB", 50, 49, 48, 47, 46),
		"CCC": mkSeries(t, "CCC", 10, 10, 10, 10, 10),
	})
	sums := Summaries(returns)
	bySym := make(map[string]ReturnSummary, len(sums))
	for _, s := range sums {
		bySym[s.Symbol] = s
	}

	if bySym["AAA"].MeanDaily <= 0 {
		t.Fatalf("AAA 平均日收益应为正, 实际=%v", bySym["AAA"].MeanDaily)
	}
	if bySym["BBB"].MeanDaily >= 0 {
		t.Fatalf("BBB 平均日收益应为负, 实际=%v", bySym["BBB"].MeanDaily)
	}
	c := bySym["CCC"]
	if c.StdDaily != 0 {
		t.Fatalf("CCC 标准差应为 0, 实际=%v", c.StdDaily)
	}
	if !math.IsNaN(c.SharpeRatio) {
		t.Fatalf("零方差的比率必须为 NaN, 实际=%v", c.SharpeRatio)
	}
	if c.Cumulative != 0 {
		t.Fatalf("CCC 累计收益应为 0, 实际=%v", c.Cumulative)
	}

	// 年化收益降序
	for i := 1; i < len(sums); i++ {
		if lessDesc(sums[i].Annualized, sums[i-1].Annualized) &&
			!lessDesc(sums[i-1].Annualized, sums[i].Annualized) &&
			sums[i-1].Annualized != sums[i].Annualized {
			t.Fatalf("输出应按年化收益降序: %v", sums)
		}
	}
	if sums[0].Symbol != "AAA" || sums[len(sums)-1].Symbol != "BBB" {
		t.Fatalf("排序异常: 首位=%s 末位=%s", sums[0].Symbol, sums[len(sums)-1].Symbol)
	}
}

func TestCompoundRoundTrip(t *testing.T) {
	rets := []float64{0.01, -0.02, 0.03, 0.005}
	want := 1.0
	for _, r := range rets {
		want *= 1 + r
	}
	want -= 1
	if got := compound(rets); math.Abs(got-want) > 1e-9 {
		t.Fatalf("复利累计偏差过大: got=%v want=%v", got, want)
	}
	series := compoundSeries(rets)
	if math.Abs(series[len(series)-1]-want) > 1e-9 {
		t.Fatalf("累计序列末值应等于总累计: %v vs %v", series[len(series)-1], want)
	}
}

func TestCompoundZeroFillsNaN(t *testing.T) {
	rets := []float64{math.NaN(), 0.10, math.NaN(), 0.10}
	want := 1.1*1.1 - 1
	if got := compound(rets); math.Abs(got-want) > 1e-9 {
		t.Fatalf("NaN 应按无涨跌日参与复利: got=%v want=%v", got, want)
	}
}

func TestAnnualizedUsesWindowLength(t *testing.T) {
	returns := alignReturns(t, map[string]market.Series{
		"AAA": mkSeries(t, "AAA", 100, 110),
	})
	sums := Summaries(returns)
	cum := sums[0].Cumulative
	want := math.Pow(1+cum, 365.0/2.0) - 1
	if math.Abs(sums[0].Annualized-want) > 1e-9 {
		t.Fatalf("年化收益应以窗口天数为底: got=%v want=%v", sums[0].Annualized, want)
	}
}

func TestMeanStdSkipsNaN(t *testing.T) {
	mean, std := meanStd([]float64{math.NaN(), 0.1, 0.3})
	if math.Abs(mean-0.2) > 1e-9 {
		t.Fatalf("均值应跳过 NaN: got=%v", mean)
	}
	want := math.Sqrt(0.02 / 1) // 样本方差 n-1
	if math.Abs(std-want) > 1e-9 {
		t.Fatalf("标准差应为样本口径: got=%v want=%v", std, want)
	}

	mean, std = meanStd([]float64{math.NaN(), 0.1})
	if std != 0 {
		t.Fatalf("单观测标准差应记 0, 实际=%v", std)
	}
	if math.Abs(mean-0.1) > 1e-9 {
		t.Fatalf("单观测均值应为观测本身, 实际=%v", mean)
	}
	mean, _ = meanStd([]float64{math.NaN(), math.NaN()})
	if !math.IsNaN(mean) {
		t.Fatalf("全 NaN 列均值应为 NaN, 实际=%v", mean)
	}
}
