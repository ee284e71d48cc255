package analysis

import (
	"errors"
	"math"
	"testing"
	"time"

	"corrwatch/internal/market"
)

func day(i int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func mkSeries(t *testing.T, symbol string, prices ...float64) market.Series {
	t.Helper()
	pts := make([]market.PricePoint, len(prices))
	for i, p := range prices {
		pts[i] = market.PricePoint{Date: day(i), Price: p}
	}
	s, err := market.NewSeries(symbol, symbol, pts)
	if err != nil {
		t.Fatalf("构造序列失败: %v", err)
	}
	return s
}

func matrixEqual(a, b *AlignedMatrix) bool {
	if len(a.Dates) != len(b.Dates) || len(a.Symbols) != len(b.Symbols) {
		return false
	}
	for i := range a.Dates {
		if !a.Dates[i].Equal(b.Dates[i]) {
			return false
		}
	}
	for i := range a.Symbols {
		if a.Symbols[i] != b.Symbols[i] {
			return false
		}
		for j := range a.Columns[i] {
			x, y := a.Columns[i][j], b.Columns[i][j]
			if math.IsNaN(x) != math.IsNaN(y) {
				return false
			}
			if !math.IsNaN(x) && x != y {
				return false
			}
		}
	}
	return true
}

func TestAlignEmptyInput(t *testing.T) {
	_, _, err := Align(nil)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("空输入应返回 ErrNoData, 实际=%v", err)
	}
	_, _, err = Align(map[string]market.Series{})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("空 map 应返回 ErrNoData, 实际=%v", err)
	}
}

func TestAlignDropsMismatchedLength(t *testing.T) {
	in := map[string]market.Series{
		"AAA": mkSeries(t, "AAA", 100, 101, 102, 103, 104),
		"BBB": mkSeries(t, "BBB", 50, 49, 48, 47, 46),
		"CCC": mkSeries(t, "CCC", 10, 10, 10, 10), // 4 行，日期轴 5 行
	}
	prices, returns, err := Align(in)
	if err != nil {
		t.Fatalf("对齐失败: %v", err)
	}
	if prices.Days() != 5 {
		t.Fatalf("日期轴应为 5 天, 实际=%d", prices.Days())
	}
	for _, m := range []*AlignedMatrix{prices, returns} {
		if m.Column("CCC") != nil {
			t.Fatalf("长度不符的币种应被剔除")
		}
		if m.Column("AAA") == nil || m.Column("BBB") == nil {
			t.Fatalf("长度一致的币种应保留, symbols=%v", m.Symbols)
		}
		for _, col := range m.Columns {
			if len(col) != m.Days() {
				t.Fatalf("列长 %d 应等于日期轴 %d", len(col), m.Days())
			}
		}
	}
}

func TestAlignReferenceAxisLongestHistory(t *testing.T) {
	in := map[string]market.Series{
		"ZZZ": mkSeries(t, "ZZZ", 1, 2, 3),
		"AAA": mkSeries(t, "AAA", 1, 2, 3, 4, 5, 6),
	}
	prices, _, err := Align(in)
	if err != nil {
		t.Fatalf("对齐失败: %v", err)
	}
	if prices.Days() != 6 {
		t.Fatalf("日期轴应取最长历史(6 天), 实际=%d", prices.Days())
	}
	if prices.Column("ZZZ") != nil {
		t.Fatalf("短历史币种应被剔除")
	}
}

func TestAlignIdempotent(t *testing.T) {
	in := map[string]market.Series{
		"AAA": mkSeries(t, "AAA", 100, 101, 102, 103, 104),
		"BBB": mkSeries(t, "BBB", 50, 49, 48, 47, 46),
	}
	p1, r1, err := Align(in)
	if err != nil {
		t.Fatalf("第一次对齐失败: %v", err)
	}
	p2, r2, err := Align(in)
	if err != nil {
		t.Fatalf("第二次对齐失败: %v", err)
	}
	if !matrixEqual(p1, p2) || !matrixEqual(r1, r2) {
		t.Fatalf("同一输入两次对齐结果应一致")
	}
}

func TestAlignReturnsFromOwnSeries(t *testing.T) {
	in := map[string]market.Series{
		"AAA": mkSeries(t, "AAA", 100, 110, 121),
	}
	_, returns, err := Align(in)
	if err != nil {
		t.Fatalf("对齐失败: %v", err)
	}
	col := returns.Column("AAA")
	if !math.IsNaN(col[0]) {
		t.Fatalf("首日收益应为 NaN, 实际=%v", col[0])
	}
	for i, want := range []float64{0.10, 0.10} {
		if math.Abs(col[i+1]-want) > 1e-9 {
			t.Fatalf("第 %d 日收益应为 %v, 实际=%v", i+1, want, col[i+1])
		}
	}
}
