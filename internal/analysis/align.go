package analysis

import (
	"errors"
	"math"
	"sort"
	"time"

	"corrwatch/internal/logger"
	"corrwatch/internal/market"
)

// ErrNoData 输入为空时整条流水线立即终止。
var ErrNoData = errors.New("no series data")

// AlignedMatrix 以统一日期轴对齐后的数值矩阵（价格或收益率）。
// Columns 与 Symbols 一一对应，每列长度等于 len(Dates)；缺失值用 NaN 表示。
type AlignedMatrix struct {
	Dates   []time.Time
	Symbols []string
	Columns [][]float64
}

// Column 按 symbol 取列；不存在时返回 nil。
func (m *AlignedMatrix) Column(symbol string) []float64 {
	for i, s := range m.Symbols {
		if s == symbol {
			return m.Columns[i]
		}
	}
	return nil
}

// Days 返回日期轴长度（分析窗口天数）。
func (m *AlignedMatrix) Days() int { return len(m.Dates) }

// Align 将长短不一的各币种日线序列合并为价格矩阵与收益率矩阵。
//
// 日期轴取原生历史最长的币种（并列时按 symbol 升序取第一个），
// 与日期轴长度不一致的币种整列剔除，不做插值。收益率列取自各币种
// 自身的 DailyReturns()（首日为 NaN），不从对齐后的价格矩阵重算。
func Align(series map[string]market.Series) (prices, returns *AlignedMatrix, err error) {
	if len(series) == 0 {
		return nil, nil, ErrNoData
	}

	symbols := make([]string, 0, len(series))
	for sym := range series {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	ref := symbols[0]
	for _, sym := range symbols[1:] {
		if series[sym].Len() > series[ref].Len() {
			ref = sym
		}
	}
	refLen := series[ref].Len()
	if refLen == 0 {
		return nil, nil, ErrNoData
	}
	dates := series[ref].Dates()

	prices = &AlignedMatrix{Dates: dates}
	returns = &AlignedMatrix{Dates: dates}
	for _, sym := range symbols {
		s := series[sym]
		if s.Len() == refLen {
			prices.Symbols = append(prices.Symbols, sym)
			prices.Columns = append(prices.Columns, s.Prices())
		} else {
			logger.Warnf("[align] %s 长度 %d 与日期轴 %d 不一致，剔除", sym, s.Len(), refLen)
		}
		if rets := s.DailyReturns(); len(rets) == refLen {
			returns.Symbols = append(returns.Symbols, sym)
			returns.Columns = append(returns.Columns, rets)
		}
	}
	logger.Infof("[align] 日期轴取自 %s（%d 天），价格矩阵 %d 列 / 收益率矩阵 %d 列",
		ref, refLen, len(prices.Symbols), len(returns.Symbols))
	return prices, returns, nil
}

// validCount 统计列中非 NaN 的观测数。
func validCount(col []float64) int {
	n := 0
	for _, v := range col {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}
