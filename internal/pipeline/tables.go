package pipeline

import (
	"math"
	"strconv"

	"corrwatch/internal/analysis"
	"corrwatch/internal/market"
	"corrwatch/internal/store"
)

// fmtF 浮点转字符串；NaN/Inf 以空单元格落盘（未定义哨兵，不得写成 0）。
func fmtF(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func fmtI(v int) string { return strconv.Itoa(v) }

const dateLayout = "2006-01-02"

func matrixTable(m *analysis.AlignedMatrix) store.Table {
	t := store.Table{Columns: append([]string{"date"}, m.Symbols...)}
	for d := range m.Dates {
		row := make([]string, 0, len(m.Symbols)+1)
		row = append(row, m.Dates[d].Format(dateLayout))
		for _, col := range m.Columns {
			row = append(row, fmtF(col[d]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func summariesTable(sums []analysis.ReturnSummary) store.Table {
	t := store.Table{Columns: []string{
		"symbol", "avg_daily_return", "std_daily_return",
		"cumulative_return", "annualized_return", "sharpe_ratio",
	}}
	for _, s := range sums {
		t.Rows = append(t.Rows, []string{
			s.Symbol, fmtF(s.MeanDaily), fmtF(s.StdDaily),
			fmtF(s.Cumulative), fmtF(s.Annualized), fmtF(s.SharpeRatio),
		})
	}
	return t
}

func correlationTable(m *analysis.CorrelationMatrix) store.Table {
	t := store.Table{Columns: append([]string{"symbol"}, m.Symbols...)}
	for i, sym := range m.Symbols {
		row := make([]string, 0, len(m.Symbols)+1)
		row = append(row, sym)
		for _, v := range m.Cells[i] {
			row = append(row, fmtF(v))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func avgCorrelationTable(ranking []analysis.AvgCorrelation) store.Table {
	t := store.Table{Columns: []string{"symbol", "avg_correlation"}}
	for _, r := range ranking {
		t.Rows = append(t.Rows, []string{r.Symbol, fmtF(r.Value)})
	}
	return t
}

func marketTable(points []analysis.MarketPoint) store.Table {
	t := store.Table{Columns: []string{"date", "market_avg_return"}}
	for _, p := range points {
		t.Rows = append(t.Rows, []string{p.Date.Format(dateLayout), fmtF(p.Return)})
	}
	return t
}

func distanceTable(records []analysis.DivergenceRecord) store.Table {
	t := store.Table{Columns: []string{
		"symbol", "cumulative_return", "price_distance", "market_return", "relative_distance",
	}}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			r.Symbol, fmtF(r.Cumulative), fmtF(r.Distance),
			fmtF(r.MarketReturn), fmtF(r.RelativeDistance),
		})
	}
	return t
}

func topCoinsTable(coins []market.CoinInfo) store.Table {
	t := store.Table{Columns: []string{
		"id", "symbol", "name", "current_price", "market_cap",
		"market_cap_rank", "total_volume", "price_change_percentage_24h",
	}}
	for _, c := range coins {
		t.Rows = append(t.Rows, []string{
			c.ID, c.Symbol, c.Name, fmtF(c.CurrentPrice), fmtF(c.MarketCap),
			fmtI(c.MarketCapRank), fmtF(c.TotalVolume), fmtF(c.Change24h),
		})
	}
	return t
}
