package report

import (
	"fmt"
	"io"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"

	"corrwatch/internal/analysis"
)

// fmtCell 控制台表格里的浮点格式，未定义值显示 NaN。
func fmtCell(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.4f", v)
}

func fmtPct(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// PrintSummary 输出收益统计前 top 行。
func PrintSummary(w io.Writer, sums []analysis.ReturnSummary, top int) {
	if top <= 0 || top > len(sums) {
		top = len(sums)
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Return Summary (top %d by annualized return)", top)
	t.AppendHeader(table.Row{"symbol", "mean", "std", "cumulative", "annualized", "sharpe"})
	for _, s := range sums[:top] {
		t.AppendRow(table.Row{
			s.Symbol, fmtCell(s.MeanDaily), fmtCell(s.StdDaily),
			fmtPct(s.Cumulative), fmtPct(s.Annualized), fmtCell(s.SharpeRatio),
		})
	}
	t.Render()
}

// PrintOutliers 输出两类离群币种表。
func PrintOutliers(w io.Writer, o analysis.Outliers) {
	lc := table.NewWriter()
	lc.SetOutputMirror(w)
	lc.SetTitle("Low Basket Correlation")
	lc.AppendHeader(table.Row{"symbol", "avg_correlation"})
	for _, r := range o.LowCorrelation {
		lc.AppendRow(table.Row{r.Symbol, fmtCell(r.Value)})
	}
	lc.Render()

	hd := table.NewWriter()
	hd.SetOutputMirror(w)
	hd.SetTitle("High Price Divergence")
	hd.AppendHeader(table.Row{"symbol", "cumulative", "distance", "relative"})
	for _, r := range o.HighDivergence {
		hd.AppendRow(table.Row{
			r.Symbol, fmtPct(r.Cumulative), fmtCell(r.Distance), fmtCell(r.RelativeDistance),
		})
	}
	hd.Render()
}
