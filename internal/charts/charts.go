package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	talib "github.com/markcheno/go-talib"

	"corrwatch/internal/analysis"
	"corrwatch/internal/logger"
)

const smaWindow = 7

// Renderer 把分析结果渲染成独立 HTML 图表文件，写入产物目录。
type Renderer struct {
	dir string
}

func NewRenderer(dir string) (*Renderer, error) {
	if dir == "" {
		return nil, errors.New("dir 不能为空")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建图表目录失败: %w", err)
	}
	return &Renderer{dir: dir}, nil
}

// RenderAll 输出全部图表，单图失败只记日志。
func (r *Renderer) RenderAll(ranking []analysis.AvgCorrelation, records []analysis.DivergenceRecord,
	payload analysis.ComparisonPayload, t analysis.Thresholds) {
	if err := r.AverageCorrelationBar(ranking, t.Correlation); err != nil {
		logger.Errorf("[charts] 平均相关度图渲染失败: %v", err)
	}
	if err := r.PriceDistanceBar(records, t.Distance); err != nil {
		logger.Errorf("[charts] 价格偏离图渲染失败: %v", err)
	}
	if err := r.MarketComparisonLine(payload); err != nil {
		logger.Errorf("[charts] 大盘对比图渲染失败: %v", err)
	}
}

// AverageCorrelationBar 各币种平均相关度柱状图，附阈值参考线。
func (r *Renderer) AverageCorrelationBar(ranking []analysis.AvgCorrelation, threshold float64) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Average Correlation with Basket"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	syms := make([]string, 0, len(ranking))
	vals := make([]opts.BarData, 0, len(ranking))
	thresh := make([]opts.LineData, 0, len(ranking))
	for _, rec := range ranking {
		syms = append(syms, rec.Symbol)
		vals = append(vals, barValue(rec.Value))
		thresh = append(thresh, opts.LineData{Value: threshold})
	}
	bar.SetXAxis(syms).AddSeries("avg_correlation", vals)

	line := charts.NewLine()
	line.SetXAxis(syms).AddSeries("threshold", thresh)
	bar.Overlap(line)
	return r.render(bar, "average_correlations.html")
}

// PriceDistanceBar 期末价格偏离柱状图，附阈值参考线。
func (r *Renderer) PriceDistanceBar(records []analysis.DivergenceRecord, threshold float64) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Price Distance from Market Average"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	syms := make([]string, 0, len(records))
	vals := make([]opts.BarData, 0, len(records))
	thresh := make([]opts.LineData, 0, len(records))
	for _, rec := range records {
		syms = append(syms, rec.Symbol)
		vals = append(vals, barValue(rec.Distance))
		thresh = append(thresh, opts.LineData{Value: threshold})
	}
	bar.SetXAxis(syms).AddSeries("price_distance", vals)

	line := charts.NewLine()
	line.SetXAxis(syms).AddSeries("threshold", thresh)
	bar.Overlap(line)
	return r.render(bar, "price_distance.html")
}

// MarketComparisonLine 大盘累计曲线（含 7 日均线平滑）与离群币种曲线。
func (r *Renderer) MarketComparisonLine(payload analysis.ComparisonPayload) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Market Average vs. Outlier Coins"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(payload.Dates)

	market := make([]opts.LineData, len(payload.MarketAvg))
	raw := make([]float64, len(payload.MarketAvg))
	for i, v := range payload.MarketAvg {
		market[i] = lineValue(float64(v))
		if math.IsNaN(float64(v)) {
			raw[i] = 0
		} else {
			raw[i] = float64(v)
		}
	}
	line.AddSeries("market_avg", market)

	if len(raw) >= smaWindow {
		sma := talib.Sma(raw, smaWindow)
		smooth := make([]opts.LineData, len(sma))
		for i, v := range sma {
			if i < smaWindow-1 {
				smooth[i] = opts.LineData{Value: nil}
				continue
			}
			smooth[i] = opts.LineData{Value: v}
		}
		line.AddSeries(fmt.Sprintf("market_avg_sma%d", smaWindow), smooth)
	}

	for sym, coin := range payload.Coins {
		data := make([]opts.LineData, len(coin.Data))
		for i, v := range coin.Data {
			data[i] = lineValue(float64(v))
		}
		line.AddSeries(sym, data)
	}
	return r.render(line, "market_comparison.html")
}

type renderable interface {
	Render(w io.Writer) error
}

func (r *Renderer) render(c renderable, name string) error {
	path := filepath.Join(r.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Render(f); err != nil {
		f.Close()
		return err
	}
	logger.Infof("[charts] 已生成 %s", path)
	return f.Close()
}

func barValue(v float64) opts.BarData {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return opts.BarData{Value: nil}
	}
	return opts.BarData{Value: v}
}

func lineValue(v float64) opts.LineData {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return opts.LineData{Value: nil}
	}
	return opts.LineData{Value: v}
}
