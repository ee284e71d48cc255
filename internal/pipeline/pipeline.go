package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"corrwatch/internal/analysis"
	coinfilter "corrwatch/internal/coins"
	"corrwatch/internal/logger"
	"corrwatch/internal/market"
	"corrwatch/internal/store"
)

// Params 组装一次完整分析所需的协作方。
type Params struct {
	Source      market.Source
	Cache       *store.SeriesStore // 可为 nil
	Artifacts   store.ArtifactStore
	Filter      coinfilter.Filter
	Top         int
	Days        int
	Concurrency int
	Refresh     bool
	Thresholds analysis.Thresholds
}

// Runner 按固定顺序驱动各分析阶段，任一阶段失败立即终止（fail-fast）。
type Runner struct {
	p Params
}

func NewRunner(p Params) (*Runner, error) {
	if p.Source == nil {
		return nil, fmt.Errorf("source 不能为空")
	}
	if p.Artifacts == nil {
		return nil, fmt.Errorf("artifact store 不能为空")
	}
	return &Runner{p: p}, nil
}

// Result 一次运行的全部输出快照，各字段均为不可变数据。
type Result struct {
	RunID      string
	Window     int
	Assets     int
	Summaries  []analysis.ReturnSummary
	Matrix     *analysis.CorrelationMatrix
	Ranking    []analysis.AvgCorrelation
	Divergence *analysis.DivergenceResult
	Outliers   analysis.Outliers
	Payload    analysis.ComparisonPayload
}

// Run 执行 拉取 → 对齐 → 收益统计 → 相关性 → 大盘偏离 → 离群筛选。
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	logger.Infof("[run %s] 分析开始", runID)

	series, coins, err := FetchSeries(ctx, FetchParams{
		Source:      r.p.Source,
		Cache:       r.p.Cache,
		Filter:      r.p.Filter,
		Top:         r.p.Top,
		Days:        r.p.Days,
		Concurrency: r.p.Concurrency,
		Refresh:     r.p.Refresh,
	})
	if err != nil {
		return nil, fmt.Errorf("拉取阶段失败: %w", err)
	}
	if err := r.p.Artifacts.PutTable(ctx, store.NameTopCoins, topCoinsTable(coins)); err != nil {
		return nil, err
	}

	return r.Analyze(ctx, runID, series)
}

// Analyze 跳过拉取阶段，直接对给定序列做完整分析。
// 输入为空时返回 analysis.ErrNoData，下游阶段一律不执行。
func (r *Runner) Analyze(ctx context.Context, runID string, series map[string]market.Series) (*Result, error) {
	if runID == "" {
		runID = uuid.NewString()
	}

	prices, returns, err := analysis.Align(series)
	if err != nil {
		return nil, fmt.Errorf("对齐阶段失败: %w", err)
	}
	if err := r.p.Artifacts.PutTable(ctx, store.NamePrices, matrixTable(prices)); err != nil {
		return nil, err
	}
	if err := r.p.Artifacts.PutTable(ctx, store.NameReturns, matrixTable(returns)); err != nil {
		return nil, err
	}

	sums := analysis.Summaries(returns)
	if err := r.p.Artifacts.PutTable(ctx, store.NameAverageReturns, summariesTable(sums)); err != nil {
		return nil, err
	}
	logger.Infof("[run %s] 收益统计完成，共 %d 个币种", runID, len(sums))

	matrix := analysis.Correlate(returns)
	ranking := analysis.AverageRanking(matrix)
	if err := r.p.Artifacts.PutTable(ctx, store.NameCorrelation, correlationTable(matrix)); err != nil {
		return nil, err
	}
	if err := r.p.Artifacts.PutTable(ctx, store.NameAvgCorrelations, avgCorrelationTable(ranking)); err != nil {
		return nil, err
	}
	logger.Infof("[run %s] 相关性矩阵 %dx%d", runID, len(matrix.Symbols), len(matrix.Symbols))

	div := analysis.Diverge(returns)
	if err := r.p.Artifacts.PutTable(ctx, store.NameMarketAverage, marketTable(div.Market)); err != nil {
		return nil, err
	}
	if err := r.p.Artifacts.PutTable(ctx, store.NamePriceDistance, distanceTable(div.Records)); err != nil {
		return nil, err
	}

	outliers := analysis.SelectOutliers(ranking, div.Records, r.p.Thresholds)
	if err := r.p.Artifacts.PutTable(ctx, store.NameUncorrelated, avgCorrelationTable(outliers.LowCorrelation)); err != nil {
		return nil, err
	}
	if err := r.p.Artifacts.PutTable(ctx, store.NameOutOfThreshold, distanceTable(outliers.HighDivergence)); err != nil {
		return nil, err
	}
	logger.Infof("[run %s] 离群: 低相关 %d 个 / 高偏离 %d 个",
		runID, len(outliers.LowCorrelation), len(outliers.HighDivergence))

	payload := analysis.BuildComparison(div, outliers.HighDivergence)
	if err := r.p.Artifacts.PutJSON(ctx, store.NameComparison, payload); err != nil {
		return nil, err
	}

	logger.Infof("[run %s] 分析完成：窗口 %d 天，入选 %d 个币种",
		runID, returns.Days(), len(returns.Symbols))
	return &Result{
		RunID:      runID,
		Window:     returns.Days(),
		Assets:     len(returns.Symbols),
		Summaries:  sums,
		Matrix:     matrix,
		Ranking:    ranking,
		Divergence: div,
		Outliers:   outliers,
		Payload:    payload,
	}, nil
}
