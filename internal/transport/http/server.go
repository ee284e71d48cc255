package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"corrwatch/internal/analysis"
	"corrwatch/internal/pipeline"
	"corrwatch/internal/transport/http/ui"

	"github.com/gin-gonic/gin"
)

// Server 提供仪表盘与分析结果查询接口。
// 最新结果由 Publish 整体替换，各 handler 只读快照，无部分更新。
type Server struct {
	addr      string
	router    *gin.Engine
	indexHTML []byte

	mu        sync.RWMutex
	result    *pipeline.Result
	updatedAt time.Time
}

type Config struct {
	Addr string
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":8087"
	}
	staticFS, err := ui.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("加载前端静态资源失败: %w", err)
	}
	indexHTML, err := ui.Index()
	if err != nil {
		return nil, fmt.Errorf("加载前端首页失败: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.StaticFS("/static", staticFS)

	s := &Server{
		addr:      cfg.Addr,
		router:    router,
		indexHTML: indexHTML,
	}
	s.registerRoutes()
	return s, nil
}

// Publish 发布一次运行的完整结果，供后续请求读取。
func (s *Server) Publish(res *pipeline.Result) {
	s.mu.Lock()
	s.result = res
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

func (s *Server) snapshot() (*pipeline.Result, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.updatedAt
}

func (s *Server) registerRoutes() {
	s.router.GET("/", s.handleIndex)
	api := s.router.Group("/api")
	api.GET("/summary", s.handleSummary)
	api.GET("/comparison-data", s.handleComparison)
	api.GET("/uncorrelated-coins", s.handleUncorrelated)
	api.GET("/price-distance-coins", s.handlePriceDistance)
	api.GET("/average-returns", s.handleAverageReturns)
	api.GET("/correlation-matrix", s.handleCorrelationMatrix)
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.indexHTML)
}

func (s *Server) handleSummary(c *gin.Context) {
	res, at := s.snapshot()
	if res == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "分析结果尚未生成"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":               res.RunID,
		"window_days":          res.Window,
		"assets":               res.Assets,
		"uncorrelated_count":   len(res.Outliers.LowCorrelation),
		"price_distance_count": len(res.Outliers.HighDivergence),
		"updated_at":           at.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleComparison(c *gin.Context) {
	res, _ := s.snapshot()
	if res == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "分析结果尚未生成"})
		return
	}
	c.JSON(http.StatusOK, res.Payload)
}

// avgCorrelationEntry 低相关币种响应，NaN 序列化为 null。
type avgCorrelationEntry struct {
	Symbol         string             `json:"symbol"`
	AvgCorrelation analysis.NullFloat `json:"avg_correlation"`
}

func (s *Server) handleUncorrelated(c *gin.Context) {
	res, _ := s.snapshot()
	if res == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "分析结果尚未生成"})
		return
	}
	// 与前端契约一致：裸数组，而非包一层对象。
	out := make([]avgCorrelationEntry, 0, len(res.Outliers.LowCorrelation))
	for _, r := range res.Outliers.LowCorrelation {
		out = append(out, avgCorrelationEntry{Symbol: r.Symbol, AvgCorrelation: analysis.NullFloat(r.Value)})
	}
	c.JSON(http.StatusOK, out)
}

type distanceEntry struct {
	Symbol           string             `json:"symbol"`
	CumulativeReturn analysis.NullFloat `json:"cumulative_return"`
	MarketReturn     analysis.NullFloat `json:"market_return"`
	PriceDistance    analysis.NullFloat `json:"price_distance"`
	RelativeDistance analysis.NullFloat `json:"relative_distance"`
}

func (s *Server) handlePriceDistance(c *gin.Context) {
	res, _ := s.snapshot()
	if res == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "分析结果尚未生成"})
		return
	}
	out := make([]distanceEntry, 0, len(res.Outliers.HighDivergence))
	for _, d := range res.Outliers.HighDivergence {
		out = append(out, distanceEntry{
			Symbol:           d.Symbol,
			CumulativeReturn: analysis.NullFloat(d.Cumulative),
			MarketReturn:     analysis.NullFloat(d.MarketReturn),
			PriceDistance:    analysis.NullFloat(d.Distance),
			RelativeDistance: analysis.NullFloat(d.RelativeDistance),
		})
	}
	c.JSON(http.StatusOK, out)
}

type returnEntry struct {
	Symbol      string             `json:"symbol"`
	MeanDaily   analysis.NullFloat `json:"avg_daily_return"`
	StdDaily    analysis.NullFloat `json:"std_daily_return"`
	Cumulative  analysis.NullFloat `json:"cumulative_return"`
	Annualized  analysis.NullFloat `json:"annualized_return"`
	SharpeRatio analysis.NullFloat `json:"sharpe_ratio"`
}

func (s *Server) handleAverageReturns(c *gin.Context) {
	res, _ := s.snapshot()
	if res == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "分析结果尚未生成"})
		return
	}
	// 以 symbol 为键的映射，前端按币种直接索引。
	out := make(map[string]returnEntry, len(res.Summaries))
	for _, r := range res.Summaries {
		out[r.Symbol] = returnEntry{
			Symbol:      r.Symbol,
			MeanDaily:   analysis.NullFloat(r.MeanDaily),
			StdDaily:    analysis.NullFloat(r.StdDaily),
			Cumulative:  analysis.NullFloat(r.Cumulative),
			Annualized:  analysis.NullFloat(r.Annualized),
			SharpeRatio: analysis.NullFloat(r.SharpeRatio),
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCorrelationMatrix(c *gin.Context) {
	res, _ := s.snapshot()
	if res == nil || res.Matrix == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "分析结果尚未生成"})
		return
	}
	cells := make([][]analysis.NullFloat, len(res.Matrix.Cells))
	for i, row := range res.Matrix.Cells {
		out := make([]analysis.NullFloat, len(row))
		for j, v := range row {
			out[j] = analysis.NullFloat(v)
		}
		cells[i] = out
	}
	c.JSON(http.StatusOK, gin.H{"symbols": res.Matrix.Symbols, "matrix": cells})
}

// Start 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
