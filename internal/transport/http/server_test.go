package httpapi

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"corrwatch/internal/analysis"
	"corrwatch/internal/pipeline"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(Config{Addr: ":0"})
	if err != nil {
		t.Fatalf("NewServer 失败: %v", err)
	}
	return s
}

func testResult() *pipeline.Result {
	return &pipeline.Result{
		RunID:  "test-run",
		Window: 5,
		Assets: 2,
		Summaries: []analysis.ReturnSummary{
			{Symbol: "AAA", MeanDaily: 0.01, StdDaily: 0.02, Cumulative: 0.05, Annualized: 1.0, SharpeRatio: 3.0},
			{Symbol: "BBB", MeanDaily: 0, StdDaily: 0, Cumulative: 0, Annualized: 0, SharpeRatio: math.NaN()},
		},
		Matrix: &analysis.CorrelationMatrix{
			Symbols: []string{"AAA", "BBB"},
			Cells:   [][]float64{{1, math.NaN()}, {math.NaN(), 1}},
		},
		Outliers: analysis.Outliers{
			LowCorrelation: []analysis.AvgCorrelation{{Symbol: "AAA", Value: 0.1}},
			HighDivergence: []analysis.DivergenceRecord{
				{Symbol: "BBB", Cumulative: 0.6, Distance: 0.4, MarketReturn: 0.2, RelativeDistance: 2.0},
			},
		},
		Payload: analysis.ComparisonPayload{
			Dates:     []string{"2024-01-01"},
			MarketAvg: []analysis.NullFloat{analysis.NullFloat(math.NaN())},
			Coins:     map[string]analysis.ComparisonCoin{},
		},
	}
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestServerBeforePublish(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{
		"/api/summary", "/api/comparison-data", "/api/uncorrelated-coins",
		"/api/price-distance-coins", "/api/average-returns", "/api/correlation-matrix",
	} {
		if w := get(t, s, path); w.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s 未发布结果时应返回 503, got %d", path, w.Code)
		}
	}
}

func TestServerIndex(t *testing.T) {
	s := newTestServer(t)
	w := get(t, s, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("首页应返回 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Crypto Correlation Analyzer") {
		t.Fatalf("首页内容不符")
	}
}

func TestServerEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.Publish(testResult())

	w := get(t, s, "/api/summary")
	if w.Code != http.StatusOK {
		t.Fatalf("summary 应返回 200, got %d", w.Code)
	}
	var sum map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("summary 解析失败: %v", err)
	}
	if sum["run_id"] != "test-run" || sum["window_days"].(float64) != 5 {
		t.Fatalf("summary 内容不符: %v", sum)
	}

	// 裸数组契约
	w = get(t, s, "/api/uncorrelated-coins")
	var low []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &low); err != nil {
		t.Fatalf("uncorrelated 应为裸数组: %v", err)
	}
	if len(low) != 1 || low[0]["symbol"] != "AAA" {
		t.Fatalf("uncorrelated 内容不符: %v", low)
	}

	// NaN 必须序列化为 null
	w = get(t, s, "/api/average-returns")
	var rets map[string]map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &rets); err != nil {
		t.Fatalf("average-returns 解析失败: %v", err)
	}
	if rets["BBB"]["sharpe_ratio"] != nil {
		t.Fatalf("NaN 夏普比率应为 null: %v", rets["BBB"])
	}

	w = get(t, s, "/api/correlation-matrix")
	var mat struct {
		Symbols []string    `json:"symbols"`
		Matrix  [][]*float64 `json:"matrix"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &mat); err != nil {
		t.Fatalf("correlation-matrix 解析失败: %v", err)
	}
	if len(mat.Symbols) != 2 || mat.Matrix[0][1] != nil || *mat.Matrix[0][0] != 1 {
		t.Fatalf("correlation-matrix 内容不符: %+v", mat)
	}

	w = get(t, s, "/api/comparison-data")
	if !strings.Contains(w.Body.String(), "null") {
		t.Fatalf("comparison-data 中 NaN 应为 null: %s", w.Body.String())
	}
}
