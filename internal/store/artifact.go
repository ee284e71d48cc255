package store

import (
	"context"
	"errors"
	"sync"
)

// 产物名称是与展示层的契约，不可改动。
const (
	NamePrices          = "combined_prices"
	NameReturns         = "combined_returns"
	NameAverageReturns  = "average_returns"
	NameCorrelation     = "correlation_matrix"
	NameAvgCorrelations = "average_correlations"
	NameUncorrelated    = "uncorrelated_coins"
	NameMarketAverage   = "market_average_returns"
	NamePriceDistance   = "price_distance"
	NameOutOfThreshold  = "out_of_threshold_coins"
	NameComparison      = "comparison_data"
	NameTopCoins        = "top_coins"
)

// ErrNotFound 产物不存在。
var ErrNotFound = errors.New("artifact not found")

// Table 表格型产物：列头 + 字符串化的行。
// 未定义统计量（NaN）以空单元格表示。
type Table struct {
	Columns []string
	Rows    [][]string
}

// ArtifactStore 按固定名称读写分析产物，同名写入覆盖旧快照。
type ArtifactStore interface {
	PutTable(ctx context.Context, name string, t Table) error
	Table(ctx context.Context, name string) (Table, error)
	PutJSON(ctx context.Context, name string, v any) error
	JSON(ctx context.Context, name string, out any) error
}

// MemoryStore 内存实现，供测试与同进程阶段间交接。
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]Table
	blobs  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]Table),
		blobs:  make(map[string][]byte),
	}
}

// PutTable 整表替换。
func (s *MemoryStore) PutTable(_ context.Context, name string, t Table) error {
	if name == "" {
		return errors.New("name 不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = copyTable(t)
	return nil
}

// Table 返回拷贝。
func (s *MemoryStore) Table(_ context.Context, name string) (Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return Table{}, ErrNotFound
	}
	return copyTable(t), nil
}

func (s *MemoryStore) PutJSON(_ context.Context, name string, v any) error {
	if name == "" {
		return errors.New("name 不能为空")
	}
	b, err := marshalJSON(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = b
	return nil
}

func (s *MemoryStore) JSON(_ context.Context, name string, out any) error {
	s.mu.RLock()
	b, ok := s.blobs[name]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return unmarshalJSON(b, out)
}

func copyTable(t Table) Table {
	out := Table{Columns: append([]string{}, t.Columns...)}
	out.Rows = make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = append([]string{}, r...)
	}
	return out
}
