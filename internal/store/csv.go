package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CSVStore 把表格产物落盘为 <dir>/<name>.csv、JSON 产物为 <name>.json。
// 同名写入覆盖上一次快照。
type CSVStore struct {
	dir string
	mu  sync.Mutex
}

func NewCSVStore(dir string) (*CSVStore, error) {
	if dir == "" {
		return nil, errors.New("dir 不能为空")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建产物目录失败: %w", err)
	}
	return &CSVStore{dir: dir}, nil
}

// Dir 返回产物目录。
func (s *CSVStore) Dir() string { return s.dir }

func (s *CSVStore) PutTable(_ context.Context, name string, t Table) error {
	if name == "" {
		return errors.New("name 不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Create(filepath.Join(s.dir, name+".csv"))
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		f.Close()
		return err
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *CSVStore) Table(_ context.Context, name string) (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(filepath.Join(s.dir, name+".csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return Table{}, ErrNotFound
		}
		return Table{}, err
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return Table{}, err
	}
	if len(records) == 0 {
		return Table{}, nil
	}
	return Table{Columns: records[0], Rows: records[1:]}, nil
}

func (s *CSVStore) PutJSON(_ context.Context, name string, v any) error {
	if name == "" {
		return errors.New("name 不能为空")
	}
	b, err := marshalJSON(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.WriteFile(filepath.Join(s.dir, name+".json"), b, 0o644)
}

func (s *CSVStore) JSON(_ context.Context, name string, out any) error {
	s.mu.Lock()
	b, err := os.ReadFile(filepath.Join(s.dir, name+".json"))
	s.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return unmarshalJSON(b, out)
}

func marshalJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func unmarshalJSON(b []byte, out any) error {
	return json.Unmarshal(b, out)
}

// TeeStore 把写入同时落到多个后端，读取走第一个。
// 流水线用它同时维护内存快照（供 HTTP 层查询）与 CSV 持久化。
type TeeStore struct {
	stores []ArtifactStore
}

func NewTeeStore(stores ...ArtifactStore) *TeeStore {
	return &TeeStore{stores: stores}
}

func (s *TeeStore) PutTable(ctx context.Context, name string, t Table) error {
	for _, st := range s.stores {
		if err := st.PutTable(ctx, name, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *TeeStore) Table(ctx context.Context, name string) (Table, error) {
	if len(s.stores) == 0 {
		return Table{}, ErrNotFound
	}
	return s.stores[0].Table(ctx, name)
}

func (s *TeeStore) PutJSON(ctx context.Context, name string, v any) error {
	for _, st := range s.stores {
		if err := st.PutJSON(ctx, name, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *TeeStore) JSON(ctx context.Context, name string, out any) error {
	if len(s.stores) == 0 {
		return ErrNotFound
	}
	return s.stores[0].JSON(ctx, name, out)
}
