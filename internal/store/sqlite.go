package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"corrwatch/internal/market"
)

// SeriesStore 用 sqlite 缓存拉取到的日线序列，
// 重复运行时命中缓存的币种不再访问远端。
type SeriesStore struct {
	mu sync.Mutex
	db *sql.DB
}

func OpenSeriesStore(path string) (*SeriesStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite 路径不能为空")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开 sqlite 失败: %w", err)
	}
	s := &SeriesStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SeriesStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS series_points (
            symbol     TEXT NOT NULL,
            name       TEXT NOT NULL DEFAULT '',
            date       TEXT NOT NULL,
            price      REAL NOT NULL,
            volume     REAL NOT NULL DEFAULT 0,
            market_cap REAL NOT NULL DEFAULT 0,
            PRIMARY KEY (symbol, date)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_series_symbol ON series_points(symbol)`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("建表失败: %w", err)
		}
	}
	return nil
}

// PutSeries 整体替换一个币种的缓存序列。
func (s *SeriesStore) PutSeries(ctx context.Context, series market.Series) error {
	sym := strings.ToUpper(strings.TrimSpace(series.Symbol))
	if sym == "" {
		return fmt.Errorf("symbol 不能为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM series_points WHERE symbol=?`, sym); err != nil {
		tx.Rollback()
		return err
	}
	for _, p := range series.Points {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO series_points (symbol, name, date, price, volume, market_cap)
            VALUES (?, ?, ?, ?, ?, ?)`,
			sym, series.Name, p.Date.UTC().Format("2006-01-02"), p.Price, p.Volume, p.MarketCap)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Series 读取单个币种的缓存序列，缓存未命中返回 ErrNotFound。
func (s *SeriesStore) Series(ctx context.Context, symbol string) (market.Series, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
        SELECT name, date, price, volume, market_cap
        FROM series_points WHERE symbol=? ORDER BY date ASC`, sym)
	if err != nil {
		return market.Series{}, err
	}
	defer rows.Close()

	var name string
	var points []market.PricePoint
	for rows.Next() {
		var dateStr string
		var p market.PricePoint
		if err := rows.Scan(&name, &dateStr, &p.Price, &p.Volume, &p.MarketCap); err != nil {
			return market.Series{}, err
		}
		d, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			return market.Series{}, fmt.Errorf("缓存日期非法 %q: %w", dateStr, err)
		}
		p.Date = d
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return market.Series{}, err
	}
	if len(points) == 0 {
		return market.Series{}, ErrNotFound
	}
	return market.NewSeries(sym, name, points)
}

// Symbols 返回已缓存的币种列表（升序）。
func (s *SeriesStore) Symbols(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM series_points`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (s *SeriesStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
