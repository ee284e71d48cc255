package market

import "context"

// Source 统一对接外部行情供应商。
type Source interface {
	// TopCoins 拉取按市值排序的前 limit 个币种快照。
	TopCoins(ctx context.Context, limit int) ([]CoinInfo, error)
	// DailyHistory 拉取单个币种最近 days 天的日线序列，按时间升序返回。
	DailyHistory(ctx context.Context, coin CoinInfo, days int) (Series, error)
	// Name 返回数据源标识。
	Name() string
}
