package pipeline

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"corrwatch/internal/coins"
	"corrwatch/internal/logger"
	"corrwatch/internal/market"
	"corrwatch/internal/store"
)

// FetchParams 描述一次历史数据拉取。
type FetchParams struct {
	Source      market.Source
	Cache       *store.SeriesStore // 可为 nil
	Filter      coins.Filter       // 零值放行所有币种
	Top         int
	Days        int
	Concurrency int
	Refresh     bool // true 时无视缓存强制重拉
}

// FetchSeries 拉取榜单与逐币历史。命中缓存的币种直接复用；
// 单个币种失败只记日志跳过，不中断整体拉取。
func FetchSeries(ctx context.Context, p FetchParams) (map[string]market.Series, []market.CoinInfo, error) {
	list, err := p.Source.TopCoins(ctx, p.Top)
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("[fetch] 榜单 %d 个币种，来源 %s", len(list), p.Source.Name())
	list = p.Filter.Apply(list)

	cached := make(map[string]struct{})
	if p.Cache != nil && !p.Refresh {
		syms, err := p.Cache.Symbols(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, s := range syms {
			cached[s] = struct{}{}
		}
		logger.Infof("[fetch] 缓存已有 %d 个币种", len(cached))
	}

	var mu sync.Mutex
	result := make(map[string]market.Series, len(list))

	g, gctx := errgroup.WithContext(ctx)
	limit := p.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, coin := range list {
		coin := coin
		g.Go(func() error {
			series, hit, err := fetchOne(gctx, p, coin, cached)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				logger.Errorf("[fetch] %s 拉取失败，跳过: %v", coin.Symbol, err)
				return nil
			}
			if hit {
				logger.Debugf("[fetch] %s 命中缓存（%d 天）", series.Symbol, series.Len())
			} else {
				logger.Infof("[fetch] %s 拉取成功（%d 天）", series.Symbol, series.Len())
			}
			mu.Lock()
			result[series.Symbol] = series
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return result, list, nil
}

func fetchOne(ctx context.Context, p FetchParams, coin market.CoinInfo, cached map[string]struct{}) (market.Series, bool, error) {
	sym := coins.NormalizeSymbol(coin.Symbol)
	if _, ok := cached[sym]; ok && p.Cache != nil {
		series, err := p.Cache.Series(ctx, sym)
		if err == nil {
			return series, true, nil
		}
		// 缓存损坏时退回远端
		logger.Warnf("[fetch] %s 缓存读取失败，改走远端: %v", sym, err)
	}
	series, err := p.Source.DailyHistory(ctx, coin, p.Days)
	if err != nil {
		return market.Series{}, false, err
	}
	if series.Len() == 0 {
		return market.Series{}, false, errors.New("远端未返回任何数据")
	}
	if p.Cache != nil {
		if err := p.Cache.PutSeries(ctx, series); err != nil {
			logger.Warnf("[fetch] %s 写缓存失败: %v", series.Symbol, err)
		}
	}
	return series, false, nil
}
