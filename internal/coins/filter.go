package coins

import (
	"strings"

	"corrwatch/internal/logger"
	"corrwatch/internal/market"
)

// defaultStablecoins 盯住法币的币种，涨跌天然贴着 0 走，
// 混进篮子会拉低大盘波动、抬高"低相关"误报。
var defaultStablecoins = map[string]struct{}{
	"USDT": {}, "USDC": {}, "DAI": {}, "TUSD": {}, "BUSD": {},
	"FDUSD": {}, "USDE": {}, "USDD": {}, "PYUSD": {}, "FRAX": {},
	"USDP": {}, "GUSD": {},
}

// NormalizeSymbol 统一符号口径：去空白、转大写。
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Filter 分析篮子准入过滤器。零值直接放行所有币种。
type Filter struct {
	// ExcludeStablecoins 为 true 时剔除已知稳定币。
	ExcludeStablecoins bool
	// Exclude 额外的符号黑名单（已规范化）。
	Exclude map[string]struct{}
}

// NewFilter 构建过滤器，denylist 中的符号会被规范化。
func NewFilter(excludeStablecoins bool, denylist []string) Filter {
	f := Filter{ExcludeStablecoins: excludeStablecoins}
	if len(denylist) > 0 {
		f.Exclude = make(map[string]struct{}, len(denylist))
		for _, s := range denylist {
			if sym := NormalizeSymbol(s); sym != "" {
				f.Exclude[sym] = struct{}{}
			}
		}
	}
	return f
}

// Allow 判断单个币种能否进入分析篮子。
func (f Filter) Allow(symbol string) bool {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return false
	}
	if f.ExcludeStablecoins {
		if _, ok := defaultStablecoins[sym]; ok {
			return false
		}
	}
	if f.Exclude != nil {
		if _, ok := f.Exclude[sym]; ok {
			return false
		}
	}
	return true
}

// Apply 过滤榜单，保持原始排序。
func (f Filter) Apply(list []market.CoinInfo) []market.CoinInfo {
	out := make([]market.CoinInfo, 0, len(list))
	for _, c := range list {
		if !f.Allow(c.Symbol) {
			logger.Debugf("[coins] 剔除 %s", c.Symbol)
			continue
		}
		out = append(out, c)
	}
	if dropped := len(list) - len(out); dropped > 0 {
		logger.Infof("[coins] 过滤掉 %d 个币种，剩余 %d", dropped, len(out))
	}
	return out
}
