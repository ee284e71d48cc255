package analysis

// 默认阈值沿用运营侧约定，可由配置覆盖。
const (
	DefaultCorrelationThreshold = 0.3
	DefaultDistanceThreshold    = 0.3
)

// Thresholds 离群筛选阈值，运行期配置。
type Thresholds struct {
	Correlation float64
	Distance    float64
}

func (t Thresholds) withDefaults() Thresholds {
	out := t
	if out.Correlation == 0 {
		out.Correlation = DefaultCorrelationThreshold
	}
	if out.Distance == 0 {
		out.Distance = DefaultDistanceThreshold
	}
	return out
}

// Outliers 两类离群币种集合，保持上游引擎给定的排序。
type Outliers struct {
	LowCorrelation []AvgCorrelation
	HighDivergence []DivergenceRecord
}

// SelectOutliers 纯阈值过滤，不做任何重算或重排。
// 平均相关度严格小于阈值、偏离度严格大于阈值才入选；
// NaN 不满足任何比较，自然落选。
func SelectOutliers(ranking []AvgCorrelation, records []DivergenceRecord, t Thresholds) Outliers {
	t = t.withDefaults()
	var out Outliers
	for _, r := range ranking {
		if r.Value < t.Correlation {
			out.LowCorrelation = append(out.LowCorrelation, r)
		}
	}
	for _, d := range records {
		if d.Distance > t.Distance {
			out.HighDivergence = append(out.HighDivergence, d)
		}
	}
	return out
}
