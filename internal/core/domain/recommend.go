package domain

import "fmt"

const (
	AdviceTableScan = "Full table scan detected: consider adding an index on the filtered columns"
	AdviceOptimized = "Query looks optimized"
)

// Recommender turns a plan and a measured duration into advisories.
type Recommender struct {
	Dialect     Dialect
	ThresholdMS int64
}

func NewRecommender(dialect Dialect, thresholdMS int64) Recommender {
	return Recommender{Dialect: dialect, ThresholdMS: thresholdMS}
}

// Recommend evaluates every rule in a fixed order and always returns at least one entry.
func (r Recommender) Recommend(plan []PlanStep, durationMS int64) []string {
	var out []string

	if r.Dialect.ScansTable(plan) {
		out = append(out, AdviceTableScan)
	}

	if IsSlow(durationMS, r.ThresholdMS) {
		out = append(out, SlowAdvice(durationMS, r.ThresholdMS))
	}

	if len(out) == 0 {
		out = append(out, AdviceOptimized)
	}
	return out
}

// SlowAdvice formats the slow-query advisory with the measured duration.
func SlowAdvice(durationMS, thresholdMS int64) string {
	return fmt.Sprintf("Slow query: took %dms (threshold %dms)", durationMS, thresholdMS)
}
