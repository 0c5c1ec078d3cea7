package models

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// PoolFitnessWeight is the share of the pool hit rate in a report's fitness.
const PoolFitnessWeight = 0.5

// BacktestRecord is the outcome of one replayed period.
type BacktestRecord struct {
	Period      string  `json:"period"`
	HitsPrimary int     `json:"hits_primary"`
	HitsPool    int     `json:"hits_pool"`
	DrawNumbers []int   `json:"draw_numbers"`
	Predicted   Buckets `json:"predicted"`
	Pool        Buckets `json:"pool"`
}

// BacktestReport is the ordered outcome of one backtest run.
type BacktestReport struct {
	RunID   string           `json:"run_id"`
	Records []BacktestRecord `json:"records"`
}

// ReportSummary is the rounded headline view of a report.
type ReportSummary struct {
	Periods         int     `json:"periods"`
	HitRate         float64 `json:"hit_rate"`
	PoolHitRate     float64 `json:"pool_hit_rate"`
	MeanHits        float64 `json:"mean_hits"`
	StdDevHits      float64 `json:"stddev_hits"`
	MeanPoolHits    float64 `json:"mean_pool_hits"`
	StdDevPoolHits  float64 `json:"stddev_pool_hits"`
	BestPeriodHits  int     `json:"best_period_hits"`
	TotalDrawnCount int     `json:"total_drawn_count"`
}

// HitRate is total primary hits over total drawn numbers, 0 when empty.
func (r *BacktestReport) HitRate() float64 {
	return r.rate(func(rec BacktestRecord) int { return rec.HitsPrimary })
}

// PoolHitRate is total pool hits over total drawn numbers, 0 when empty.
func (r *BacktestReport) PoolHitRate() float64 {
	return r.rate(func(rec BacktestRecord) int { return rec.HitsPool })
}

// Fitness is the optimizer objective: hit rate plus half the pool hit rate.
func (r *BacktestReport) Fitness() float64 {
	return r.HitRate() + PoolFitnessWeight*r.PoolHitRate()
}

func (r *BacktestReport) rate(hits func(BacktestRecord) int) float64 {
	if r == nil || len(r.Records) == 0 {
		return 0
	}
	total, drawn := 0, 0
	for _, rec := range r.Records {
		total += hits(rec)
		drawn += len(rec.DrawNumbers)
	}
	if drawn == 0 {
		return 0
	}
	return float64(total) / float64(drawn)
}

// Summary returns the report headline with rates rounded to four places.
func (r *BacktestReport) Summary() ReportSummary {
	s := ReportSummary{
		Periods:     len(r.Records),
		HitRate:     round4(r.HitRate()),
		PoolHitRate: round4(r.PoolHitRate()),
	}
	if len(r.Records) == 0 {
		return s
	}

	hits := make([]float64, len(r.Records))
	pool := make([]float64, len(r.Records))
	for i, rec := range r.Records {
		hits[i] = float64(rec.HitsPrimary)
		pool[i] = float64(rec.HitsPool)
		s.TotalDrawnCount += len(rec.DrawNumbers)
		if rec.HitsPrimary > s.BestPeriodHits {
			s.BestPeriodHits = rec.HitsPrimary
		}
	}
	s.MeanHits = round4(stat.Mean(hits, nil))
	s.MeanPoolHits = round4(stat.Mean(pool, nil))
	if len(r.Records) > 1 {
		s.StdDevHits = round4(stat.StdDev(hits, nil))
		s.StdDevPoolHits = round4(stat.StdDev(pool, nil))
	}
	return s
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
