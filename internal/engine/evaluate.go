package engine

import (
	"math"
	"sort"
)

// Scenario is one offline evaluation case: a user, a held-out set of
// videos considered relevant (e.g. later liked or fully watched), and
// the cutoff k used for precision/recall/NDCG.
type Scenario struct {
	UserID   string
	Relevant map[string]struct{}
	K        int
}

// ScenarioResult holds the per-scenario metrics computed by Evaluate.
type ScenarioResult struct {
	UserID       string
	PrecisionAtK float64
	RecallAtK    float64
	NDCGAtK      float64
}

// EvaluationReport aggregates ScenarioResults with their means, the
// quantity the engagement feedback loop surfaces as
// recommendationQuality.
type EvaluationReport struct {
	Results       []ScenarioResult
	MeanPrecision float64
	MeanRecall    float64
	MeanNDCG      float64
}

// Evaluate runs the ranker against each scenario's user, scores the
// ranked list against that scenario's relevant set, and aggregates.
// Relevance is binary: a recommended video is either in Relevant or not,
// so gain is 0/1 and ndcgAtK reduces to DCG over a 0/1 gain
// vector rather than the graded (2^rel - 1) form.
func (e *Engine) Evaluate(scenarios []Scenario) (*EvaluationReport, error) {
	report := &EvaluationReport{Results: make([]ScenarioResult, 0, len(scenarios))}
	err := e.store.WithSnapshot(func(snap *Snapshot) error {
		for _, sc := range scenarios {
			k := sc.K
			if k <= 0 {
				k = 10
			}
			recommended := e.ranker.Rank(snap, sc.UserID, k)
			relevances := make([]int, len(recommended))
			for i, v := range recommended {
				if _, ok := sc.Relevant[v.ID]; ok {
					relevances[i] = 1
				}
			}
			report.Results = append(report.Results, ScenarioResult{
				UserID:       sc.UserID,
				PrecisionAtK: precisionAtK(relevances, k),
				RecallAtK:    recallAtK(relevances, k, len(sc.Relevant)),
				NDCGAtK:      ndcgAtK(relevances, k),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(report.Results) == 0 {
		return report, nil
	}
	var sumP, sumR, sumN float64
	for _, r := range report.Results {
		sumP += r.PrecisionAtK
		sumR += r.RecallAtK
		sumN += r.NDCGAtK
	}
	count := float64(len(report.Results))
	report.MeanPrecision = sumP / count
	report.MeanRecall = sumR / count
	report.MeanNDCG = sumN / count
	return report, nil
}

// precisionAtK: relevant items in the top k / k.
func precisionAtK(relevances []int, k int) float64 {
	if k <= 0 {
		return 0
	}
	limit := k
	if limit > len(relevances) {
		limit = len(relevances)
	}
	relevant := 0
	for i := 0; i < limit; i++ {
		if relevances[i] > 0 {
			relevant++
		}
	}
	return float64(relevant) / float64(k)
}

// recallAtK: relevant items in the top k / total relevant items.
func recallAtK(relevances []int, k, totalRelevant int) float64 {
	if totalRelevant <= 0 || k <= 0 {
		return 0
	}
	limit := k
	if limit > len(relevances) {
		limit = len(relevances)
	}
	relevant := 0
	for i := 0; i < limit; i++ {
		if relevances[i] > 0 {
			relevant++
		}
	}
	return float64(relevant) / float64(totalRelevant)
}

// ndcgAtK: DCG over the actual ranking divided by DCG over the ideal
// (sorted descending) ranking, using a 0/1 gain and the standard
// 1/log2(i+2) rank discount.
func ndcgAtK(relevances []int, k int) float64 {
	if len(relevances) == 0 || k <= 0 {
		return 0
	}
	dcg := dcgAtK(relevances, k)

	ideal := append([]int(nil), relevances...)
	sort.Sort(sort.Reverse(sort.IntSlice(ideal)))
	idcg := dcgAtK(ideal, k)

	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

func dcgAtK(relevances []int, k int) float64 {
	limit := k
	if limit > len(relevances) {
		limit = len(relevances)
	}
	var dcg float64
	for i := 0; i < limit; i++ {
		gain := float64(relevances[i])
		discount := math.Log2(float64(i + 2))
		dcg += gain / discount
	}
	return dcg
}
