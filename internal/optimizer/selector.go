package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mmynk/cartsaver/internal/metrics"
	"github.com/mmynk/cartsaver/internal/models"
)

// Selector wraps the store oracle and returns a ranked candidate list.
type Selector struct {
	oracle        StoreOracle
	maxCandidates int
	metrics       *metrics.Metrics
}

// NewSelector creates a Selector returning at most maxCandidates stores.
func NewSelector(oracle StoreOracle, maxCandidates int, m *metrics.Metrics) *Selector {
	if maxCandidates <= 0 {
		maxCandidates = 5
	}
	return &Selector{oracle: oracle, maxCandidates: maxCandidates, metrics: m}
}

// SelectStores calls the store oracle once and returns candidates ordered by
// likelihood, highest first. The returned slice is never nil. A non-nil error
// means discovery failed; callers treat that as "no candidates", not as fatal.
func (s *Selector) SelectStores(ctx context.Context, items []models.ShoppingItem, loc models.Location) ([]models.StoreCandidate, error) {
	start := time.Now()
	raw, err := s.oracle.FindCandidateStores(ctx, items, loc)
	s.metrics.ObserveOracle(metrics.OracleStore, time.Since(start), err)
	if err != nil {
		slog.Warn("Store discovery failed", "error", err, "items_count", len(items))
		return []models.StoreCandidate{}, fmt.Errorf("store oracle: %w", err)
	}

	stores := rankCandidates(raw, s.maxCandidates)
	slog.Debug("Store candidates selected", "returned", len(raw), "kept", len(stores))
	return stores, nil
}

// rankCandidates clamps likelihood to 1-10, drops duplicate names
// (case-insensitive, first wins), sorts by likelihood and truncates.
func rankCandidates(raw []models.StoreCandidate, limit int) []models.StoreCandidate {
	seen := make(map[string]bool, len(raw))
	stores := make([]models.StoreCandidate, 0, len(raw))
	for _, c := range raw {
		c.Name = strings.TrimSpace(c.Name)
		key := strings.ToLower(c.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		c.Likelihood = clamp(c.Likelihood, 1, 10)
		stores = append(stores, c)
	}

	sort.SliceStable(stores, func(i, j int) bool {
		return stores[i].Likelihood > stores[j].Likelihood
	})

	if len(stores) > limit {
		stores = stores[:limit]
	}
	return stores
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
