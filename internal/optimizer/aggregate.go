package optimizer

import (
	"log/slog"
	"strings"

	"github.com/mmynk/cartsaver/internal/calculator"
	"github.com/mmynk/cartsaver/internal/config"
	"github.com/mmynk/cartsaver/internal/models"
)

// Aggregation is the plan built from the filtered quotes.
type Aggregation struct {
	// Plan is always populated, even when it is not viable.
	Plan models.OptimizationPlan

	// Viable is true when the plan clears the plan-wide savings gate.
	Viable bool
}

// Aggregator picks the best quote per item and groups the winners by store.
type Aggregator struct {
	thresholds config.Thresholds
}

// NewAggregator creates an Aggregator using the given gates.
func NewAggregator(t config.Thresholds) *Aggregator {
	return &Aggregator{thresholds: t}
}

type choice struct {
	quote   models.PriceQuote
	total   float64
	savings float64
	rank    int
}

// better orders choices by confidence, then total cost, then store rank.
// Equal choices keep the one seen first.
func (c choice) better(other choice) bool {
	if c.quote.Confidence != other.quote.Confidence {
		return c.quote.Confidence > other.quote.Confidence
	}
	if c.total != other.total {
		return c.total < other.total
	}
	return c.rank < other.rank
}

// Aggregate builds the plan. stores carries the candidate order used for
// ranking and group ordering; locked items land in their current store's group.
func (a *Aggregator) Aggregate(f Filtered, stores []models.StoreCandidate, constraints map[string]models.ItemConstraint) Aggregation {
	rank := make(map[string]int, len(stores))
	for i, s := range stores {
		key := storeKey(s.Name)
		if _, ok := rank[key]; !ok {
			rank[key] = i
		}
	}

	byItem := make(map[string][]models.PriceQuote, len(f.Eligible))
	for _, q := range f.Quotes {
		byItem[q.ItemID] = append(byItem[q.ItemID], q)
	}

	gate := calculator.ItemGate{
		MinSavings:    a.thresholds.ItemMinSavings,
		MinSavingsPct: a.thresholds.ItemMinSavingsPct,
	}

	b := newPlanBuilder(stores)
	for _, item := range f.Eligible {
		best, ok := a.pick(item, byItem[item.ID], constraints[item.ID], gate, rank)
		if !ok {
			continue
		}
		b.add(best.quote.Store, models.PlanItem{
			ItemID:               item.ID,
			OriginalPrice:        item.Price,
			OriginalPricePerUnit: item.PricePerUnit,
			OptimizedPrice:       best.quote.Price,
			PricePerUnit:         best.quote.PricePerUnit,
			Savings:              best.savings,
			Confidence:           best.quote.Confidence,
			Brand:                best.quote.Brand,
		})
	}

	for _, item := range f.PassThrough {
		if item.Store == "" || item.Price == nil {
			continue
		}
		b.add(item.Store, models.PlanItem{
			ItemID:               item.ID,
			OriginalPrice:        item.Price,
			OriginalPricePerUnit: item.PricePerUnit,
			OptimizedPrice:       *item.Price,
			PricePerUnit:         item.PricePerUnit,
			Confidence:           10,
			Brand:                item.Brand,
			Locked:               true,
		})
	}

	plan := b.build()
	return Aggregation{
		Plan:   plan,
		Viable: calculator.Exceeds(plan.TotalPotentialSavings, a.thresholds.PlanMinSavings),
	}
}

func (a *Aggregator) pick(item models.ShoppingItem, quotes []models.PriceQuote, c models.ItemConstraint, gate calculator.ItemGate, rank map[string]int) (choice, bool) {
	var originalTotal float64
	if item.HasPrice() {
		total, err := calculator.TotalCost(*item.Price, item.Quantity, item.PricePerUnit)
		if err != nil {
			slog.Warn("Skipping item with invalid price", "item_id", item.ID, "error", err)
			return choice{}, false
		}
		originalTotal = total
	}

	var best choice
	found := false
	for _, q := range quotes {
		if !q.Availability.Acceptable() || q.Confidence < a.thresholds.MinConfidence {
			continue
		}
		r, ok := rank[storeKey(q.Store)]
		if !ok {
			continue
		}

		total, err := calculator.TotalCost(q.Price, item.Quantity, q.PricePerUnit)
		if err != nil {
			continue
		}
		if c.MaxPrice != nil && calculator.Exceeds(total, *c.MaxPrice) {
			continue
		}

		var savings float64
		if item.HasPrice() {
			savings = calculator.Savings(originalTotal, total)
			if !calculator.MeetsItemGate(savings, originalTotal, gate) {
				continue
			}
		}

		cand := choice{quote: q, total: total, savings: savings, rank: r}
		if !found || cand.better(best) {
			best = cand
			found = true
		}
	}
	return best, found
}

func storeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// planBuilder collects plan items per store, keeping candidate order first
// and any other store in order of first use.
type planBuilder struct {
	groups []*models.StoreGroup
	index  map[string]*models.StoreGroup
	stores []models.StoreCandidate
}

func newPlanBuilder(stores []models.StoreCandidate) *planBuilder {
	return &planBuilder{index: make(map[string]*models.StoreGroup), stores: stores}
}

func (b *planBuilder) add(store string, item models.PlanItem) {
	key := storeKey(store)
	g, ok := b.index[key]
	if !ok {
		g = &models.StoreGroup{StoreName: store}
		for _, s := range b.stores {
			if storeKey(s.Name) == key {
				g.StoreName = s.Name
				g.StoreAddress = s.Address
				g.TravelDistance = s.Distance
				break
			}
		}
		b.index[key] = g
		b.groups = append(b.groups, g)
	}
	g.Items = append(g.Items, item)
}

func (b *planBuilder) build() models.OptimizationPlan {
	plan := models.OptimizationPlan{Groups: []models.StoreGroup{}}

	for _, s := range b.stores {
		if g, ok := b.index[storeKey(s.Name)]; ok {
			plan.Groups = append(plan.Groups, b.finish(g))
			delete(b.index, storeKey(s.Name))
		}
	}
	for _, g := range b.groups {
		if _, ok := b.index[storeKey(g.StoreName)]; ok {
			plan.Groups = append(plan.Groups, b.finish(g))
		}
	}

	totals := make([]float64, len(plan.Groups))
	for i, g := range plan.Groups {
		totals[i] = g.TotalSavings
	}
	plan.TotalPotentialSavings = calculator.Sum(totals...)
	return plan
}

func (b *planBuilder) finish(g *models.StoreGroup) models.StoreGroup {
	savings := make([]float64, len(g.Items))
	for i, item := range g.Items {
		savings[i] = item.Savings
	}
	g.TotalSavings = calculator.Sum(savings...)
	return *g
}
