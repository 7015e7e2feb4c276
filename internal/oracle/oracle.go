// Package oracle implements the store and price oracles on top of a language model.
package oracle

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/mmynk/cartsaver/internal/llm"
	"github.com/mmynk/cartsaver/internal/metrics"
	"github.com/mmynk/cartsaver/internal/models"
)

//go:embed prompts/stores.md
var storesPrompt string

//go:embed prompts/prices.md
var pricesPrompt string

var (
	storesTmpl = template.Must(template.New("stores").Parse(storesPrompt))
	pricesTmpl = template.Must(template.New("prices").Parse(pricesPrompt))
)

// LLMOracle answers store and price questions by prompting a text generator.
type LLMOracle struct {
	gen       llm.TextGenerator
	metrics   *metrics.Metrics
	maxStores int
}

// New creates an LLMOracle. m may be nil.
func New(gen llm.TextGenerator, m *metrics.Metrics, maxStores int) *LLMOracle {
	if maxStores <= 0 {
		maxStores = 5
	}
	return &LLMOracle{gen: gen, metrics: m, maxStores: maxStores}
}

type storesPromptData struct {
	Latitude  float64
	Longitude float64
	MaxStores int
	Items     []models.ShoppingItem
}

type pricesPromptData struct {
	Latitude  float64
	Longitude float64
	Store     models.StoreCandidate
	Items     []models.ShoppingItem
}

type rawStores struct {
	Stores []models.StoreCandidate `json:"stores"`
}

type rawPrices struct {
	Prices []struct {
		ItemID       string   `json:"item_id"`
		Price        *float64 `json:"price"`
		PricePerUnit bool     `json:"price_per_unit"`
		Availability string   `json:"availability"`
		Confidence   int      `json:"confidence"`
		Brand        string   `json:"brand"`
	} `json:"prices"`
}

// FindCandidateStores asks the model for stores near loc likely to carry items.
func (o *LLMOracle) FindCandidateStores(ctx context.Context, items []models.ShoppingItem, loc models.Location) ([]models.StoreCandidate, error) {
	prompt, err := render(storesTmpl, storesPromptData{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		MaxStores: o.maxStores,
		Items:     items,
	})
	if err != nil {
		return nil, err
	}

	content, err := o.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var raw rawStores
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse store oracle response: %w. Response: %s", err, content)
	}

	stores := make([]models.StoreCandidate, 0, len(raw.Stores))
	for _, s := range raw.Stores {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			continue
		}
		stores = append(stores, s)
	}
	return stores, nil
}

// EstimatePrices asks the model for per-item prices at one store.
func (o *LLMOracle) EstimatePrices(ctx context.Context, store models.StoreCandidate, items []models.ShoppingItem, loc models.Location) ([]models.PriceQuote, error) {
	prompt, err := render(pricesTmpl, pricesPromptData{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Store:     store,
		Items:     items,
	})
	if err != nil {
		return nil, err
	}

	content, err := o.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var raw rawPrices
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse price oracle response for %s: %w. Response: %s", store.Name, err, content)
	}

	quotes := make([]models.PriceQuote, 0, len(raw.Prices))
	for _, p := range raw.Prices {
		if p.ItemID == "" || p.Price == nil {
			slog.Debug("Dropping incomplete price estimate", "store", store.Name, "item_id", p.ItemID)
			continue
		}
		quotes = append(quotes, models.PriceQuote{
			ItemID:       p.ItemID,
			Store:        store.Name,
			Price:        *p.Price,
			PricePerUnit: p.PricePerUnit,
			Availability: parseAvailability(p.Availability),
			Confidence:   p.Confidence,
			Brand:        strings.TrimSpace(p.Brand),
		})
	}
	return quotes, nil
}

func (o *LLMOracle) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.gen.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}
	o.metrics.AddTokens(resp.Usage.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return llm.ExtractJSON(resp.Content), nil
}

// parseAvailability maps free-form model output onto the four known values.
// Anything unrecognized is treated as uncertain.
func parseAvailability(s string) models.Availability {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	switch models.Availability(norm) {
	case models.AvailabilityAvailable, models.AvailabilityLikelyAvailable,
		models.AvailabilityUncertain, models.AvailabilityUnavailable:
		return models.Availability(norm)
	case "in_stock":
		return models.AvailabilityAvailable
	case "out_of_stock", "not_available":
		return models.AvailabilityUnavailable
	default:
		return models.AvailabilityUncertain
	}
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
