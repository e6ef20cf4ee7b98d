package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Age bounds accepted for a spectator.
const (
	MinSpectatorAge = 0
	MaxSpectatorAge = 150
)

// Spectator is one attendee in a booking or price preview.
type Spectator struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
}

// QuoteLine is the price of one spectator.
type QuoteLine struct {
	Age      int             `json:"age"`
	Category string          `json:"category"`
	Factor   decimal.Decimal `json:"factor"`
	Price    decimal.Decimal `json:"price"`
}

// Quote is a priced spectator list.  Total is the sum of the already
// rounded line prices.
type Quote struct {
	BasePrice decimal.Decimal `json:"base_price"`
	Total     decimal.Decimal `json:"total"`
	Lines     []QuoteLine     `json:"lines"`
}

// MarshalJSON renders the price as a two-decimal currency amount.
func (l QuoteLine) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Age      int             `json:"age"`
		Category string          `json:"category"`
		Factor   decimal.Decimal `json:"factor"`
		Price    string          `json:"price"`
	}{l.Age, l.Category, l.Factor, l.Price.StringFixed(2)})
}

// MarshalJSON renders amounts with two decimals.
func (q Quote) MarshalJSON() ([]byte, error) {
	lines := q.Lines
	if lines == nil {
		lines = []QuoteLine{}
	}
	return json.Marshal(struct {
		BasePrice string      `json:"base_price"`
		Total     string      `json:"total"`
		Lines     []QuoteLine `json:"lines"`
	}{q.BasePrice.StringFixed(2), q.Total.StringFixed(2), lines})
}

// RuleSource supplies the age price rules.
type RuleSource interface {
	All(ctx context.Context) ([]model.AgePriceRule, error)
}

// PricingEngine prices spectators against a base price and the age rules.
type PricingEngine struct {
	rules    RuleSource
	fallback string
	timeout  time.Duration
}

// NewPricingEngine builds an engine.  fallbackLabel names the rule used
// for ages no rule covers; when no rule carries that label the first rule
// in scan order is used.
func NewPricingEngine(rules RuleSource, fallbackLabel string, timeout time.Duration) *PricingEngine {
	return &PricingEngine{rules: rules, fallback: fallbackLabel, timeout: timeout}
}

// Price loads the rules and quotes spectators against basePriceCents.
func (p *PricingEngine) Price(ctx context.Context, basePriceCents int64, spectators []Spectator) (Quote, error) {
	if len(spectators) == 0 {
		return Quote{}, invalid("at least one spectator is required")
	}
	ages := make([]int, len(spectators))
	for i, sp := range spectators {
		if err := checkAge(sp.Age); err != nil {
			return Quote{}, err
		}
		ages[i] = sp.Age
	}
	rules, err := p.loadRules(ctx)
	if err != nil {
		return Quote{}, err
	}
	return QuoteWithRules(rules, basePriceCents, ages, p.fallback)
}

func (p *PricingEngine) loadRules(ctx context.Context) ([]model.AgePriceRule, error) {
	ctx, cancel := bounded(ctx, p.timeout)
	defer cancel()
	rules, err := p.rules.All(ctx)
	if err != nil {
		return nil, storageFailure(ctx, "pricing.rules", err)
	}
	return rules, nil
}

// QuoteWithRules is the pure pricing core.  Rules are scanned in ascending
// agemin order (ties by id) and the first covering rule wins.  Line prices
// are rounded half away from zero to cents before summing.
func QuoteWithRules(rules []model.AgePriceRule, basePriceCents int64, ages []int, fallbackLabel string) (Quote, error) {
	if len(rules) == 0 {
		return Quote{}, ErrNoRules
	}
	sorted := make([]model.AgePriceRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].AgeMin != sorted[j].AgeMin {
			return sorted[i].AgeMin < sorted[j].AgeMin
		}
		return sorted[i].ID < sorted[j].ID
	})
	fallback := sorted[0]
	for _, r := range sorted {
		if fallbackLabel != "" && r.Label == fallbackLabel {
			fallback = r
			break
		}
	}

	base := decimal.New(basePriceCents, -2)
	q := Quote{BasePrice: base, Total: decimal.Zero, Lines: make([]QuoteLine, 0, len(ages))}
	for _, age := range ages {
		rule := fallback
		for _, r := range sorted {
			if age >= 0 && r.Matches(uint32(age)) {
				rule = r
				break
			}
		}
		price := base.Mul(rule.Factor).Round(2)
		q.Lines = append(q.Lines, QuoteLine{Age: age, Category: rule.Label, Factor: rule.Factor, Price: price})
		q.Total = q.Total.Add(price)
	}
	return q, nil
}

func checkAge(age int) error {
	if age < MinSpectatorAge || age > MaxSpectatorAge {
		return invalid("age %d is outside %d-%d", age, MinSpectatorAge, MaxSpectatorAge)
	}
	return nil
}
