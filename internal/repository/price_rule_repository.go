package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// PriceRuleRepo reads the age_price_rule table.
type PriceRuleRepo struct{ DB *sql.DB }

func NewPriceRuleRepo(db *sql.DB) *PriceRuleRepo { return &PriceRuleRepo{DB: db} }

// All returns every rule ordered by agemin then id, the order in which the
// pricing engine scans them.
func (r *PriceRuleRepo) All(ctx context.Context) ([]model.AgePriceRule, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, label, agemin, agemax, factor FROM age_price_rule ORDER BY agemin, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.AgePriceRule, 0)
	for rows.Next() {
		var rule model.AgePriceRule
		if err := rows.Scan(&rule.ID, &rule.Label, &rule.AgeMin, &rule.AgeMax, &rule.Factor); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}
