// internal/bot/catalog/matcher.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"orderbot/internal/models"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Searcher finds catalog products for a resolved requirement.
type Searcher interface {
	Search(ctx context.Context, quantity, budget int, preferences []string, limit int) ([]models.Product, error)
}

// Matcher ranks catalog products against quantity, budget and preference
// tags. Pricing tiers are volume-banded, so the effective per-piece price
// depends on the requested quantity.
type Matcher struct {
	db     *sql.DB
	logger Logger
}

func NewMatcher(db *sql.DB, log Logger) *Matcher {
	return &Matcher{db: db, logger: log}
}

const searchQuery = `
		SELECT p.id, p.name, p.category, p.image_url, p.min_order,
		       pt.quantity_range, pt.price_per_piece
		FROM products p
		JOIN pricing_tiers pt ON p.id = pt.product_id
		WHERE p.min_order <= $1
		ORDER BY p.id, pt.price_per_piece`

type tierRow struct {
	quantityRange string
	price         int
}

type productRow struct {
	product models.Product
	tiers   []tierRow
}

// Search returns up to limit products that can serve the quantity within
// the per-piece budget, best match first. A limit of 0 means no cap.
func (m *Matcher) Search(ctx context.Context, quantity, budget int, preferences []string, limit int) ([]models.Product, error) {
	rows, err := m.db.QueryContext(ctx, searchQuery, quantity)
	if err != nil {
		m.logger.Error("catalog query failed", map[string]interface{}{
			"quantity": quantity,
			"error":    err.Error(),
		})
		return nil, fmt.Errorf("catalog query: %w", err)
	}
	defer rows.Close()

	var grouped []productRow
	for rows.Next() {
		var (
			p        models.Product
			imageURL sql.NullString
			tier     tierRow
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &imageURL, &p.MinOrder, &tier.quantityRange, &tier.price); err != nil {
			m.logger.Error("catalog scan failed", map[string]interface{}{
				"error": err.Error(),
			})
			return nil, fmt.Errorf("catalog scan: %w", err)
		}
		p.ImageURL = imageURL.String

		if n := len(grouped); n > 0 && grouped[n-1].product.ID == p.ID {
			grouped[n-1].tiers = append(grouped[n-1].tiers, tier)
		} else {
			grouped = append(grouped, productRow{product: p, tiers: []tierRow{tier}})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog rows: %w", err)
	}

	var results []models.Product
	for _, row := range grouped {
		price, ok := effectivePrice(row.tiers, quantity, budget)
		if !ok || price > budget {
			continue
		}
		p := row.product
		p.Price = price
		p.RelevanceScore = score(p.Category, price, budget, preferences)
		results = append(results, p)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	m.logger.Info("catalog search completed", map[string]interface{}{
		"quantity": quantity,
		"budget":   budget,
		"matches":  len(results),
	})
	return results, nil
}

// effectivePrice walks the tiers (cheapest first) and picks the per-piece
// price for the requested quantity. Open-ended "N+" bands keep matching as
// cheaper high-volume tiers appear; a closed "N-M" band is exact and stops
// the walk. Bands in neither shape fall back to affordability.
func effectivePrice(tiers []tierRow, quantity, budget int) (int, bool) {
	price := 0
	found := false

	for _, t := range tiers {
		rangeText := strings.TrimSpace(t.quantityRange)
		switch {
		case strings.Contains(rangeText, "+"):
			min, err := strconv.Atoi(strings.TrimSpace(strings.Split(rangeText, "+")[0]))
			if err != nil {
				continue
			}
			if quantity >= min {
				price = t.price
				found = true
			}
		case strings.Contains(rangeText, "-"):
			parts := strings.SplitN(rangeText, "-", 2)
			min, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
			maxToken := strings.Fields(parts[1])
			if len(maxToken) == 0 {
				continue
			}
			max, err2 := strconv.Atoi(maxToken[0])
			if err1 != nil || err2 != nil {
				continue
			}
			if quantity >= min && quantity <= max {
				return t.price, true
			}
		default:
			if t.price <= budget {
				price = t.price
				found = true
			}
		}
	}
	return price, found
}

// score starts every affordable product at 100 and layers preference and
// value bonuses on top. Cheaper relative to budget scores higher.
func score(category string, price, budget int, preferences []string) int {
	s := 100
	for _, pref := range preferences {
		switch pref {
		case "eco_friendly":
			if category == "Eco-Friendly" {
				s += 30
			}
		case "traditional":
			if category == "Traditional" || category == "Premium Traditional" {
				s += 25
			}
		case "premium":
			if strings.Contains(category, "Premium") {
				s += 20
			}
		}
	}
	if budget > 0 {
		s += int(math.Round((1 - float64(price)/float64(budget)) * 20))
	}
	return s
}
