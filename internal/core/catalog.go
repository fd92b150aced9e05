package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BudgetLimit is the monthly limit of one category. A zero limit means the
// category has no limit.
type BudgetLimit struct {
	Category Category
	Limit    decimal.Decimal
}

// Catalog is the fixed, ordered set of categories with their limits. It is
// built once at startup and only read afterwards.
type Catalog struct {
	order  []Category
	limits map[Category]decimal.Decimal
}

// NewCatalog validates entries and builds a catalog in the given order.
func NewCatalog(entries []BudgetLimit) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, errors.New("catalog must contain at least one category")
	}
	c := &Catalog{
		order:  make([]Category, 0, len(entries)),
		limits: make(map[Category]decimal.Decimal, len(entries)),
	}
	for _, e := range entries {
		name := Category(strings.TrimSpace(string(e.Category)))
		if name == "" {
			return nil, errors.New("category name cannot be empty")
		}
		if _, dup := c.limits[name]; dup {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		if e.Limit.IsNegative() {
			return nil, fmt.Errorf("category %q: limit cannot be negative", name)
		}
		c.order = append(c.order, name)
		c.limits[name] = e.Limit
	}
	return c, nil
}

// MustCatalog is NewCatalog for static tables.
func MustCatalog(entries []BudgetLimit) *Catalog {
	c, err := NewCatalog(entries)
	if err != nil {
		panic(err)
	}
	return c
}

// Categories returns the categories in display order.
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.order...)
}

// Len returns the number of categories.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Lookup matches free text against the category set exactly.
func (c *Catalog) Lookup(text string) (Category, error) {
	cat := Category(text)
	if _, ok := c.limits[cat]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, text)
	}
	return cat, nil
}

// Contains reports whether cat belongs to the catalog.
func (c *Catalog) Contains(cat Category) bool {
	_, ok := c.limits[cat]
	return ok
}

// Limit returns the monthly limit of cat; zero when absent or unlimited.
func (c *Catalog) Limit(cat Category) decimal.Decimal {
	return c.limits[cat]
}

// DefaultCatalog is the family budget the bot has been running with.
func DefaultCatalog() *Catalog {
	return MustCatalog([]BudgetLimit{
		{Category: "Оренда", Limit: decimal.NewFromInt(8000)},
		{Category: "Інвестиції", Limit: decimal.NewFromInt(2522)},
		{Category: "Няня/Садок", Limit: decimal.NewFromInt(4000)},
		{Category: "Накопичення", Limit: decimal.NewFromInt(10600)},
		{Category: "Харчування + Побут/гігієна", Limit: decimal.NewFromInt(2170)},
		{Category: "Шопінг", Limit: decimal.NewFromInt(742)},
		{Category: "Розваги/заклади", Limit: decimal.NewFromInt(1060)},
		{Category: "Спорт", Limit: decimal.NewFromInt(244)},
		{Category: "Медецина", Limit: decimal.NewFromInt(870)},
		{Category: "Авто(бенз)", Limit: decimal.NewFromInt(708)},
		{Category: "Резерв непередбачування", Limit: decimal.NewFromInt(1272)},
	})
}
