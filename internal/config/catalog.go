package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"familybudget/internal/core"
)

type catalogFile struct {
	Categories []catalogEntry `yaml:"categories"`
}

type catalogEntry struct {
	Name  string      `yaml:"name"`
	Limit yamlDecimal `yaml:"limit"`
}

// yamlDecimal keeps limits exact instead of going through float64.
type yamlDecimal struct {
	decimal.Decimal
}

func (d *yamlDecimal) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: limit must be a number", value.Line)
	}
	v, err := decimal.NewFromString(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: limit %q is not a number", value.Line, value.Value)
	}
	d.Decimal = v
	return nil
}

// LoadCatalog reads the budget catalog from a YAML file. File order is the
// display order.
func LoadCatalog(path string) (*core.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read budget catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog builds a catalog from YAML document bytes.
func ParseCatalog(data []byte) (*core.Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse budget catalog: %w", err)
	}
	entries := make([]core.BudgetLimit, 0, len(file.Categories))
	for _, c := range file.Categories {
		entries = append(entries, core.BudgetLimit{Category: core.Category(c.Name), Limit: c.Limit.Decimal})
	}
	catalog, err := core.NewCatalog(entries)
	if err != nil {
		return nil, fmt.Errorf("invalid budget catalog: %w", err)
	}
	return catalog, nil
}
