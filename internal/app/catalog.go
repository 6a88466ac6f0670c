package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/brickflow/brickflow/internal/requisition"
)

// BrickTypeSeeder stores catalogue entries, matching existing rows by name.
type BrickTypeSeeder interface {
	SeedBrickType(ctx context.Context, b requisition.BrickType) (requisition.BrickType, error)
}

type catalogFile struct {
	BrickTypes []struct {
		Name         string `yaml:"name"`
		CurrentPrice string `yaml:"current_price"`
		Active       *bool  `yaml:"active"`
	} `yaml:"brick_types"`
}

// LoadCatalog reads brick types from a YAML catalogue. Entries default to active.
func LoadCatalog(path string) ([]requisition.BrickType, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	out := make([]requisition.BrickType, 0, len(file.BrickTypes))
	for i, entry := range file.BrickTypes {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog entry %d: name required", i)
		}
		price, err := decimal.NewFromString(entry.CurrentPrice)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %q: price: %w", name, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("catalog entry %q: price must not be negative", name)
		}
		active := true
		if entry.Active != nil {
			active = *entry.Active
		}
		out = append(out, requisition.BrickType{Name: name, CurrentPrice: price.Round(2), Active: active})
	}
	return out, nil
}

// SeedCatalog loads path and stores every entry through seeder.
func SeedCatalog(ctx context.Context, seeder BrickTypeSeeder, path string) (int, error) {
	items, err := LoadCatalog(path)
	if err != nil {
		return 0, err
	}
	for _, b := range items {
		if _, err := seeder.SeedBrickType(ctx, b); err != nil {
			return 0, fmt.Errorf("seed brick type %q: %w", b.Name, err)
		}
	}
	return len(items), nil
}
