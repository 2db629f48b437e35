// Package seed holds the demo data set shipped with the binary.
package seed

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed fixture.yaml
var defaultFixture []byte

type Fixture struct {
	Admin      Account        `yaml:"admin"`
	Locations  []string       `yaml:"locations"`
	Categories []CategorySeed `yaml:"categories"`
	Stock      StockSeed      `yaml:"stock"`
	Forecasts  ForecastSeed   `yaml:"forecasts"`
}

type Account struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type CategorySeed struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Perishable  bool          `yaml:"perishable"`
	Products    []ProductSeed `yaml:"products"`
}

type ProductSeed struct {
	Name      string  `yaml:"name"`
	SKU       string  `yaml:"sku"`
	UnitPrice float64 `yaml:"unit_price"`
}

type IntRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

type FloatRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type StockSeed struct {
	BatchesPerProduct   int      `yaml:"batches_per_product"`
	Quantity            IntRange `yaml:"quantity"`
	ManufacturedDaysAgo IntRange `yaml:"manufactured_days_ago"`
	ExpiresInDays       IntRange `yaml:"expires_in_days"`
}

type ForecastSeed struct {
	OffsetsDays []int      `yaml:"offsets_days"`
	Demand      IntRange   `yaml:"demand"`
	Confidence  FloatRange `yaml:"confidence"`
}

// Default returns the embedded fixture.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

func Parse(raw []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) Validate() error {
	if f.Admin.Username == "" || f.Admin.Password == "" {
		return errors.New("seed fixture: admin username and password are required")
	}
	if len(f.Locations) == 0 {
		return errors.New("seed fixture: at least one location is required")
	}
	for _, r := range []IntRange{f.Stock.Quantity, f.Stock.ManufacturedDaysAgo, f.Stock.ExpiresInDays, f.Forecasts.Demand} {
		if r.Min > r.Max || r.Min < 0 {
			return fmt.Errorf("seed fixture: bad range %d..%d", r.Min, r.Max)
		}
	}
	if f.Forecasts.Confidence.Min > f.Forecasts.Confidence.Max {
		return errors.New("seed fixture: bad confidence range")
	}
	return nil
}

// ProductCount is the number of products across categories.
func (f *Fixture) ProductCount() int {
	n := 0
	for _, c := range f.Categories {
		n += len(c.Products)
	}
	return n
}
