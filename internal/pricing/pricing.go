// Package pricing holds per-provider speech synthesis rates.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/j-veylop/speechcost-tui/internal/models"
)

// ErrInvalidTable is returned when a pricing table fails validation.
var ErrInvalidTable = errors.New("invalid pricing table")

// Rate is the price of one provider and mode.
type Rate struct {
	PerThousandChars float64 `yaml:"per_thousand_chars" validate:"gte=0"`
	PerRequest       float64 `yaml:"per_request" validate:"gte=0"`
}

// Table is the full rate card used by the estimator.
type Table struct {
	Rates                map[models.Provider]map[models.Mode]Rate `yaml:"providers"`
	Currency             string                                   `yaml:"currency" validate:"required,len=3"`
	BatchSize            int                                      `yaml:"batch_size" validate:"gte=1"`
	CacheServePerRequest float64                                  `yaml:"cache_serve_per_request" validate:"gte=0"`
}

var validate = validator.New()

// Default returns the built-in list prices.
func Default() *Table {
	return &Table{
		Currency:             "USD",
		BatchSize:            8,
		CacheServePerRequest: 0.00002,
		Rates: map[models.Provider]map[models.Mode]Rate{
			models.ProviderElevenLabs: {
				models.ModeStandard:  {PerThousandChars: 0.30, PerRequest: 0.0004},
				models.ModeStreaming: {PerThousandChars: 0.30, PerRequest: 0.0008},
			},
			models.ProviderOpenAI: {
				models.ModeStandard:  {PerThousandChars: 0.015, PerRequest: 0.0002},
				models.ModeStreaming: {PerThousandChars: 0.015, PerRequest: 0.0003},
			},
		},
	}
}

// Load reads a YAML rate card. A missing file yields the defaults. Providers
// or modes absent from the file keep their default rates.
func Load(path string) (*Table, error) {
	t := Default()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}

	var file overlay
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file: %w", err)
	}
	file.apply(t)

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// overlay is the on-disk form of a Table. Pointers tell a value written as
// zero apart from one left out.
type overlay struct {
	Rates                map[models.Provider]map[models.Mode]rateOverlay `yaml:"providers"`
	Currency             *string                                         `yaml:"currency"`
	BatchSize            *int                                            `yaml:"batch_size"`
	CacheServePerRequest *float64                                        `yaml:"cache_serve_per_request"`
}

type rateOverlay struct {
	PerThousandChars *float64 `yaml:"per_thousand_chars"`
	PerRequest       *float64 `yaml:"per_request"`
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// apply writes every value present in o over t.
func (o *overlay) apply(t *Table) {
	set(&t.Currency, o.Currency)
	set(&t.BatchSize, o.BatchSize)
	set(&t.CacheServePerRequest, o.CacheServePerRequest)

	for p, modes := range o.Rates {
		if t.Rates[p] == nil {
			t.Rates[p] = make(map[models.Mode]Rate, len(modes))
		}
		for m, ro := range modes {
			r := t.Rates[p][m]
			set(&r.PerThousandChars, ro.PerThousandChars)
			set(&r.PerRequest, ro.PerRequest)
			t.Rates[p][m] = r
		}
	}
}

// Validate checks that every rate is finite and non-negative.
func (t *Table) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if !finite(t.CacheServePerRequest) {
		return fmt.Errorf("%w: cache_serve_per_request is not finite", ErrInvalidTable)
	}
	for p, modes := range t.Rates {
		for m, r := range modes {
			if err := validate.Struct(r); err != nil {
				return fmt.Errorf("%w: %s/%s: %v", ErrInvalidTable, p, m, err)
			}
			if !finite(r.PerThousandChars) || !finite(r.PerRequest) {
				return fmt.Errorf("%w: %s/%s rate is not finite", ErrInvalidTable, p, m)
			}
		}
	}
	return nil
}

// Rate returns the price for a provider and mode. Unknown combinations are
// free and reported as not found.
func (t *Table) Rate(p models.Provider, m models.Mode) (Rate, bool) {
	modes, ok := t.Rates[p]
	if !ok {
		return Rate{}, false
	}
	r, ok := modes[m]
	return r, ok
}

// HasProvider reports whether the table prices the provider at all.
func (t *Table) HasProvider(p models.Provider) bool {
	_, ok := t.Rates[p]
	return ok
}

// EffectiveBatchSize returns the batch size, never below one.
func (t *Table) EffectiveBatchSize() int {
	if t.BatchSize < 1 {
		return 1
	}
	return t.BatchSize
}

// Save writes the table as YAML.
func (t *Table) Save(path string) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode pricing table: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write pricing file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace pricing file: %w", err)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
