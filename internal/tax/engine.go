// Package tax computes the canonical monetary totals for commercial documents.
//
// The derivation chain is fixed:
//
//	gross            = Σ(quantity × rate), summed unrounded, reported at 2dp
//	ppda_levy_amount = round2(gross × ppda_pct / 100)   when the levy applies
//	amount_before_vat = gross + ppda_levy_amount
//	vat_amount       = round2(amount_before_vat × vat_pct / 100)
//	total_net        = amount_before_vat + vat_amount
//
// Each derived field is rounded exactly once; nothing is re-rounded
// cumulatively. Invoice creation, invoice recomputation and quotation
// creation all go through Compute so the arithmetic has a single home.
package tax

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradebooks/internal/config"
)

var (
	ErrNoLines         = errors.New("no_lines")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidRate     = errors.New("invalid_rate")
	ErrInvalidPercent  = errors.New("invalid_percentage")
	ErrTotalsMismatch  = errors.New("totals_mismatch")
)

// Tolerance is the float-tolerance band used everywhere paid and net amounts
// are compared (0.005).
var Tolerance = decimal.New(5, -3)

var oneHundred = decimal.NewFromInt(100)

// Line is a single quantity × rate item.
type Line struct {
	Quantity    decimal.Decimal
	RatePerUnit decimal.Decimal
}

// Options are the levy/VAT settings for one computation. Callers resolve
// them from request overrides or configured defaults; the engine never
// reaches for global state.
type Options struct {
	ApplyPPDALevy      bool
	PPDALevyPercentage decimal.Decimal
	VATPercentage      decimal.Decimal
}

// Totals are the five canonical monetary fields, each rounded to 2dp.
type Totals struct {
	Gross           decimal.Decimal
	PPDALevyAmount  decimal.Decimal
	AmountBeforeVAT decimal.Decimal
	VATAmount       decimal.Decimal
	TotalNet        decimal.Decimal
}

// Compute derives Totals from line items and tax options.
func Compute(lines []Line, opts Options) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, ErrNoLines
	}
	if opts.PPDALevyPercentage.IsNegative() || opts.VATPercentage.IsNegative() {
		return Totals{}, ErrInvalidPercent
	}

	gross := decimal.Zero
	for _, line := range lines {
		if line.Quantity.IsNegative() || line.Quantity.IsZero() {
			return Totals{}, ErrInvalidQuantity
		}
		if line.RatePerUnit.IsNegative() {
			return Totals{}, ErrInvalidRate
		}
		gross = gross.Add(line.Quantity.Mul(line.RatePerUnit))
	}
	gross = gross.Round(2)

	ppda := decimal.Zero
	if opts.ApplyPPDALevy {
		ppda = gross.Mul(opts.PPDALevyPercentage).Div(oneHundred).Round(2)
	}
	beforeVAT := gross.Add(ppda)
	vat := beforeVAT.Mul(opts.VATPercentage).Div(oneHundred).Round(2)

	totals := Totals{
		Gross:           gross,
		PPDALevyAmount:  ppda,
		AmountBeforeVAT: beforeVAT,
		VATAmount:       vat,
		TotalNet:        beforeVAT.Add(vat),
	}
	if err := totals.Reconcile(); err != nil {
		return Totals{}, err
	}
	return totals, nil
}

// Reconcile rechecks the derivation identity. A failure means a computed
// total was tampered with or drifted; it must never be swallowed.
func (t Totals) Reconcile() error {
	if !t.AmountBeforeVAT.Equal(t.Gross.Add(t.PPDALevyAmount)) {
		return ErrTotalsMismatch
	}
	if !t.TotalNet.Equal(t.AmountBeforeVAT.Add(t.VATAmount)) {
		return ErrTotalsMismatch
	}
	return nil
}

// DefaultsFromConfig parses the configured levy/VAT defaults into Options.
func DefaultsFromConfig(cfg config.TaxConfig) (Options, error) {
	ppda, err := decimal.NewFromString(cfg.PPDALevyPercentage)
	if err != nil {
		return Options{}, ErrInvalidPercent
	}
	vat, err := decimal.NewFromString(cfg.VATPercentage)
	if err != nil {
		return Options{}, ErrInvalidPercent
	}
	return Options{
		ApplyPPDALevy:      cfg.ApplyPPDALevy,
		PPDALevyPercentage: ppda,
		VATPercentage:      vat,
	}, nil
}
