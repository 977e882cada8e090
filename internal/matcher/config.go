// Package matcher implements the reconciliation engine that pairs gateway
// payouts with P2P report transactions.
//
// The engine works over a closed historical window:
//  1. Candidate selection through an amount-bucketed index
//  2. One-to-one greedy pairing by closest approval-to-trade time
//  3. Per-pair financial metrics with a configurable commission
//  4. A run summary computed with the shared stats formula
//
// Example usage:
//
//	engine := matcher.NewEngine(matcher.DefaultConfig())
//	engine.LoadExternalTransactions(externals)
//	engine.LoadTransactions(transactions)
//
//	result, err := engine.Reconcile()
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds the policy parameters of the matching engine. The defaults
// reproduce the production reconciliation policy; all three values are
// tunable per run.
type Config struct {
	// MinutesThreshold is the maximum gap, in whole minutes, between an
	// external transaction's approval time and an internal transaction's
	// trade time for the two to be candidates.
	MinutesThreshold int `json:"minutes_threshold"`

	// AmountTolerance is the absolute tolerance when comparing the
	// extracted gateway amount against the report's total price. It
	// absorbs floating rounding in upstream exports.
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`

	// Commission is the multiplier applied to the internal transaction's
	// total price to model exchange fee overhead.
	Commission decimal.Decimal `json:"commission"`
}

// DefaultConfig returns the production matching policy: a 30 minute window,
// a 0.01 amount tolerance and a 0.9% fee surcharge.
func DefaultConfig() *Config {
	return &Config{
		MinutesThreshold: 30,
		AmountTolerance:  decimal.NewFromFloat(0.01),
		Commission:       decimal.NewFromFloat(1.009),
	}
}

// Validate checks if the matching configuration is valid
func (c *Config) Validate() error {
	if c.MinutesThreshold <= 0 {
		return fmt.Errorf("minutes threshold must be positive: %d", c.MinutesThreshold)
	}

	if c.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount tolerance cannot be negative: %s", c.AmountTolerance)
	}

	if c.Commission.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("commission multiplier must be positive: %s", c.Commission)
	}

	return nil
}

// Clone creates a copy of the matching configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	return &Config{
		MinutesThreshold: c.MinutesThreshold,
		AmountTolerance:  c.AmountTolerance,
		Commission:       c.Commission,
	}
}

// String returns a human-readable description of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{MinutesThreshold: %d, AmountTolerance: %s, Commission: %s}",
		c.MinutesThreshold, c.AmountTolerance.String(), c.Commission.String())
}
