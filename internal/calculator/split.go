package calculator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// ErrInvalidSplit is returned for any split that fails validation.
var ErrInvalidSplit = errors.New("invalid split")

// SplitParams carries the policy-specific inputs. Equal uses neither map,
// Exact uses Amounts and Percentage uses Percentages.
type SplitParams struct {
	Amounts     map[string]decimal.Decimal
	Percentages map[string]decimal.Decimal
}

// Policy converts a total into per-participant shares.
// Participants are ordered; the last one absorbs any rounding remainder.
type Policy interface {
	Kind() models.SplitKind

	// Validate checks the inputs without computing anything.
	Validate(total decimal.Decimal, participants []string, params SplitParams) error

	// Compute validates and returns shares that sum to total exactly.
	Compute(total decimal.Decimal, participants []string, params SplitParams) (map[string]decimal.Decimal, error)
}

// ParseSplitKind maps a case-insensitive name to a SplitKind.
func ParseSplitKind(s string) (models.SplitKind, error) {
	switch kind := models.SplitKind(strings.ToUpper(strings.TrimSpace(s))); kind {
	case models.SplitEqual, models.SplitExact, models.SplitPercentage:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: unknown split kind %q", ErrInvalidSplit, s)
	}
}

// PolicyFor returns the policy for kind, rounding to the given minor unit.
func PolicyFor(kind models.SplitKind, places money.Places) (Policy, error) {
	switch kind {
	case models.SplitEqual:
		return EqualPolicy{Places: places}, nil
	case models.SplitExact:
		return ExactPolicy{Places: places}, nil
	case models.SplitPercentage:
		return PercentagePolicy{Places: places}, nil
	default:
		return nil, fmt.Errorf("%w: unknown split kind %q", ErrInvalidSplit, kind)
	}
}

// CalculateSplit applies the policy for kind.
func CalculateSplit(kind models.SplitKind, places money.Places, total decimal.Decimal, participants []string, params SplitParams) (map[string]decimal.Decimal, error) {
	policy, err := PolicyFor(kind, places)
	if err != nil {
		return nil, err
	}
	return policy.Compute(total, participants, params)
}

// EqualPolicy divides the total evenly.
type EqualPolicy struct {
	Places money.Places
}

func (EqualPolicy) Kind() models.SplitKind { return models.SplitEqual }

func (p EqualPolicy) Validate(total decimal.Decimal, participants []string, _ SplitParams) error {
	if err := validateCommon(total, participants, p.Places); err != nil {
		return err
	}
	_, err := remainderOf(total, participants, p.shares(total, participants))
	return err
}

func (p EqualPolicy) Compute(total decimal.Decimal, participants []string, _ SplitParams) (map[string]decimal.Decimal, error) {
	if err := validateCommon(total, participants, p.Places); err != nil {
		return nil, err
	}
	return withRemainder(total, participants, p.shares(total, participants))
}

// shares returns the rounded share of the first N-1 participants.
func (p EqualPolicy) shares(total decimal.Decimal, participants []string) []decimal.Decimal {
	share := money.DivRound(total, decimal.NewFromInt(int64(len(participants))), p.Places)
	shares := make([]decimal.Decimal, len(participants)-1)
	for i := range shares {
		shares[i] = share
	}
	return shares
}

// ExactPolicy takes an explicit amount per participant.
type ExactPolicy struct {
	Places money.Places
}

func (ExactPolicy) Kind() models.SplitKind { return models.SplitExact }

func (p ExactPolicy) Validate(total decimal.Decimal, participants []string, params SplitParams) error {
	if err := validateCommon(total, participants, p.Places); err != nil {
		return err
	}
	if err := validateKeys(participants, params.Amounts, "amount"); err != nil {
		return err
	}

	sum := decimal.Zero
	for _, id := range participants {
		amount := params.Amounts[id]
		if amount.IsNegative() {
			return fmt.Errorf("%w: negative amount %s for %q", ErrInvalidSplit, amount, id)
		}
		if !money.IsMinorUnit(amount, p.Places) {
			return fmt.Errorf("%w: amount %s for %q is finer than the minor unit", ErrInvalidSplit, amount, id)
		}
		sum = sum.Add(amount)
	}
	if !sum.Equal(total) {
		return fmt.Errorf("%w: amounts sum to %s, want %s", ErrInvalidSplit, sum, total)
	}
	return nil
}

func (p ExactPolicy) Compute(total decimal.Decimal, participants []string, params SplitParams) (map[string]decimal.Decimal, error) {
	if err := p.Validate(total, participants, params); err != nil {
		return nil, err
	}
	splits := make(map[string]decimal.Decimal, len(participants))
	for _, id := range participants {
		splits[id] = params.Amounts[id]
	}
	return splits, nil
}

// PercentagePolicy takes a percentage per participant.
type PercentagePolicy struct {
	Places money.Places
}

func (PercentagePolicy) Kind() models.SplitKind { return models.SplitPercentage }

func (p PercentagePolicy) Validate(total decimal.Decimal, participants []string, params SplitParams) error {
	if err := p.validateInputs(total, participants, params); err != nil {
		return err
	}
	_, err := remainderOf(total, participants, p.shares(total, participants, params))
	return err
}

func (p PercentagePolicy) Compute(total decimal.Decimal, participants []string, params SplitParams) (map[string]decimal.Decimal, error) {
	if err := p.validateInputs(total, participants, params); err != nil {
		return nil, err
	}
	return withRemainder(total, participants, p.shares(total, participants, params))
}

func (p PercentagePolicy) validateInputs(total decimal.Decimal, participants []string, params SplitParams) error {
	if err := validateCommon(total, participants, p.Places); err != nil {
		return err
	}
	if err := validateKeys(participants, params.Percentages, "percentage"); err != nil {
		return err
	}

	sum := decimal.Zero
	for _, id := range participants {
		pct := params.Percentages[id]
		if pct.IsNegative() || pct.GreaterThan(money.Hundred) {
			return fmt.Errorf("%w: percentage %s for %q out of range", ErrInvalidSplit, pct, id)
		}
		sum = sum.Add(pct)
	}
	if !sum.Equal(money.Hundred) {
		return fmt.Errorf("%w: percentages sum to %s, want 100", ErrInvalidSplit, sum)
	}
	return nil
}

// shares returns the rounded share of the first N-1 participants.
func (p PercentagePolicy) shares(total decimal.Decimal, participants []string, params SplitParams) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(participants)-1)
	for i, id := range participants[:len(participants)-1] {
		shares[i] = money.DivRound(total.Mul(params.Percentages[id]), money.Hundred, p.Places)
	}
	return shares
}

// remainderOf is what the last participant pays after the first N-1 shares.
// Rounding every share up can overshoot a tiny total; that split is invalid.
func remainderOf(total decimal.Decimal, participants []string, shares []decimal.Decimal) (decimal.Decimal, error) {
	remainder := total.Sub(money.Sum(shares...))
	if remainder.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: total %s too small to split %d ways", ErrInvalidSplit, total, len(participants))
	}
	return remainder, nil
}

// withRemainder assigns shares to the first N-1 participants and the
// remainder to the last, so the result always sums to total.
func withRemainder(total decimal.Decimal, participants []string, shares []decimal.Decimal) (map[string]decimal.Decimal, error) {
	remainder, err := remainderOf(total, participants, shares)
	if err != nil {
		return nil, err
	}

	splits := make(map[string]decimal.Decimal, len(participants))
	for i, share := range shares {
		splits[participants[i]] = share
	}
	splits[participants[len(participants)-1]] = remainder
	return splits, nil
}

func validateCommon(total decimal.Decimal, participants []string, places money.Places) error {
	if len(participants) == 0 {
		return fmt.Errorf("%w: must have at least one participant", ErrInvalidSplit)
	}
	if !total.IsPositive() {
		return fmt.Errorf("%w: total must be positive, got %s", ErrInvalidSplit, total)
	}
	if err := money.CheckRange(total); err != nil {
		return fmt.Errorf("%w: total: %v", ErrInvalidSplit, err)
	}
	if !money.IsMinorUnit(total, places) {
		return fmt.Errorf("%w: total %s is finer than the minor unit", ErrInvalidSplit, total)
	}

	seen := make(map[string]bool, len(participants))
	for _, id := range participants {
		if id == "" {
			return fmt.Errorf("%w: empty participant id", ErrInvalidSplit)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate participant %q", ErrInvalidSplit, id)
		}
		seen[id] = true
	}
	return nil
}

// validateKeys requires an entry for every participant and none for anyone else.
func validateKeys(participants []string, values map[string]decimal.Decimal, what string) error {
	for _, id := range participants {
		if _, ok := values[id]; !ok {
			return fmt.Errorf("%w: missing %s for %q", ErrInvalidSplit, what, id)
		}
	}
	if len(values) != len(participants) {
		return fmt.Errorf("%w: %s given for a non-participant", ErrInvalidSplit, what)
	}
	return nil
}
