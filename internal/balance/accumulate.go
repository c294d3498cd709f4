package balance

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// SignFunc returns +1 for a debit-normal account and -1 for a credit-normal one.
type SignFunc func(accountID int) int

// FixedSign returns a SignFunc that ignores the account and always uses side.
func FixedSign(side model.Side) SignFunc {
	s := side.Sign()
	return func(int) int { return s }
}

// Step is one leg together with the running balance after applying it.
type Step struct {
	Leg     model.Leg
	Balance decimal.Decimal
}

// Delta is the signed effect of one leg: sign * (debit - credit).
func Delta(leg model.Leg, sign SignFunc) decimal.Decimal {
	return leg.Line.Net().Mul(decimal.NewFromInt(int64(sign(leg.Line.AccountID))))
}

// Accumulate folds legs, in the given order, into running balances starting
// from seed. Callers decide the order, the seed, and whether the sign is per
// account or fixed for the whole stream.
func Accumulate(seed decimal.Decimal, legs []model.Leg, sign SignFunc) []Step {
	steps := make([]Step, 0, len(legs))
	running := seed
	for _, leg := range legs {
		running = running.Add(Delta(leg, sign))
		steps = append(steps, Step{Leg: leg, Balance: running})
	}
	return steps
}

// Net returns the final balance Accumulate would reach, without materializing
// the steps.
func Net(seed decimal.Decimal, legs []model.Leg, sign SignFunc) decimal.Decimal {
	running := seed
	for _, leg := range legs {
		running = running.Add(Delta(leg, sign))
	}
	return running
}

// Totals returns the unsigned debit and credit sums of legs.
func Totals(legs []model.Leg) (debit, credit decimal.Decimal) {
	for _, leg := range legs {
		debit = debit.Add(leg.Line.Debit)
		credit = credit.Add(leg.Line.Credit)
	}
	return debit, credit
}
