package tests

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

const maxAmountCents = 1_000_000_00

type Randomizer struct {
	random *rand.Rand
}

func NewRandomizer() Randomizer {
	return Randomizer{
		random: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // for tests
	}
}

// Amount возвращает положительную сумму с двумя знаками после запятой.
func (r Randomizer) Amount() decimal.Decimal {
	return decimal.New(r.random.Int63n(maxAmountCents)+1, -2)
}
