package battle

import (
	"math"
	"math/rand"
)

// RNG is the random source consumed by battle algorithms. *rand.Rand
// satisfies it. Draw order is observable: the same seed and the same inputs
// replay the same battle.
type RNG interface {
	Intn(n int) int
}

// NewRNG returns a seeded generator.
func NewRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// roll returns rng.Intn(n), or 0 without consuming a draw when n <= 0.
func roll(rng RNG, n int) int {
	if n <= 0 {
		return 0
	}
	return rng.Intn(n)
}

// jitter returns the ±20% damage variation applied to normal attacks and
// self-destruction, rounded up.
func jitter(rng RNG, effect int) int {
	actPerc := rng.Intn(40) - 20
	return int(math.Ceil(float64(effect) * float64(actPerc) / 100.0))
}

// variance returns a uniform offset in [-spread, +spread] where spread is
// effect * variance * 5%.
func variance(rng RNG, effect, level int) int {
	spread := effect * level / 20
	if spread <= 0 {
		return 0
	}
	return rng.Intn(2*spread+1) - spread
}
