package market

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// DefaultSwing is the largest relative change a refresh applies
const DefaultSwing = 0.10

// Pricer computes a player's new market value from the current one
type Pricer interface {
	Price(ctx context.Context, playerID, current int64) (int64, error)
}

// Simulated moves the value by a uniform amount within ±swing. The draw is seeded by
// player id and the current unix second, so repeated calls within one second agree.
type Simulated struct {
	swing float64
	now   func() time.Time
}

// NewSimulated creates a simulated pricer. swing <= 0 uses DefaultSwing.
func NewSimulated(swing float64, now func() time.Time) *Simulated {
	if swing <= 0 {
		swing = DefaultSwing
	}
	if now == nil {
		now = time.Now
	}
	return &Simulated{swing: swing, now: now}
}

var _ Pricer = (*Simulated)(nil)

func (s *Simulated) Price(ctx context.Context, playerID, current int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	seed := uint64(playerID + s.now().Unix())
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	change := (r.Float64()*2 - 1) * s.swing

	next := math.Round(float64(current) * (1 + change))
	if next < 0 {
		next = 0
	}
	return int64(next), nil
}
