package game

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Rand is the randomness the price model needs; tests pin it.
type Rand interface {
	Float64() float64
}

type lockedRand struct {
	mu sync.Mutex
	r  *mathrand.Rand
}

// NewRand returns a time-seeded source safe for concurrent use.
func NewRand() Rand {
	return &lockedRand{r: mathrand.New(mathrand.NewSource(time.Now().UnixNano()))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// PriceModel applies the per-tick random walk.
type PriceModel struct {
	rand Rand
}

func NewPriceModel(r Rand) *PriceModel {
	if r == nil {
		r = NewRand()
	}
	return &PriceModel{rand: r}
}

// Perturb moves every price by a uniform change in [-2%, +2%], rounded to
// cents and floored at MinPrice, then counts the tick.
func (m *PriceModel) Perturb(p *Portfolio) {
	p.each(func(inst *Instrument) {
		change := (m.rand.Float64() - 0.5) * 2 * MaxMovePercent
		inst.Price = evolvePrice(inst.Price, change)
	})
	p.tick++
}

func evolvePrice(price, changePct float64) float64 {
	next := decimal.NewFromFloat(price * (1 + changePct/100)).Round(2).InexactFloat64()
	if next < MinPrice {
		return MinPrice
	}
	return next
}
