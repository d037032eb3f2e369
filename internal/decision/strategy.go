package decision

import (
	"math/rand"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/engine"
)

// CheckCall never folds when it can check and calls every bet.
type CheckCall struct{}

func (CheckCall) HasDecisionFor(string) bool { return true }

func (CheckCall) Decide(_ string, snap engine.Snapshot) (engine.Decision, error) {
	switch {
	case snap.Legal.Allows(engine.ActionCheck):
		return engine.Decision{Kind: engine.ActionCheck}, nil
	case snap.Legal.Allows(engine.ActionCall):
		return engine.Decision{Kind: engine.ActionCall}, nil
	}
	return engine.Decision{Kind: engine.ActionFold}, nil
}

// Random picks among the legal actions with a fixed seed, so the same seed
// replays the same choices against the same table.
type Random struct {
	rng *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) HasDecisionFor(string) bool { return true }

func (r *Random) Decide(_ string, snap engine.Snapshot) (engine.Decision, error) {
	legal := snap.Legal
	aggressive := engine.ActionRaise
	if legal.Allows(engine.ActionBet) {
		aggressive = engine.ActionBet
	}
	roll := r.rng.Intn(100)
	if legal.Allows(engine.ActionCheck) {
		if roll < 70 || !legal.Allows(aggressive) {
			return engine.Decision{Kind: engine.ActionCheck}, nil
		}
		return engine.Decision{Kind: aggressive, ToAmount: r.size(legal)}, nil
	}
	switch {
	case roll < 20:
		return engine.Decision{Kind: engine.ActionFold}, nil
	case roll < 80 || !legal.Allows(aggressive):
		return engine.Decision{Kind: engine.ActionCall}, nil
	}
	return engine.Decision{Kind: aggressive, ToAmount: r.size(legal)}, nil
}

// size is usually near the minimum and occasionally all-in.
func (r *Random) size(legal engine.LegalActions) int {
	if r.rng.Intn(20) == 0 {
		return legal.MaxRaiseTo
	}
	span := (legal.MaxRaiseTo - legal.MinRaiseTo) / 4
	return legal.MinRaiseTo + r.rng.Intn(span+1)
}

// Mux routes each player to its own source, falling back to Default.
type Mux struct {
	Seats   map[string]engine.DecisionSource
	Default engine.DecisionSource
}

func (m Mux) source(uid string) engine.DecisionSource {
	if s, ok := m.Seats[uid]; ok {
		return s
	}
	return m.Default
}

func (m Mux) HasDecisionFor(uid string) bool {
	s := m.source(uid)
	return s != nil && s.HasDecisionFor(uid)
}

func (m Mux) Decide(uid string, snap engine.Snapshot) (engine.Decision, error) {
	return m.source(uid).Decide(uid, snap)
}
