package decision

import (
	"errors"
	"fmt"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/engine"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

// ErrOutOfSync is returned when the engine asks for a decision the recorded
// hand does not have next.
var ErrOutOfSync = errors.New("replay out of sync")

// Replay feeds the decisions of a recorded hand back to the engine in their
// original order. Posts and dealing markers are skipped since the engine
// produces those itself.
type Replay struct {
	actions []handhistory.Action
	pos     int
}

func NewReplay(h *handhistory.Hand) *Replay {
	r := &Replay{}
	for _, a := range h.Actions() {
		if a.Kind.IsDecision() {
			r.actions = append(r.actions, a)
		}
	}
	return r
}

// HasDecisionFor reports whether the next recorded decision belongs to uid.
func (r *Replay) HasDecisionFor(uid string) bool {
	return r.pos < len(r.actions) && r.actions[r.pos].ActorUID() == uid
}

// Remaining is the number of recorded decisions not yet replayed.
func (r *Replay) Remaining() int { return len(r.actions) - r.pos }

// Decide translates the next recorded action into the engine's to-amount
// contract. Recorded amounts are incremental; the total is rebuilt from the
// player's current street bet.
func (r *Replay) Decide(uid string, snap engine.Snapshot) (engine.Decision, error) {
	if r.pos >= len(r.actions) {
		return engine.Decision{}, fmt.Errorf("%w: no recorded decision left for %s", ErrOutOfSync, uid)
	}
	a := r.actions[r.pos]
	if actor := a.ActorUID(); actor != uid {
		return engine.Decision{}, fmt.Errorf("%w: action %d belongs to %s, engine asks %s", ErrOutOfSync, a.Index, actor, uid)
	}
	if a.Street != snap.Street {
		return engine.Decision{}, fmt.Errorf("%w: action %d recorded on %s, engine is on %s", ErrOutOfSync, a.Index, a.Street, snap.Street)
	}
	p, ok := snap.Player(uid)
	if !ok {
		return engine.Decision{}, fmt.Errorf("%w: player %s not at the table", ErrOutOfSync, uid)
	}
	kind, _ := engine.FromHistoryKind(a.Kind)
	d := engine.Decision{Kind: kind}
	toCall := snap.ToCall(uid)

	switch kind {
	case engine.ActionBet, engine.ActionRaise:
		d.ToAmount = p.CurrentBet + a.Amount
		if a.Amount == 0 {
			d.ToAmount = a.ToAmount
		}
		if a.ToAmount != 0 && a.ToAmount != d.ToAmount {
			return engine.Decision{}, fmt.Errorf("%w: action %d adds %d to %d but records total %d",
				ErrOutOfSync, a.Index, a.Amount, p.CurrentBet, a.ToAmount)
		}
		// Sources disagree on whether the first wager of a street is a bet.
		if snap.CurrentBet == 0 {
			d.Kind = engine.ActionBet
		} else {
			d.Kind = engine.ActionRaise
		}
	case engine.ActionCall:
		switch {
		case toCall == 0 && a.Amount > 0:
			return engine.Decision{}, fmt.Errorf("%w: action %d calls %d with nothing owed", ErrOutOfSync, a.Index, a.Amount)
		case toCall == 0:
			d.Kind = engine.ActionCheck
		case a.Amount != toCall:
			return engine.Decision{}, fmt.Errorf("%w: action %d calls %d, engine owes %d", ErrOutOfSync, a.Index, a.Amount, toCall)
		}
	case engine.ActionCheck:
		if toCall > 0 {
			return engine.Decision{}, fmt.Errorf("%w: action %d is a check facing %d", ErrOutOfSync, a.Index, toCall)
		}
	}
	r.pos++
	return d, nil
}
