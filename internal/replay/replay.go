// Package replay drives recorded hands back through the engine and checks
// that the engine reaches the recorded outcome.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/decision"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/engine"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

// ErrMismatch marks a replay whose outcome differs from the record.
var ErrMismatch = errors.New("replay mismatch")

type Options struct {
	Evaluator engine.HandEvaluator
	Logger    *slog.Logger
}

// Run validates h and replays its decisions. The returned hand is the one
// the engine produced.
func Run(ctx context.Context, h *handhistory.Hand, opts Options) (*handhistory.Hand, error) {
	if err := handhistory.Validate(h); err != nil {
		return nil, err
	}
	ended := h.Metadata.EndedAt
	m, err := engine.NewMachine(engine.Config{
		Metadata:  h.Metadata,
		Seats:     h.Seats,
		Board:     h.Board(),
		HoleCards: h.HoleCards(),
		Evaluator: opts.Evaluator,
		Clock:     func() time.Time { return ended },
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", handhistory.ErrMalformed, err)
	}
	src := decision.NewReplay(h)
	got, err := m.Run(ctx, strictReplay{src})
	if err != nil {
		return nil, fmt.Errorf("replay hand %s: %w", h.Metadata.HandID, err)
	}
	if n := src.Remaining(); n > 0 {
		return got, fmt.Errorf("%w: %w: hand %s ended with %d recorded decisions unused", ErrMismatch, decision.ErrOutOfSync, h.Metadata.HandID, n)
	}
	return got, nil
}

// strictReplay keeps consulting the record while it has decisions left, so
// a decision recorded for the wrong player fails in Decide with ErrOutOfSync
// instead of ending the betting.
type strictReplay struct{ *decision.Replay }

func (s strictReplay) HasDecisionFor(string) bool { return s.Remaining() > 0 }

// Verify replays h and compares final stacks and pot distribution with the
// record.
func Verify(ctx context.Context, h *handhistory.Hand, opts Options) (*handhistory.Hand, error) {
	got, err := Run(ctx, h, opts)
	if err != nil {
		return got, err
	}
	if diffs := Diff(h, got); len(diffs) > 0 {
		return got, fmt.Errorf("%w: hand %s: %s", ErrMismatch, h.Metadata.HandID, strings.Join(diffs, "; "))
	}
	return got, nil
}

// Diff lists outcome differences between a recorded and a replayed hand.
func Diff(want, got *handhistory.Hand) []string {
	var diffs []string
	uids := make([]string, 0, len(want.FinalStacks))
	for uid := range want.FinalStacks {
		uids = append(uids, uid)
	}
	for uid := range got.FinalStacks {
		if _, ok := want.FinalStacks[uid]; !ok {
			uids = append(uids, uid)
		}
	}
	sort.Strings(uids)
	for _, uid := range uids {
		w, wok := want.FinalStacks[uid]
		g, gok := got.FinalStacks[uid]
		if w != g || wok != gok {
			diffs = append(diffs, fmt.Sprintf("final stack %s: recorded %d, replayed %d", uid, w, g))
		}
	}
	if len(want.Pots) != len(got.Pots) {
		return append(diffs, fmt.Sprintf("recorded %d pots, replayed %d", len(want.Pots), len(got.Pots)))
	}
	for i := range want.Pots {
		w, g := want.Pots[i], got.Pots[i]
		if w.Amount != g.Amount {
			diffs = append(diffs, fmt.Sprintf("pot %d: recorded %d, replayed %d", i, w.Amount, g.Amount))
		}
		if !sameShares(w.Shares, g.Shares) {
			diffs = append(diffs, fmt.Sprintf("pot %d shares: recorded %v, replayed %v", i, w.Shares, g.Shares))
		}
	}
	return diffs
}

func sameShares(a, b map[string]int) bool {
	nonZero := func(m map[string]int) int {
		n := 0
		for _, v := range m {
			if v != 0 {
				n++
			}
		}
		return n
	}
	if nonZero(a) != nonZero(b) {
		return false
	}
	for k, v := range a {
		if v != 0 && b[k] != v {
			return false
		}
	}
	return true
}
