package handhistory

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
)

// ErrMalformed marks hand-history data that cannot be replayed.
var ErrMalformed = errors.New("malformed hand history")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Validate checks h for unknown players, bad cards, inconsistent streets and
// non-monotonic action order. Every problem found is reported.
func Validate(h *Hand) error {
	if h == nil {
		return malformed("nil hand")
	}
	var err error
	err = multierr.Append(err, validateMetadata(h.Metadata))

	known, seatErr := validateSeats(h.Seats)
	err = multierr.Append(err, seatErr)
	err = multierr.Append(err, validateStreets(h, known))
	err = multierr.Append(err, validateCards(h))
	err = multierr.Append(err, validateResults(h, known))
	return err
}

func validateMetadata(m HandMetadata) error {
	var err error
	if m.Variant != "" && m.Variant != VariantNLHE {
		err = multierr.Append(err, malformed("unsupported variant %q", m.Variant))
	}
	if m.BigBlind <= 0 {
		err = multierr.Append(err, malformed("big blind %d must be positive", m.BigBlind))
	}
	if m.SmallBlind < 0 || m.SmallBlind > m.BigBlind {
		err = multierr.Append(err, malformed("small blind %d outside [0, %d]", m.SmallBlind, m.BigBlind))
	}
	if m.Ante < 0 {
		err = multierr.Append(err, malformed("negative ante %d", m.Ante))
	}
	if m.Rake < 0 {
		err = multierr.Append(err, malformed("negative rake %d", m.Rake))
	}
	return err
}

func validateSeats(seats []Seat) (map[string]bool, error) {
	var err error
	known := make(map[string]bool, len(seats))
	seatNos := make(map[int]bool, len(seats))
	buttons := 0
	if len(seats) < 2 {
		err = multierr.Append(err, malformed("need at least 2 seats, got %d", len(seats)))
	}
	for _, s := range seats {
		if s.PlayerUID == "" {
			err = multierr.Append(err, malformed("seat %d has empty player uid", s.SeatNo))
			continue
		}
		if known[s.PlayerUID] {
			err = multierr.Append(err, malformed("duplicate player uid %q", s.PlayerUID))
		}
		known[s.PlayerUID] = true
		if seatNos[s.SeatNo] {
			err = multierr.Append(err, malformed("duplicate seat number %d", s.SeatNo))
		}
		seatNos[s.SeatNo] = true
		if s.StartingStack < 0 {
			err = multierr.Append(err, malformed("seat %d negative starting stack %d", s.SeatNo, s.StartingStack))
		}
		if s.IsButton {
			buttons++
		}
	}
	if len(seats) >= 2 && buttons != 1 {
		err = multierr.Append(err, malformed("want exactly one button seat, got %d", buttons))
	}
	return known, err
}

func validateStreets(h *Hand, known map[string]bool) error {
	var err error
	for key := range h.Streets {
		if key.Order() < 0 {
			err = multierr.Append(err, malformed("unknown street %q", key))
		}
	}

	lastIndex := -1
	reached := true
	for _, s := range Streets {
		st, ok := h.Streets[s]
		if !ok || st == nil {
			reached = false
			continue
		}
		if !reached {
			err = multierr.Append(err, malformed("street %s recorded after a missing street", s))
		}
		if n := len(st.Board); n != s.BoardSize() {
			err = multierr.Append(err, malformed("street %s has %d board cards, want %d", s, n, s.BoardSize()))
		}
		for _, a := range st.Actions {
			if a.Street != s {
				err = multierr.Append(err, malformed("action %d tagged %q inside street %s", a.Index, a.Street, s))
			}
			if a.Index <= lastIndex {
				err = multierr.Append(err, malformed("action index %d not after %d", a.Index, lastIndex))
			}
			lastIndex = a.Index
			if !a.Kind.Known() {
				err = multierr.Append(err, malformed("action %d has unknown kind %q", a.Index, a.Kind))
			}
			if a.Kind == ActionDeal {
				if a.Actor != nil {
					err = multierr.Append(err, malformed("deal marker %d has an actor", a.Index))
				}
			} else if a.Actor == nil {
				err = multierr.Append(err, malformed("action %d (%s) has no actor", a.Index, a.Kind))
			} else if !known[*a.Actor] {
				err = multierr.Append(err, malformed("action %d references unknown player %q", a.Index, *a.Actor))
			}
			if a.Amount < 0 || a.ToAmount < 0 {
				err = multierr.Append(err, malformed("action %d has negative amount", a.Index))
			}
		}
	}
	return err
}

func validateCards(h *Hand) error {
	var err error
	seen := make(map[cards.Card]bool)
	check := func(where string, c cards.Card) {
		if !c.Valid() {
			err = multierr.Append(err, malformed("%s: card out of range", where))
			return
		}
		if seen[c] {
			err = multierr.Append(err, malformed("%s: duplicate card %s", where, c))
		}
		seen[c] = true
	}
	for _, c := range h.Board() {
		check("board", c)
	}
	for _, e := range h.Showdown {
		for _, c := range e.HoleCards {
			check("showdown "+e.PlayerUID, c)
		}
	}
	return err
}

func validateResults(h *Hand, known map[string]bool) error {
	var err error
	for i, p := range h.Pots {
		if p.Amount < 0 {
			err = multierr.Append(err, malformed("pot %d negative amount", i))
		}
		for _, uid := range p.Eligible {
			if !known[uid] {
				err = multierr.Append(err, malformed("pot %d eligible player %q unknown", i, uid))
			}
		}
		shared := 0
		for uid, amt := range p.Shares {
			if !known[uid] {
				err = multierr.Append(err, malformed("pot %d share for unknown player %q", i, uid))
			}
			shared += amt
		}
		if len(p.Shares) > 0 && shared != p.Amount {
			err = multierr.Append(err, malformed("pot %d shares sum %d, amount %d", i, shared, p.Amount))
		}
	}
	for _, e := range h.Showdown {
		if !known[e.PlayerUID] {
			err = multierr.Append(err, malformed("showdown entry for unknown player %q", e.PlayerUID))
		}
		if n := len(e.HoleCards); n != 0 && n != 2 {
			err = multierr.Append(err, malformed("showdown %q has %d hole cards", e.PlayerUID, n))
		}
	}
	if len(h.FinalStacks) > 0 {
		start, final := 0, 0
		for _, s := range h.Seats {
			start += s.StartingStack
		}
		for uid, stack := range h.FinalStacks {
			if !known[uid] {
				err = multierr.Append(err, malformed("final stack for unknown player %q", uid))
			}
			if stack < 0 {
				err = multierr.Append(err, malformed("negative final stack for %q", uid))
			}
			final += stack
		}
		// Hands dealt here never withhold rake; imported hands may have.
		if final != start && final+h.Metadata.Rake != start {
			err = multierr.Append(err, malformed("final stacks %d + rake %d != starting stacks %d", final, h.Metadata.Rake, start))
		}
	}
	return err
}
