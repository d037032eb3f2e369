package engine

import (
	"fmt"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

// settle builds the pots, ranks contenders and pays out every pot.
func (m *Machine) settle() error {
	gs := m.gs
	pots := BuildPots(gs.Players)
	total := 0
	for _, p := range pots {
		total += p.Amount
	}
	if total != gs.CommittedPot {
		return invariantErr("pot_sum", "pots hold %d, committed pot is %d", total, gs.CommittedPot)
	}

	var contenders []int
	for i, p := range gs.Players {
		if p.inHand() {
			contenders = append(contenders, i)
		}
	}
	values := map[int]HandValue{}
	if len(contenders) > 1 {
		var err error
		if values, err = m.rank(contenders); err != nil {
			return err
		}
	}

	won := map[int]int{}
	for _, pot := range pots {
		if len(pot.Eligible) == 0 {
			return invariantErr("pot_eligibility", "pot of %d has no eligible player", pot.Amount)
		}
		winners := bestOf(pot.Eligible, values)
		shares := splitPot(pot.Amount, gs.orderLeftOfButton(winners))
		rec := handhistory.Pot{Amount: pot.Amount, Eligible: make([]string, 0, len(pot.Eligible)), Shares: map[string]int{}}
		for _, i := range pot.Eligible {
			rec.Eligible = append(rec.Eligible, gs.Players[i].UID)
		}
		for i, amt := range shares {
			gs.Players[i].Stack += amt
			won[i] += amt
			rec.Shares[gs.Players[i].UID] = amt
		}
		gs.CommittedPot -= pot.Amount
		m.history.Pots = append(m.history.Pots, rec)
		m.log.Debug("pot awarded", "amount", pot.Amount, "shares", rec.Shares)
	}

	if len(contenders) > 1 {
		for _, i := range contenders {
			p := gs.Players[i]
			m.history.Showdown = append(m.history.Showdown, handhistory.ShowdownEntry{
				PlayerUID:   p.UID,
				HoleCards:   append(p.HoleCards[:0:0], p.HoleCards...),
				Description: values[i].Description,
				Won:         won[i],
			})
		}
	}
	if m.history.Showdown == nil {
		m.history.Showdown = []handhistory.ShowdownEntry{}
	}
	for _, p := range gs.Players {
		m.history.FinalStacks[p.UID] = p.Stack
	}
	if err := gs.CheckChips(); err != nil {
		return err
	}
	if gs.CommittedPot != 0 {
		return invariantErr("pot_sum", "%d chips left undistributed", gs.CommittedPot)
	}
	m.history.Metadata.EndedAt = m.cfg.Clock().UTC()
	m.log.Info("hand complete", "pots", len(pots), "showdown", len(contenders) > 1)
	return nil
}

func (m *Machine) rank(contenders []int) (map[int]HandValue, error) {
	gs := m.gs
	if m.cfg.Evaluator == nil {
		return nil, fmt.Errorf("showdown between %d players needs an evaluator", len(contenders))
	}
	if len(gs.Board) != 5 {
		return nil, invariantErr("board", "showdown with %d board cards", len(gs.Board))
	}
	values := make(map[int]HandValue, len(contenders))
	for _, i := range contenders {
		p := gs.Players[i]
		if len(p.HoleCards) != 2 {
			return nil, fmt.Errorf("%w: no hole cards for %s at showdown", handhistory.ErrMalformed, p.UID)
		}
		v, err := m.cfg.Evaluator.Evaluate(p.HoleCards, gs.Board)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", p.UID, err)
		}
		values[i] = v
	}
	return values, nil
}

// bestOf returns the eligible players holding the highest value. A pot with
// a single eligible player needs no ranking.
func bestOf(eligible []int, values map[int]HandValue) []int {
	if len(eligible) == 1 {
		return eligible
	}
	best := -1
	var winners []int
	for _, i := range eligible {
		v := values[i].Score
		switch {
		case v > best:
			best = v
			winners = []int{i}
		case v == best:
			winners = append(winners, i)
		}
	}
	return winners
}
