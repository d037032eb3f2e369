package engine

import "sort"

// Pot is a main or side pot. Eligible holds player indices in seat order.
type Pot struct {
	Amount   int
	Eligible []int
}

// ReturnUncalled refunds the part of the largest street bet that nobody
// matched. Folded players' bets count as matched chips. It returns the
// refunded player index and amount, or -1 and 0.
func (gs *GameState) ReturnUncalled() (int, int) {
	top, second := -1, 0
	for i, p := range gs.Players {
		switch {
		case top < 0 || p.CurrentBet > gs.Players[top].CurrentBet:
			if top >= 0 {
				second = gs.Players[top].CurrentBet
			}
			top = i
		case p.CurrentBet > second:
			second = p.CurrentBet
		}
	}
	if top < 0 {
		return -1, 0
	}
	excess := gs.Players[top].CurrentBet - second
	if excess <= 0 {
		return -1, 0
	}
	p := gs.Players[top]
	p.CurrentBet -= excess
	p.TotalInvested -= excess
	p.Stack += excess
	if p.Stack > 0 {
		p.IsAllIn = false
	}
	gs.CurrentBet = second
	return top, excess
}

// CommitStreet folds every street bet into the committed pot.
func (gs *GameState) CommitStreet() {
	for _, p := range gs.Players {
		gs.CommittedPot += p.CurrentBet
		p.CurrentBet = 0
	}
	gs.CurrentBet = 0
}

// BuildPots layers total investments into a main pot and side pots. Each
// all-in level of a non-folded player closes a layer; folded chips stay in
// the layers they reached but folded players are never eligible. Adjacent
// layers with the same eligible set are merged.
func BuildPots(players []*Player) []Pot {
	levelSet := map[int]struct{}{}
	maxInvested := 0
	for _, p := range players {
		if p.TotalInvested > maxInvested {
			maxInvested = p.TotalInvested
		}
		if p.inHand() && p.IsAllIn && p.TotalInvested > 0 {
			levelSet[p.TotalInvested] = struct{}{}
		}
	}
	if maxInvested == 0 {
		return nil
	}
	levelSet[maxInvested] = struct{}{}
	levels := make([]int, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	var pots []Pot
	prev := 0
	for _, level := range levels {
		amount := 0
		var eligible []int
		for i, p := range players {
			amount += min(p.TotalInvested, level) - min(p.TotalInvested, prev)
			if p.inHand() && p.TotalInvested >= level {
				eligible = append(eligible, i)
			}
		}
		prev = level
		if amount == 0 {
			continue
		}
		if len(pots) > 0 {
			last := &pots[len(pots)-1]
			if len(eligible) == 0 || sameInts(last.Eligible, eligible) {
				last.Amount += amount
				continue
			}
		}
		pots = append(pots, Pot{Amount: amount, Eligible: eligible})
	}
	return pots
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// splitPot divides amount among winners, which must already be ordered
// clockwise from the button. Odd chips go to the earliest winners.
func splitPot(amount int, winners []int) map[int]int {
	shares := make(map[int]int, len(winners))
	if len(winners) == 0 {
		return shares
	}
	each := amount / len(winners)
	odd := amount % len(winners)
	for i, w := range winners {
		shares[w] = each
		if i < odd {
			shares[w]++
		}
	}
	return shares
}
