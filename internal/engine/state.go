package engine

import (
	"sort"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

// Player is one seat's state within a hand.
type Player struct {
	UID           string
	Name          string
	Seat          int
	Position      Position
	StartingStack int
	Stack         int
	// Active is false for folded players and for seats that started the
	// hand without chips.
	Active            bool
	HasFolded         bool
	IsAllIn           bool
	HasActedThisRound bool
	CurrentBet        int
	TotalInvested     int
	HoleCards         []cards.Card
}

func (p *Player) inHand() bool { return p.Active && !p.HasFolded }

func (p *Player) canAct() bool { return p.inHand() && !p.IsAllIn }

// seatSet holds player indices. Iteration always goes through sorted so the
// engine stays deterministic.
type seatSet map[int]struct{}

func (s seatSet) add(i int)      { s[i] = struct{}{} }
func (s seatSet) remove(i int)   { delete(s, i) }
func (s seatSet) has(i int) bool { _, ok := s[i]; return ok }

func (s seatSet) sorted() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// RoundState tracks one betting round.
type RoundState struct {
	LastFullRaiseSize int
	LastAggressorIdx  int
	ReopenAvailable   bool
	NeedActionFrom    seatSet
}

// GameState is the mutable table state of a single hand.
type GameState struct {
	Players       []*Player
	Board         []cards.Card
	Street        handhistory.Street
	CommittedPot  int
	CurrentBet    int
	BigBlind      int
	ButtonIdx     int
	SmallBlindIdx int
	BigBlindIdx   int
	ActorIdx      int
	Round         RoundState

	startingTotal int
}

func newGameState(players []*Player, bigBlind int) *GameState {
	gs := &GameState{
		Players:       players,
		BigBlind:      bigBlind,
		Street:        handhistory.StreetPreflop,
		ButtonIdx:     -1,
		SmallBlindIdx: -1,
		BigBlindIdx:   -1,
		ActorIdx:      -1,
		Round:         RoundState{LastAggressorIdx: -1, NeedActionFrom: seatSet{}},
	}
	for _, p := range players {
		gs.startingTotal += p.Stack
	}
	return gs
}

// DisplayedPot is the committed pot plus all bets of the current street.
func (gs *GameState) DisplayedPot() int {
	total := gs.CommittedPot
	for _, p := range gs.Players {
		total += p.CurrentBet
	}
	return total
}

// InHandCount is the number of players that have not folded.
func (gs *GameState) InHandCount() int {
	n := 0
	for _, p := range gs.Players {
		if p.inHand() {
			n++
		}
	}
	return n
}

// RoundComplete reports whether no further decisions are owed this street.
func (gs *GameState) RoundComplete() bool {
	return len(gs.Round.NeedActionFrom) == 0 || gs.InHandCount() <= 1
}

// nextFrom returns the first index after from (wrapping) matching keep.
func (gs *GameState) nextFrom(from int, keep func(int) bool) int {
	n := len(gs.Players)
	for step := 1; step <= n; step++ {
		i := ((from+step)%n + n) % n
		if keep(i) {
			return i
		}
	}
	return -1
}

// seatedFrom lists players dealt into the hand, starting at idx.
func (gs *GameState) seatedFrom(idx int) []int {
	n := len(gs.Players)
	out := make([]int, 0, n)
	for step := 0; step < n; step++ {
		i := (idx + step) % n
		if gs.Players[i].Active || gs.Players[i].HasFolded {
			out = append(out, i)
		}
	}
	return out
}

// orderLeftOfButton sorts indices clockwise starting left of the button.
func (gs *GameState) orderLeftOfButton(idxs []int) []int {
	n := len(gs.Players)
	out := append([]int(nil), idxs...)
	dist := func(i int) int {
		d := (i - gs.ButtonIdx + n) % n
		if d == 0 {
			d = n
		}
		return d
	}
	sort.Slice(out, func(a, b int) bool { return dist(out[a]) < dist(out[b]) })
	return out
}

// commit moves chips from a player's stack into their street bet.
func (gs *GameState) commit(p *Player, amount int) int {
	if amount > p.Stack {
		amount = p.Stack
	}
	if amount <= 0 {
		return 0
	}
	p.Stack -= amount
	p.CurrentBet += amount
	p.TotalInvested += amount
	if p.Stack == 0 {
		p.IsAllIn = true
	}
	if p.CurrentBet > gs.CurrentBet {
		gs.CurrentBet = p.CurrentBet
	}
	return amount
}

// postDead moves an ante straight into the committed pot.
func (gs *GameState) postDead(p *Player, amount int) int {
	if amount > p.Stack {
		amount = p.Stack
	}
	if amount <= 0 {
		return 0
	}
	p.Stack -= amount
	p.TotalInvested += amount
	gs.CommittedPot += amount
	if p.Stack == 0 {
		p.IsAllIn = true
	}
	return amount
}

// CheckChips verifies that no chips were created or lost.
func (gs *GameState) CheckChips() error {
	total := gs.CommittedPot
	for _, p := range gs.Players {
		if p.Stack < 0 {
			return invariantErr("chip_conservation", "player %s has negative stack %d", p.UID, p.Stack)
		}
		total += p.Stack + p.CurrentBet
	}
	if total != gs.startingTotal {
		return invariantErr("chip_conservation", "table holds %d chips, started with %d", total, gs.startingTotal)
	}
	return nil
}
