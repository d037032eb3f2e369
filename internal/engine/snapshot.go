package engine

import (
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

// PlayerView is a read-only copy of a player's public state. HoleCards are
// included; callers showing a table to one player must hide the rest.
type PlayerView struct {
	UID               string
	Name              string
	Seat              int
	Position          Position
	Stack             int
	CurrentBet        int
	TotalInvested     int
	Active            bool
	HasFolded         bool
	IsAllIn           bool
	HasActedThisRound bool
	IsButton          bool
	HoleCards         []cards.Card
}

// Snapshot is an immutable view of the hand for decision sources and
// renderers.
type Snapshot struct {
	HandID       string
	State        PokerState
	Street       handhistory.Street
	Board        []cards.Card
	Pot          int
	CommittedPot int
	CurrentBet   int
	BigBlind     int
	MinRaiseSize int
	Players      []PlayerView
	ActorUID     string
	Legal        LegalActions
}

// Player looks up a player view by uid.
func (s Snapshot) Player(uid string) (PlayerView, bool) {
	for _, p := range s.Players {
		if p.UID == uid {
			return p, true
		}
	}
	return PlayerView{}, false
}

// ToCall is the amount uid must add to match the current bet.
func (s Snapshot) ToCall(uid string) int {
	p, ok := s.Player(uid)
	if !ok {
		return 0
	}
	return max(0, min(s.CurrentBet-p.CurrentBet, p.Stack))
}

// Snapshot captures the current state.
func (m *Machine) Snapshot() Snapshot {
	gs := m.gs
	snap := Snapshot{
		HandID:       m.history.Metadata.HandID,
		State:        m.state,
		Street:       gs.Street,
		Board:        append([]cards.Card(nil), gs.Board...),
		Pot:          gs.DisplayedPot(),
		CommittedPot: gs.CommittedPot,
		CurrentBet:   gs.CurrentBet,
		BigBlind:     gs.BigBlind,
		MinRaiseSize: gs.Round.LastFullRaiseSize,
		Players:      make([]PlayerView, len(gs.Players)),
	}
	for i, p := range gs.Players {
		snap.Players[i] = PlayerView{
			UID:               p.UID,
			Name:              p.Name,
			Seat:              p.Seat,
			Position:          p.Position,
			Stack:             p.Stack,
			CurrentBet:        p.CurrentBet,
			TotalInvested:     p.TotalInvested,
			Active:            p.Active,
			HasFolded:         p.HasFolded,
			IsAllIn:           p.IsAllIn,
			HasActedThisRound: p.HasActedThisRound,
			IsButton:          i == gs.ButtonIdx,
			HoleCards:         append([]cards.Card(nil), p.HoleCards...),
		}
	}
	if gs.ActorIdx >= 0 {
		snap.ActorUID = gs.Players[gs.ActorIdx].UID
		snap.Legal = gs.LegalActions(gs.ActorIdx)
	}
	return snap
}
