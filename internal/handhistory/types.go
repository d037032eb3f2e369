package handhistory

import (
	"time"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
)

// VariantNLHE is the only variant the engine plays.
const VariantNLHE = "nlhe"

// Street names a betting round; it is also the key of Hand.Streets.
type Street string

const (
	StreetPreflop Street = "preflop"
	StreetFlop    Street = "flop"
	StreetTurn    Street = "turn"
	StreetRiver   Street = "river"
)

// Streets lists the betting rounds in play order.
var Streets = []Street{StreetPreflop, StreetFlop, StreetTurn, StreetRiver}

// Order returns the street's position in Streets, or -1.
func (s Street) Order() int {
	for i, st := range Streets {
		if st == s {
			return i
		}
	}
	return -1
}

// BoardSize is the number of community cards dealt when the street opens.
func (s Street) BoardSize() int {
	switch s {
	case StreetFlop:
		return 3
	case StreetTurn, StreetRiver:
		return 1
	default:
		return 0
	}
}

// ActionKind is the recorded kind of an action.
type ActionKind string

const (
	ActionPostAnte       ActionKind = "post_ante"
	ActionPostSmallBlind ActionKind = "post_sb"
	ActionPostBigBlind   ActionKind = "post_bb"
	ActionDeal           ActionKind = "deal"
	ActionFold           ActionKind = "fold"
	ActionCheck          ActionKind = "check"
	ActionCall           ActionKind = "call"
	ActionBet            ActionKind = "bet"
	ActionRaise          ActionKind = "raise"
)

func (k ActionKind) Known() bool {
	switch k {
	case ActionPostAnte, ActionPostSmallBlind, ActionPostBigBlind, ActionDeal,
		ActionFold, ActionCheck, ActionCall, ActionBet, ActionRaise:
		return true
	}
	return false
}

// IsDecision reports whether the action was chosen by a player, as opposed
// to a forced post or a dealing marker.
func (k ActionKind) IsDecision() bool {
	switch k {
	case ActionFold, ActionCheck, ActionCall, ActionBet, ActionRaise:
		return true
	}
	return false
}

// IsPost reports whether the action is a forced blind or ante.
func (k ActionKind) IsPost() bool {
	return k == ActionPostAnte || k == ActionPostSmallBlind || k == ActionPostBigBlind
}

type HandMetadata struct {
	TableID    string    `json:"table_id"`
	HandID     string    `json:"hand_id"`
	Variant    string    `json:"variant"`
	SmallBlind int       `json:"small_blind"`
	BigBlind   int       `json:"big_blind"`
	Ante       int       `json:"ante"`
	Rake       int       `json:"rake"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// Seat is fixed for the lifetime of a hand.
type Seat struct {
	SeatNo        int    `json:"seat"`
	PlayerUID     string `json:"player_uid"`
	Name          string `json:"name"`
	StartingStack int    `json:"starting_stack"`
	IsButton      bool   `json:"is_button"`
}

// Action is one entry in a street's ordered action list.
// Amount is what this action added; ToAmount is the actor's resulting total
// for the street. Actor is nil for dealing markers.
type Action struct {
	Index    int        `json:"index"`
	Street   Street     `json:"street"`
	Actor    *string    `json:"actor"`
	Kind     ActionKind `json:"kind"`
	Amount   int        `json:"amount"`
	ToAmount int        `json:"to_amount"`
	AllIn    bool       `json:"all_in"`
	Note     string     `json:"note"`
}

// ActorUID returns the actor or "" for dealing markers.
func (a Action) ActorUID() string {
	if a.Actor == nil {
		return ""
	}
	return *a.Actor
}

// StreetState holds the cards dealt when the street opened and its actions.
type StreetState struct {
	Board   []cards.Card `json:"board"`
	Actions []Action     `json:"actions"`
}

type Pot struct {
	Amount   int            `json:"amount"`
	Eligible []string       `json:"eligible"`
	Shares   map[string]int `json:"shares"`
}

type ShowdownEntry struct {
	PlayerUID   string       `json:"player_uid"`
	HoleCards   []cards.Card `json:"hole_cards"`
	Description string       `json:"description"`
	Won         int          `json:"won"`
}

// Hand is the canonical record of a single hand.
type Hand struct {
	Metadata    HandMetadata            `json:"metadata"`
	Seats       []Seat                  `json:"seats"`
	Streets     map[Street]*StreetState `json:"streets"`
	Pots        []Pot                   `json:"pots"`
	Showdown    []ShowdownEntry         `json:"showdown"`
	FinalStacks map[string]int          `json:"final_stacks"`
}

// New returns an empty hand ready to be built action by action.
func New(meta HandMetadata, seats []Seat) *Hand {
	return &Hand{
		Metadata:    meta,
		Seats:       append([]Seat(nil), seats...),
		Streets:     make(map[Street]*StreetState),
		FinalStacks: make(map[string]int),
	}
}

// Street returns the state for s, creating it if needed.
func (h *Hand) Street(s Street) *StreetState {
	if h.Streets == nil {
		h.Streets = make(map[Street]*StreetState)
	}
	st, ok := h.Streets[s]
	if !ok {
		st = &StreetState{Board: []cards.Card{}, Actions: []Action{}}
		h.Streets[s] = st
	}
	return st
}

// NextIndex returns the global index the next appended action should carry.
func (h *Hand) NextIndex() int {
	next := 0
	for _, a := range h.Actions() {
		if a.Index >= next {
			next = a.Index + 1
		}
	}
	return next
}

// Append adds a to its street, assigning the next global index.
func (h *Hand) Append(a Action) Action {
	a.Index = h.NextIndex()
	st := h.Street(a.Street)
	st.Actions = append(st.Actions, a)
	return a
}

// Actions returns every action in play order.
func (h *Hand) Actions() []Action {
	var out []Action
	for _, s := range Streets {
		if st, ok := h.Streets[s]; ok && st != nil {
			out = append(out, st.Actions...)
		}
	}
	return out
}

// Board returns the community cards in deal order.
func (h *Hand) Board() []cards.Card {
	var out []cards.Card
	for _, s := range Streets {
		if st, ok := h.Streets[s]; ok && st != nil {
			out = append(out, st.Board...)
		}
	}
	return out
}

// DealtIn reports whether the seat had chips when the hand started. Busted
// seats stay in the seat list but take no part in the hand.
func (s Seat) DealtIn() bool { return s.StartingStack > 0 }

// DealtIn returns the seats that took part in the hand, in recorded order.
func (h *Hand) DealtIn() []Seat {
	out := make([]Seat, 0, len(h.Seats))
	for _, s := range h.Seats {
		if s.DealtIn() {
			out = append(out, s)
		}
	}
	return out
}

func (h *Hand) SeatByUID(uid string) (Seat, bool) {
	for _, s := range h.Seats {
		if s.PlayerUID == uid {
			return s, true
		}
	}
	return Seat{}, false
}

// Button returns the seat carrying the button flag.
func (h *Hand) Button() (Seat, bool) {
	for _, s := range h.Seats {
		if s.IsButton {
			return s, true
		}
	}
	return Seat{}, false
}

func (h *Hand) TotalPot() int {
	total := 0
	for _, p := range h.Pots {
		total += p.Amount
	}
	return total
}

// HoleCards returns the cards shown at showdown, keyed by player.
func (h *Hand) HoleCards() map[string][]cards.Card {
	out := make(map[string][]cards.Card, len(h.Showdown))
	for _, e := range h.Showdown {
		if len(e.HoleCards) > 0 {
			out[e.PlayerUID] = append([]cards.Card(nil), e.HoleCards...)
		}
	}
	return out
}

// IsComplete reports whether the hand was finalized with a result.
func (h *Hand) IsComplete() bool {
	return h != nil && len(h.FinalStacks) > 0 && len(h.Pots) > 0
}

// SeatResult is one player's outcome in a finished hand.
type SeatResult struct {
	Final int
	Net   int
	Won   int
}

// Results derives per-player outcomes from final stacks and pot shares.
func (h *Hand) Results() map[string]SeatResult {
	out := make(map[string]SeatResult, len(h.Seats))
	for _, s := range h.Seats {
		final, ok := h.FinalStacks[s.PlayerUID]
		if !ok {
			final = s.StartingStack
		}
		out[s.PlayerUID] = SeatResult{Final: final, Net: final - s.StartingStack}
	}
	for _, p := range h.Pots {
		for uid, amt := range p.Shares {
			r := out[uid]
			r.Won += amt
			out[uid] = r
		}
	}
	return out
}

// WentToShowdown reports whether hole cards were compared.
func (h *Hand) WentToShowdown() bool { return len(h.Showdown) > 1 }
