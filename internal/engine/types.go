package engine

import (
	"fmt"
	"strings"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

// ActionKind is a player decision.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionFold
	ActionCheck
	ActionCall
	ActionBet
	ActionRaise
)

func (a ActionKind) String() string {
	switch a {
	case ActionFold:
		return "fold"
	case ActionCheck:
		return "check"
	case ActionCall:
		return "call"
	case ActionBet:
		return "bet"
	case ActionRaise:
		return "raise"
	default:
		return "unknown"
	}
}

// ParseActionKind accepts the lower-case names produced by String.
func ParseActionKind(s string) (ActionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fold":
		return ActionFold, nil
	case "check":
		return ActionCheck, nil
	case "call":
		return ActionCall, nil
	case "bet":
		return ActionBet, nil
	case "raise":
		return ActionRaise, nil
	}
	return ActionUnknown, fmt.Errorf("unknown action %q", s)
}

func (a ActionKind) historyKind() handhistory.ActionKind {
	switch a {
	case ActionFold:
		return handhistory.ActionFold
	case ActionCheck:
		return handhistory.ActionCheck
	case ActionCall:
		return handhistory.ActionCall
	case ActionBet:
		return handhistory.ActionBet
	case ActionRaise:
		return handhistory.ActionRaise
	}
	return ""
}

// FromHistoryKind maps a recorded decision kind to an ActionKind.
func FromHistoryKind(k handhistory.ActionKind) (ActionKind, bool) {
	switch k {
	case handhistory.ActionFold:
		return ActionFold, true
	case handhistory.ActionCheck:
		return ActionCheck, true
	case handhistory.ActionCall:
		return ActionCall, true
	case handhistory.ActionBet:
		return ActionBet, true
	case handhistory.ActionRaise:
		return ActionRaise, true
	}
	return ActionUnknown, false
}

// PokerState is a node of the hand state machine.
type PokerState int

const (
	StateStartHand PokerState = iota
	StatePreflopBetting
	StateDealFlop
	StateFlopBetting
	StateDealTurn
	StateTurnBetting
	StateDealRiver
	StateRiverBetting
	StateShowdown
	StateEndHand
)

func (s PokerState) String() string {
	switch s {
	case StateStartHand:
		return "START_HAND"
	case StatePreflopBetting:
		return "PREFLOP_BETTING"
	case StateDealFlop:
		return "DEAL_FLOP"
	case StateFlopBetting:
		return "FLOP_BETTING"
	case StateDealTurn:
		return "DEAL_TURN"
	case StateTurnBetting:
		return "TURN_BETTING"
	case StateDealRiver:
		return "DEAL_RIVER"
	case StateRiverBetting:
		return "RIVER_BETTING"
	case StateShowdown:
		return "SHOWDOWN"
	case StateEndHand:
		return "END_HAND"
	default:
		return "UNKNOWN"
	}
}

// IsBetting reports whether the state waits on player decisions.
func (s PokerState) IsBetting() bool {
	switch s {
	case StatePreflopBetting, StateFlopBetting, StateTurnBetting, StateRiverBetting:
		return true
	}
	return false
}

// Decision is what a DecisionSource returns for one turn. ToAmount is the
// player's total commitment for the street after a bet or raise; it is
// ignored for fold, check and call.
type Decision struct {
	Kind     ActionKind
	ToAmount int
}

// DecisionSource supplies the next action for a player. The machine calls it
// once per turn and does not know whether a human, a script or a strategy
// answers.
type DecisionSource interface {
	Decide(playerUID string, snap Snapshot) (Decision, error)
	HasDecisionFor(playerUID string) bool
}

// HandValue is a comparable hand strength; a higher Score wins.
type HandValue struct {
	Score       int
	Description string
}

// HandEvaluator ranks a player's best hand from hole and board cards.
type HandEvaluator interface {
	Evaluate(hole, board []cards.Card) (HandValue, error)
}

// LegalActions lists what the acting player may do. MinRaiseTo and
// MaxRaiseTo bound the to-amount of a bet or raise.
type LegalActions struct {
	Actions    []ActionKind
	CallAmount int
	MinRaiseTo int
	MaxRaiseTo int
}

func (l LegalActions) Allows(k ActionKind) bool {
	for _, a := range l.Actions {
		if a == k {
			return true
		}
	}
	return false
}

// ActionResult answers a command.
type ActionResult struct {
	Accepted bool
	Rule     Rule
	Reason   string
}

// AppliedAction describes an accepted action after clamping.
type AppliedAction struct {
	PlayerIdx int
	Kind      ActionKind
	Amount    int
	ToAmount  int
	AllIn     bool
	FullRaise bool
}
