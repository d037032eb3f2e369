package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrRuleViolation marks a rejected action; state is unchanged.
	ErrRuleViolation = errors.New("rule violation")
	// ErrInvariant marks a broken engine invariant; the hand is aborted.
	ErrInvariant = errors.New("invariant violation")
	// ErrHandComplete is returned when commanding a finished hand.
	ErrHandComplete = errors.New("hand complete")
)

// Rule identifies the betting rule an action violated.
type Rule string

const (
	RuleNone            Rule = ""
	RuleUnknownPlayer   Rule = "unknown_player"
	RuleNoActionPending Rule = "no_action_pending"
	RuleNotYourTurn     Rule = "not_your_turn"
	RuleIllegalAction   Rule = "illegal_action"
	RuleBelowMinimum    Rule = "amount_below_minimum"
	RuleNotReopened     Rule = "betting_not_reopened"
)

type RuleError struct {
	Rule      Rule
	PlayerUID string
	Detail    string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s (player %s): %s", ErrRuleViolation, e.Rule, e.PlayerUID, e.Detail)
}

func (e *RuleError) Unwrap() error { return ErrRuleViolation }

func ruleErr(rule Rule, uid, format string, args ...any) *RuleError {
	return &RuleError{Rule: rule, PlayerUID: uid, Detail: fmt.Sprintf(format, args...)}
}

type InvariantError struct {
	Check  string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvariant, e.Check, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

func invariantErr(check, format string, args ...any) *InvariantError {
	return &InvariantError{Check: check, Detail: fmt.Sprintf(format, args...)}
}
