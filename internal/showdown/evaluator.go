// Package showdown ranks Hold'em holdings for the engine.
package showdown

import (
	"fmt"

	"github.com/paulhankin/poker"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/engine"
)

// Evaluator ranks the best five of seven cards. Higher scores win.
type Evaluator struct{}

var _ engine.HandEvaluator = Evaluator{}

func (Evaluator) Evaluate(hole, board []cards.Card) (engine.HandValue, error) {
	if len(hole) != 2 {
		return engine.HandValue{}, fmt.Errorf("need 2 hole cards, got %d", len(hole))
	}
	if len(board) != 5 {
		return engine.HandValue{}, fmt.Errorf("need 5 board cards, got %d", len(board))
	}
	var seven [7]poker.Card
	for i, c := range append(append([]cards.Card(nil), board...), hole...) {
		pc, err := toPoker(c)
		if err != nil {
			return engine.HandValue{}, err
		}
		seven[i] = pc
	}
	desc, err := poker.Describe(seven[:])
	if err != nil {
		return engine.HandValue{}, fmt.Errorf("describe hand: %w", err)
	}
	return engine.HandValue{Score: int(poker.Eval7(&seven)), Description: desc}, nil
}

// Compare returns 1 if a beats b, -1 if b beats a and 0 on a tie.
func Compare(a, b engine.HandValue) int {
	switch {
	case a.Score > b.Score:
		return 1
	case a.Score < b.Score:
		return -1
	}
	return 0
}

func toPoker(c cards.Card) (poker.Card, error) {
	var s poker.Suit
	switch c.Suit {
	case cards.Clubs:
		s = poker.Club
	case cards.Diamonds:
		s = poker.Diamond
	case cards.Hearts:
		s = poker.Heart
	case cards.Spades:
		s = poker.Spade
	default:
		return 0, fmt.Errorf("card %v: unknown suit", c)
	}
	// The library counts the ace as rank 1.
	r := poker.Rank(c.Rank)
	if c.Rank == cards.Ace {
		r = poker.Rank(1)
	}
	pc, err := poker.MakeCard(s, r)
	if err != nil {
		return 0, fmt.Errorf("card %v: %w", c, err)
	}
	return pc, nil
}
