package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

// ErrTableFinished is returned when fewer than two players have chips.
var ErrTableFinished = errors.New("fewer than two players with chips")

// handNamespace scopes deterministic hand ids.
var handNamespace = uuid.MustParse("6f1c3b0e-3d5e-4b8a-9d37-1a2b6c0d9e41")

// TableOptions configures a Table.
type TableOptions struct {
	ID         string
	SmallBlind int
	BigBlind   int
	Ante       int
	Rake       int
	Seats      []handhistory.Seat
	Evaluator  HandEvaluator
	Clock      func() time.Time
	Logger     *slog.Logger
	// DealOutUncontested is passed to every hand's Config.
	DealOutUncontested bool
}

// Table plays consecutive hands, carrying stacks between them and moving
// the button one funded seat clockwise each hand.
type Table struct {
	opts   TableOptions
	seats  []handhistory.Seat
	button int
	handNo int
	// pendingButton is the button of the hand handed out by NextHand.
	pendingButton int
}

func NewTable(opts TableOptions) (*Table, error) {
	if opts.BigBlind <= 0 {
		return nil, fmt.Errorf("big blind must be positive")
	}
	if len(opts.Seats) < 2 {
		return nil, fmt.Errorf("need at least 2 seats, got %d", len(opts.Seats))
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	seats := append([]handhistory.Seat(nil), opts.Seats...)
	for i := range seats {
		seats[i].IsButton = false
		if seats[i].SeatNo == 0 {
			seats[i].SeatNo = i + 1
		}
	}
	return &Table{opts: opts, seats: seats, button: -1}, nil
}

// HandID derives a stable id from the table id and hand number.
func HandID(tableID string, handNo int) string {
	return uuid.NewSHA1(handNamespace, []byte(fmt.Sprintf("%s/%d", tableID, handNo))).String()
}

// Stacks returns the current chip count per player.
func (t *Table) Stacks() map[string]int {
	out := make(map[string]int, len(t.seats))
	for _, s := range t.seats {
		out[s.PlayerUID] = s.StartingStack
	}
	return out
}

// HandsPlayed is the number of completed hands.
func (t *Table) HandsPlayed() int { return t.handNo }

func (t *Table) funded() int {
	n := 0
	for _, s := range t.seats {
		if s.StartingStack > 0 {
			n++
		}
	}
	return n
}

// PlayHand deals one hand from deck and plays it with src.
func (t *Table) PlayHand(ctx context.Context, src DecisionSource, deck *cards.Deck) (*handhistory.Hand, error) {
	m, err := t.NextHand(deck)
	if err != nil {
		return nil, err
	}
	h, err := m.Run(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("hand %d: %w", t.handNo+1, err)
	}
	t.Settle(h)
	return h, nil
}

// NextHand moves the button and returns an unstarted machine for the next
// hand. The caller drives it and passes the finished history to Settle.
func (t *Table) NextHand(deck *cards.Deck) (*Machine, error) {
	if t.funded() < 2 {
		return nil, ErrTableFinished
	}
	n := len(t.seats)
	next := t.button
	for step := 1; step <= n; step++ {
		i := (t.button + step + n) % n
		if t.seats[i].StartingStack > 0 {
			next = i
			break
		}
	}
	seats := append([]handhistory.Seat(nil), t.seats...)
	seats[next].IsButton = true

	handNo := t.handNo + 1
	m, err := NewMachine(Config{
		Metadata: handhistory.HandMetadata{
			TableID:    t.opts.ID,
			HandID:     HandID(t.opts.ID, handNo),
			Variant:    handhistory.VariantNLHE,
			SmallBlind: t.opts.SmallBlind,
			BigBlind:   t.opts.BigBlind,
			Ante:       t.opts.Ante,
			Rake:       t.opts.Rake,
		},
		Seats:              seats,
		Deck:               deck,
		Evaluator:          t.opts.Evaluator,
		DealOutUncontested: t.opts.DealOutUncontested,
		Clock:              t.opts.Clock,
		Logger:             t.opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	t.pendingButton = next
	return m, nil
}

// Settle carries the final stacks of a finished hand to the next one.
func (t *Table) Settle(h *handhistory.Hand) {
	t.button = t.pendingButton
	t.handNo++
	for i := range t.seats {
		t.seats[i].StartingStack = h.FinalStacks[t.seats[i].PlayerUID]
	}
}
