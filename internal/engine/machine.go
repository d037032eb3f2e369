package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

// Config describes one hand. With a Deck the machine deals its own cards;
// without one it takes community cards from Board in deal order and hole
// cards from HoleCards, which is how recorded hands are replayed.
type Config struct {
	Metadata  handhistory.HandMetadata
	Seats     []handhistory.Seat
	Deck      *cards.Deck
	Board     []cards.Card
	HoleCards map[string][]cards.Card
	Evaluator HandEvaluator
	// DealOutUncontested deals the remaining board after everyone but one
	// player folds. By default the hand ends without further cards.
	DealOutUncontested bool
	Clock              func() time.Time
	Logger             *slog.Logger
}

var transitions = map[PokerState][]PokerState{
	StateStartHand:      {StatePreflopBetting},
	StatePreflopBetting: {StateDealFlop, StateShowdown},
	StateDealFlop:       {StateFlopBetting},
	StateFlopBetting:    {StateDealTurn, StateShowdown},
	StateDealTurn:       {StateTurnBetting},
	StateTurnBetting:    {StateDealRiver, StateShowdown},
	StateDealRiver:      {StateRiverBetting},
	StateRiverBetting:   {StateShowdown},
	StateShowdown:       {StateEndHand},
}

// CanTransition reports whether the machine may move from one state to another.
func CanTransition(from, to PokerState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Machine runs a single hand from the blinds to the payout.
type Machine struct {
	cfg     Config
	log     *slog.Logger
	gs      *GameState
	state   PokerState
	history *handhistory.Hand

	boardPos  int
	exhausted bool
	started   bool
	failed    error
}

func NewMachine(cfg Config) (*Machine, error) {
	meta := cfg.Metadata
	if meta.Variant == "" {
		meta.Variant = handhistory.VariantNLHE
	}
	if meta.BigBlind <= 0 {
		return nil, fmt.Errorf("big blind must be positive, got %d", meta.BigBlind)
	}
	if meta.SmallBlind < 0 || meta.SmallBlind > meta.BigBlind {
		return nil, fmt.Errorf("small blind %d outside [0, %d]", meta.SmallBlind, meta.BigBlind)
	}
	if meta.Ante < 0 {
		return nil, fmt.Errorf("negative ante %d", meta.Ante)
	}
	if len(cfg.Seats) < 2 {
		return nil, fmt.Errorf("need at least 2 seats, got %d", len(cfg.Seats))
	}

	seats := append([]handhistory.Seat(nil), cfg.Seats...)
	sort.SliceStable(seats, func(i, j int) bool { return seats[i].SeatNo < seats[j].SeatNo })
	players := make([]*Player, 0, len(seats))
	seenUID := map[string]bool{}
	seenSeat := map[int]bool{}
	button, funded := -1, 0
	for i, s := range seats {
		if s.PlayerUID == "" {
			return nil, fmt.Errorf("seat %d has no player uid", s.SeatNo)
		}
		if seenUID[s.PlayerUID] {
			return nil, fmt.Errorf("duplicate player %q", s.PlayerUID)
		}
		if seenSeat[s.SeatNo] {
			return nil, fmt.Errorf("duplicate seat number %d", s.SeatNo)
		}
		if s.StartingStack < 0 {
			return nil, fmt.Errorf("player %s has negative stack", s.PlayerUID)
		}
		seenUID[s.PlayerUID] = true
		seenSeat[s.SeatNo] = true
		if s.IsButton {
			if button >= 0 {
				return nil, fmt.Errorf("more than one button")
			}
			button = i
		}
		if s.StartingStack > 0 {
			funded++
		}
		players = append(players, &Player{
			UID:           s.PlayerUID,
			Name:          s.Name,
			Seat:          s.SeatNo,
			StartingStack: s.StartingStack,
			Stack:         s.StartingStack,
			Active:        s.StartingStack > 0,
		})
	}
	if button < 0 {
		return nil, fmt.Errorf("no button seat")
	}
	if seats[button].StartingStack == 0 {
		return nil, fmt.Errorf("button player %s has no chips", seats[button].PlayerUID)
	}
	if funded < 2 {
		return nil, fmt.Errorf("need at least 2 players with chips, got %d", funded)
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	gs := newGameState(players, meta.BigBlind)
	gs.ButtonIdx = button
	return &Machine{
		cfg:     cfg,
		log:     cfg.Logger.With("hand", meta.HandID),
		gs:      gs,
		state:   StateStartHand,
		history: handhistory.New(meta, seats),
	}, nil
}

func (m *Machine) State() PokerState { return m.state }

// Done reports whether the hand has ended, successfully or not.
func (m *Machine) Done() bool { return m.state == StateEndHand || m.failed != nil }

// Err returns the error that aborted the hand, if any.
func (m *Machine) Err() error { return m.failed }

// History returns a copy of the hand record built so far.
func (m *Machine) History() *handhistory.Hand { return handhistory.Clone(m.history) }

// ActorUID returns the player owing a decision, or "".
func (m *Machine) ActorUID() string {
	if m.gs.ActorIdx < 0 {
		return ""
	}
	return m.gs.Players[m.gs.ActorIdx].UID
}

// Start posts blinds, deals hole cards and runs until the first decision.
func (m *Machine) Start() error {
	if m.started {
		return fmt.Errorf("hand already started")
	}
	m.started = true
	if m.history.Metadata.StartedAt.IsZero() {
		m.history.Metadata.StartedAt = m.cfg.Clock().UTC()
	}
	if err := m.startHand(); err != nil {
		return m.fail(err)
	}
	if err := m.transition(StatePreflopBetting); err != nil {
		return m.fail(err)
	}
	m.gs.startRound(true)
	m.gs.ActorIdx = m.gs.nextActor(m.gs.BigBlindIdx)
	return m.advanceOrFail()
}

func (m *Machine) startHand() error {
	gs := m.gs
	n := len(gs.Players)
	funded := func(i int) bool { return gs.Players[i].Active }
	if gs.InHandCount() == 2 {
		gs.SmallBlindIdx = gs.ButtonIdx
	} else {
		gs.SmallBlindIdx = gs.nextFrom(gs.ButtonIdx, funded)
	}
	gs.BigBlindIdx = gs.nextFrom(gs.SmallBlindIdx, funded)
	gs.assignPositions()
	m.log.Debug("hand start", "players", n, "button", gs.Players[gs.ButtonIdx].UID)

	meta := m.history.Metadata
	if meta.Ante > 0 {
		for _, i := range gs.seatedFrom(gs.SmallBlindIdx) {
			p := gs.Players[i]
			amt := gs.postDead(p, meta.Ante)
			m.record(i, handhistory.ActionPostAnte, amt, 0, p.IsAllIn, "")
		}
	}
	if meta.SmallBlind > 0 {
		p := gs.Players[gs.SmallBlindIdx]
		amt := gs.commit(p, meta.SmallBlind)
		m.record(gs.SmallBlindIdx, handhistory.ActionPostSmallBlind, amt, p.CurrentBet, p.IsAllIn, "")
	}
	bb := gs.Players[gs.BigBlindIdx]
	amt := gs.commit(bb, meta.BigBlind)
	m.record(gs.BigBlindIdx, handhistory.ActionPostBigBlind, amt, bb.CurrentBet, bb.IsAllIn, "")

	if err := m.dealHoleCards(); err != nil {
		return err
	}
	return gs.CheckChips()
}

func (m *Machine) dealHoleCards() error {
	gs := m.gs
	order := gs.orderLeftOfButton(gs.seatedFrom(gs.ButtonIdx))
	if m.cfg.Deck == nil {
		for _, i := range order {
			p := gs.Players[i]
			if hc, ok := m.cfg.HoleCards[p.UID]; ok {
				if len(hc) != 2 {
					return fmt.Errorf("%w: player %s has %d hole cards", handhistory.ErrMalformed, p.UID, len(hc))
				}
				p.HoleCards = append([]cards.Card(nil), hc...)
			}
		}
		return nil
	}
	for round := 0; round < 2; round++ {
		for _, i := range order {
			c, err := m.cfg.Deck.Draw(1)
			if err != nil {
				return fmt.Errorf("deal hole cards: %w", err)
			}
			gs.Players[i].HoleCards = append(gs.Players[i].HoleCards, c...)
		}
	}
	return nil
}

// Apply executes a decision for uid. Rule violations come back as a
// rejected result together with a *RuleError; the state is unchanged.
func (m *Machine) Apply(uid string, kind ActionKind, toAmount int) (ActionResult, error) {
	if m.failed != nil {
		return ActionResult{}, m.failed
	}
	if !m.started {
		return ActionResult{}, fmt.Errorf("hand not started")
	}
	if m.state == StateEndHand {
		return ActionResult{}, ErrHandComplete
	}
	idx := m.indexOf(uid)
	if idx < 0 {
		rerr := ruleErr(RuleUnknownPlayer, uid, "not seated at this hand")
		return rejected(rerr), rerr
	}
	street := m.gs.Street
	applied, err := m.gs.apply(idx, kind, toAmount)
	if err != nil {
		var rerr *RuleError
		if errors.As(err, &rerr) {
			m.log.Debug("action rejected", "player", uid, "action", kind, "rule", rerr.Rule, "detail", rerr.Detail)
			return rejected(rerr), rerr
		}
		return ActionResult{}, m.fail(err)
	}
	p := m.gs.Players[idx]
	note := ""
	if applied.Kind == ActionRaise && !applied.FullRaise {
		note = "short all-in"
	}
	m.record(idx, applied.Kind.historyKind(), applied.Amount, applied.ToAmount, applied.AllIn, note)
	m.log.Debug("action", "street", street, "player", uid, "action", kind,
		"amount", applied.Amount, "to", applied.ToAmount, "stack", p.Stack)
	if err := m.advanceOrFail(); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Accepted: true}, nil
}

func rejected(rerr *RuleError) ActionResult {
	return ActionResult{Rule: rerr.Rule, Reason: rerr.Detail}
}

// Step asks src for the current actor's decision and applies it. When src
// has nothing for the actor, betting ends and the hand is dealt out.
func (m *Machine) Step(src DecisionSource) (ActionResult, error) {
	if m.failed != nil {
		return ActionResult{}, m.failed
	}
	if m.state == StateEndHand {
		return ActionResult{}, ErrHandComplete
	}
	uid := m.ActorUID()
	if uid == "" {
		return ActionResult{}, m.fail(invariantErr("actor", "state %s has no actor", m.state))
	}
	if !src.HasDecisionFor(uid) {
		m.log.Info("decision source exhausted, dealing out", "player", uid, "street", m.gs.Street)
		m.exhausted = true
		m.gs.clearNeed()
		if err := m.advanceOrFail(); err != nil {
			return ActionResult{}, err
		}
		return ActionResult{Accepted: true}, nil
	}
	d, err := src.Decide(uid, m.Snapshot())
	if err != nil {
		return ActionResult{}, fmt.Errorf("decide for %s: %w", uid, err)
	}
	return m.Apply(uid, d.Kind, d.ToAmount)
}

// Run drives the hand to completion with src. An automated source that
// returns an illegal action aborts the run with the rule error.
func (m *Machine) Run(ctx context.Context, src DecisionSource) (*handhistory.Hand, error) {
	if !m.started {
		if err := m.Start(); err != nil {
			return nil, err
		}
	}
	for !m.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := m.Step(src)
		if err != nil {
			return nil, err
		}
		if !res.Accepted {
			return nil, fmt.Errorf("%w: %s", ErrRuleViolation, res.Reason)
		}
	}
	if m.failed != nil {
		return nil, m.failed
	}
	return m.History(), nil
}

func (m *Machine) indexOf(uid string) int {
	for i, p := range m.gs.Players {
		if p.UID == uid {
			return i
		}
	}
	return -1
}

func (m *Machine) fail(err error) error {
	if m.failed == nil {
		m.failed = err
		m.log.Error("hand aborted", "state", m.state, "err", err)
	}
	return err
}

func (m *Machine) advanceOrFail() error {
	if err := m.advance(); err != nil {
		return m.fail(err)
	}
	return nil
}

func (m *Machine) transition(to PokerState) error {
	if !CanTransition(m.state, to) {
		return invariantErr("transition", "%s -> %s not allowed", m.state, to)
	}
	m.log.Debug("state transition", "from", m.state, "to", to)
	m.state = to
	return nil
}

// advance runs automatic states until a decision is owed or the hand ends.
func (m *Machine) advance() error {
	for {
		switch m.state {
		case StatePreflopBetting, StateFlopBetting, StateTurnBetting, StateRiverBetting:
			if !m.gs.RoundComplete() {
				if m.gs.ActorIdx < 0 {
					return invariantErr("actor", "round open with no actor on %s", m.gs.Street)
				}
				return nil
			}
			m.finishStreet()
			next := StateShowdown
			if m.state != StateRiverBetting && (m.gs.InHandCount() > 1 || m.cfg.DealOutUncontested) {
				next = m.state + 1
			}
			if err := m.transition(next); err != nil {
				return err
			}
		case StateDealFlop, StateDealTurn, StateDealRiver:
			street := handhistory.Streets[(m.state-StatePreflopBetting)/2+1]
			if err := m.dealStreet(street); err != nil {
				return err
			}
			if err := m.transition(m.state + 1); err != nil {
				return err
			}
			m.gs.startRound(!m.exhausted)
			if !m.exhausted {
				m.gs.ActorIdx = m.gs.nextActor(m.gs.ButtonIdx)
			}
		case StateShowdown:
			if err := m.settle(); err != nil {
				return err
			}
			if err := m.transition(StateEndHand); err != nil {
				return err
			}
		case StateEndHand:
			return nil
		default:
			return invariantErr("state", "unexpected state %s", m.state)
		}
	}
}

// finishStreet refunds any uncalled bet and moves street bets to the pot.
func (m *Machine) finishStreet() {
	gs := m.gs
	if idx, amt := gs.ReturnUncalled(); amt > 0 {
		m.log.Debug("uncalled bet returned", "player", gs.Players[idx].UID, "amount", amt)
	}
	gs.CommitStreet()
	gs.ActorIdx = -1
}

func (m *Machine) dealStreet(street handhistory.Street) error {
	n := street.BoardSize()
	var dealt []cards.Card
	if m.cfg.Deck != nil {
		c, err := m.cfg.Deck.Draw(n)
		if err != nil {
			return fmt.Errorf("deal %s: %w", street, err)
		}
		dealt = c
	} else {
		if m.boardPos+n > len(m.cfg.Board) {
			return fmt.Errorf("%w: board has no cards for the %s", handhistory.ErrMalformed, street)
		}
		dealt = append([]cards.Card(nil), m.cfg.Board[m.boardPos:m.boardPos+n]...)
		m.boardPos += n
	}
	m.gs.Street = street
	m.gs.Board = append(m.gs.Board, dealt...)
	st := m.history.Street(street)
	st.Board = append(st.Board, dealt...)
	m.history.Append(handhistory.Action{Street: street, Kind: handhistory.ActionDeal, Note: cards.Join(dealt)})
	m.log.Debug("dealt", "street", street, "cards", cards.Join(dealt))
	return nil
}

func (m *Machine) record(idx int, kind handhistory.ActionKind, amount, to int, allIn bool, note string) {
	uid := m.gs.Players[idx].UID
	m.history.Append(handhistory.Action{
		Street:   m.gs.Street,
		Actor:    &uid,
		Kind:     kind,
		Amount:   amount,
		ToAmount: to,
		AllIn:    allIn,
		Note:     note,
	})
}
