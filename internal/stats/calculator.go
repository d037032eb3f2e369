package stats

import (
	"sort"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/engine"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

// Calculator computes statistics from a batch of hands.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate returns statistics keyed by player UID. Incomplete hands are
// skipped.
func (c *Calculator) Calculate(hands []*handhistory.Hand) map[string]*Stats {
	ic := NewIncrementalCalculator()
	for _, h := range hands {
		ic.Feed(h)
	}
	return ic.Compute()
}

// Sorted orders stats by hands played, then by player UID.
func Sorted(m map[string]*Stats) []*Stats {
	out := make([]*Stats, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalHands != out[j].TotalHands {
			return out[i].TotalHands > out[j].TotalHands
		}
		return out[i].PlayerUID < out[j].PlayerUID
	})
	return out
}

// handFacts is what one hand contributes for one player.
type handFacts struct {
	position engine.Position
	invested int
	won      int
	net      int

	vpip bool
	pfr  bool

	threeBetOpp    bool
	threeBet       bool
	foldToThreeOpp bool
	foldToThree    bool
	cbetOpp        bool
	cbet           bool

	sawFlop      bool
	showdown     bool
	aggPostflop  int
	callPostflop int
}

func analyzeHand(h *handhistory.Hand) map[string]*handFacts {
	seats := h.DealtIn()
	facts := make(map[string]*handFacts, len(seats))
	positions := seatPositions(h)
	results := h.Results()
	for _, s := range seats {
		r := results[s.PlayerUID]
		facts[s.PlayerUID] = &handFacts{
			position: positions[s.PlayerUID],
			won:      r.Won,
			net:      r.Net,
		}
	}

	for _, a := range h.Actions() {
		if f, ok := facts[a.ActorUID()]; ok {
			f.invested += a.Amount
		}
	}

	aggressor := analyzePreflop(h, facts)
	analyzePostflop(h, facts, aggressor)

	if h.WentToShowdown() {
		for _, e := range h.Showdown {
			if f, ok := facts[e.PlayerUID]; ok && len(e.HoleCards) > 0 {
				f.showdown = true
			}
		}
	}
	return facts
}

// analyzePreflop fills the preflop flags and returns the last preflop raiser.
func analyzePreflop(h *handhistory.Hand, facts map[string]*handFacts) string {
	st, ok := h.Streets[handhistory.StreetPreflop]
	if !ok || st == nil {
		return ""
	}
	raises := 0
	opener, lastRaiser := "", ""
	folded := make(map[string]bool)
	for _, a := range st.Actions {
		uid := a.ActorUID()
		f, ok := facts[uid]
		if !ok || !a.Kind.IsDecision() {
			continue
		}
		aggressive := a.Kind == handhistory.ActionRaise || a.Kind == handhistory.ActionBet
		switch a.Kind {
		case handhistory.ActionCall, handhistory.ActionBet, handhistory.ActionRaise:
			f.vpip = true
		case handhistory.ActionFold:
			folded[uid] = true
		}
		if aggressive {
			f.pfr = true
		}
		if raises == 1 && uid != lastRaiser {
			f.threeBetOpp = true
			if aggressive {
				f.threeBet = true
			}
		}
		if raises == 2 && uid == opener {
			f.foldToThreeOpp = true
			if a.Kind == handhistory.ActionFold {
				f.foldToThree = true
			}
		}
		if aggressive {
			raises++
			lastRaiser = uid
			if raises == 1 {
				opener = uid
			}
		}
	}

	flop, ok := h.Streets[handhistory.StreetFlop]
	if ok && flop != nil && len(flop.Board) > 0 {
		for uid, f := range facts {
			if !folded[uid] {
				f.sawFlop = true
			}
		}
	}
	return lastRaiser
}

func analyzePostflop(h *handhistory.Hand, facts map[string]*handFacts, aggressor string) {
	for _, street := range handhistory.Streets[1:] {
		st, ok := h.Streets[street]
		if !ok || st == nil {
			continue
		}
		betMade := false
		for _, a := range st.Actions {
			f, ok := facts[a.ActorUID()]
			if !ok || !a.Kind.IsDecision() {
				continue
			}
			aggressive := a.Kind == handhistory.ActionRaise || a.Kind == handhistory.ActionBet
			switch {
			case aggressive:
				f.aggPostflop++
			case a.Kind == handhistory.ActionCall:
				f.callPostflop++
			}
			if street == handhistory.StreetFlop && a.ActorUID() == aggressor && !betMade && !f.cbetOpp {
				f.cbetOpp = true
				f.cbet = aggressive
			}
			if aggressive {
				betMade = true
			}
		}
	}
}

// seatPositions labels the dealt-in players by seat order relative to the
// button, sized by how many were dealt in.
func seatPositions(h *handhistory.Hand) map[string]engine.Position {
	seats := h.DealtIn()
	sort.Slice(seats, func(i, j int) bool { return seats[i].SeatNo < seats[j].SeatNo })

	out := make(map[string]engine.Position, len(seats))
	btn := -1
	for i, s := range seats {
		if s.IsButton {
			btn = i
		}
		out[s.PlayerUID] = engine.PosUnknown
	}
	if btn < 0 || len(seats) < 2 {
		return out
	}
	start := btn + 1
	if len(seats) == 2 {
		start = btn
	}
	labels := engine.PositionLabels(len(seats))
	for i := range seats {
		s := seats[(start+i)%len(seats)]
		out[s.PlayerUID] = labels[i]
	}
	return out
}
