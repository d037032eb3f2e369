package stats

import (
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/engine"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

// IncrementalCalculator accumulates statistics hand by hand so callers can
// follow a growing history without rescanning it.
type IncrementalCalculator struct {
	players map[string]*playerAccumulator
}

type playerAccumulator struct {
	s            *Stats
	counts       map[MetricID]int
	opps         map[MetricID]int
	aggPostflop  int
	callPostflop int
	bbNet        float64
	bbHands      int
}

func NewIncrementalCalculator() *IncrementalCalculator {
	return &IncrementalCalculator{players: make(map[string]*playerAccumulator)}
}

// Feed processes a single hand. Incomplete hands are skipped.
func (ic *IncrementalCalculator) Feed(h *handhistory.Hand) {
	if h == nil || !h.IsComplete() {
		return
	}
	bb := h.Metadata.BigBlind
	for uid, f := range analyzeHand(h) {
		pa, ok := ic.players[uid]
		if !ok {
			pa = &playerAccumulator{
				s:      newStats(uid),
				counts: make(map[MetricID]int),
				opps:   make(map[MetricID]int),
			}
			ic.players[uid] = pa
		}
		pa.consume(f, bb)
	}
}

// Compute finalizes the current totals. The returned stats are snapshots.
func (ic *IncrementalCalculator) Compute() map[string]*Stats {
	out := make(map[string]*Stats, len(ic.players))
	for uid, pa := range ic.players {
		out[uid] = pa.finalize()
	}
	return out
}

func (pa *playerAccumulator) count(id MetricID, opp, hit bool) {
	if !opp {
		return
	}
	pa.opps[id]++
	if hit {
		pa.counts[id]++
	}
}

func (pa *playerAccumulator) consume(f *handFacts, bb int) {
	s := pa.s
	s.TotalHands++
	s.TotalInvested += f.invested
	s.TotalPotWon += f.won
	s.NetChips += f.net
	won := f.won > 0
	if won {
		s.WonHands++
	}
	if f.vpip {
		s.VPIPHands++
	}
	if f.pfr {
		s.PFRHands++
	}
	if f.showdown {
		s.ShowdownHands++
		if won {
			s.WonShowdowns++
		}
	}

	ps, ok := s.ByPosition[f.position]
	if !ok {
		ps = &PositionStats{Position: f.position}
		s.ByPosition[f.position] = ps
	}
	ps.Hands++
	ps.PotWon += f.won
	ps.Invested += f.invested
	ps.NetChips += f.net
	if won {
		ps.Won++
	}
	if f.vpip {
		ps.VPIP++
	}
	if f.pfr {
		ps.PFR++
	}

	pa.count(MetricVPIP, true, f.vpip)
	pa.count(MetricPFR, true, f.pfr)
	pa.count(MetricThreeBet, f.threeBetOpp, f.threeBet)
	pa.count(MetricFoldToThree, f.foldToThreeOpp, f.foldToThree)
	pa.count(MetricFlopCBet, f.cbetOpp, f.cbet)
	pa.count(MetricWTSD, f.sawFlop, f.showdown)
	pa.count(MetricWSD, f.showdown, won)
	pa.count(MetricWonWithoutSD, true, won && !f.showdown)
	pa.aggPostflop += f.aggPostflop
	pa.callPostflop += f.callPostflop
	if bb > 0 {
		pa.bbNet += float64(f.net) / float64(bb)
		pa.bbHands++
	}
}

func (pa *playerAccumulator) finalize() *Stats {
	s := *pa.s
	s.ByPosition = make(map[engine.Position]*PositionStats, len(pa.s.ByPosition))
	for pos, ps := range pa.s.ByPosition {
		cp := *ps
		s.ByPosition[pos] = &cp
	}
	s.Metrics = make(map[MetricID]MetricValue, len(metricRegistry))

	for _, def := range metricRegistry {
		v := MetricValue{
			ID:        def.ID,
			MinSample: confidenceThreshold(def.SampleClass),
			Format:    def.Format,
		}
		switch def.ID {
		case MetricGap:
			v.Opportunity = s.TotalHands
			v.Rate = percent(pa.counts[MetricVPIP], s.TotalHands) - percent(pa.counts[MetricPFR], s.TotalHands)
		case MetricAF:
			v.Count = pa.aggPostflop
			v.Opportunity = pa.aggPostflop + pa.callPostflop
			switch {
			case pa.callPostflop > 0:
				v.Rate = float64(pa.aggPostflop) / float64(pa.callPostflop)
			default:
				v.Rate = float64(pa.aggPostflop)
			}
		case MetricBBPer100:
			v.Opportunity = pa.bbHands
			if pa.bbHands > 0 {
				v.Rate = pa.bbNet / float64(pa.bbHands) * 100
			}
		default:
			v.Count = pa.counts[def.ID]
			v.Opportunity = pa.opps[def.ID]
			v.Rate = percent(v.Count, v.Opportunity)
		}
		v.Confident = v.Opportunity >= v.MinSample
		s.Metrics[def.ID] = v
	}
	return &s
}
