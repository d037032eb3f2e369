package stats

import "github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/engine"

// Stats holds one player's aggregated statistics.
type Stats struct {
	PlayerUID string

	// Hand counts
	TotalHands    int
	WonHands      int
	ShowdownHands int
	WonShowdowns  int

	// Pre-flop
	VPIPHands int
	PFRHands  int

	// Financial
	TotalPotWon   int
	TotalInvested int
	NetChips      int

	ByPosition map[engine.Position]*PositionStats
	Metrics    map[MetricID]MetricValue
}

type PositionStats struct {
	Position engine.Position
	Hands    int
	Won      int
	VPIP     int
	PFR      int
	PotWon   int
	Invested int
	NetChips int
}

func newStats(uid string) *Stats {
	return &Stats{
		PlayerUID:  uid,
		ByPosition: make(map[engine.Position]*PositionStats),
		Metrics:    make(map[MetricID]MetricValue),
	}
}

// VPIPRate returns VPIP as a percentage.
func (s *Stats) VPIPRate() float64 {
	return percent(s.VPIPHands, s.TotalHands)
}

func (s *Stats) PFRRate() float64 {
	return percent(s.PFRHands, s.TotalHands)
}

func (s *Stats) WinRate() float64 {
	return percent(s.WonHands, s.TotalHands)
}

// Metric returns the finalized value for id, or a zero value.
func (s *Stats) Metric(id MetricID) MetricValue {
	if v, ok := s.Metrics[id]; ok {
		return v
	}
	return MetricValue{ID: id}
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}
