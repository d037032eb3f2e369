package stats

type MetricID string

const (
	MetricVPIP         MetricID = "vpip"
	MetricPFR          MetricID = "pfr"
	MetricGap          MetricID = "gap"
	MetricThreeBet     MetricID = "three_bet"
	MetricFoldToThree  MetricID = "fold_to_three_bet"
	MetricFlopCBet     MetricID = "flop_cbet"
	MetricWTSD         MetricID = "wtsd"
	MetricWSD          MetricID = "w_sd"
	MetricAF           MetricID = "af"
	MetricWonWithoutSD MetricID = "won_without_showdown"
	MetricBBPer100     MetricID = "bb_per_100"
)

type MetricSampleClass int

const (
	SampleClassHands MetricSampleClass = iota
	SampleClassSituational
)

type MetricFormat int

const (
	MetricFormatPercent MetricFormat = iota
	MetricFormatRatio
	MetricFormatBBPer100
	MetricFormatDiff
)

type MetricDefinition struct {
	ID          MetricID
	Label       string
	SampleClass MetricSampleClass
	Format      MetricFormat
}

// MetricValue is a finalized metric. Rate is a percentage for percent
// metrics and the raw value otherwise.
type MetricValue struct {
	ID          MetricID
	Count       int
	Opportunity int
	Rate        float64
	Confident   bool
	MinSample   int
	Format      MetricFormat
}

const (
	handFrequencyThreshold = 200
	situationalThreshold   = 50
)

var metricRegistry = []MetricDefinition{
	{ID: MetricVPIP, Label: "VPIP", SampleClass: SampleClassHands, Format: MetricFormatPercent},
	{ID: MetricPFR, Label: "PFR", SampleClass: SampleClassHands, Format: MetricFormatPercent},
	{ID: MetricGap, Label: "Gap", SampleClass: SampleClassHands, Format: MetricFormatDiff},
	{ID: MetricThreeBet, Label: "3Bet", SampleClass: SampleClassSituational, Format: MetricFormatPercent},
	{ID: MetricFoldToThree, Label: "Fold to 3Bet", SampleClass: SampleClassSituational, Format: MetricFormatPercent},
	{ID: MetricFlopCBet, Label: "Flop CBet", SampleClass: SampleClassSituational, Format: MetricFormatPercent},
	{ID: MetricWTSD, Label: "WTSD", SampleClass: SampleClassSituational, Format: MetricFormatPercent},
	{ID: MetricWSD, Label: "W$SD", SampleClass: SampleClassSituational, Format: MetricFormatPercent},
	{ID: MetricAF, Label: "AF", SampleClass: SampleClassSituational, Format: MetricFormatRatio},
	{ID: MetricWonWithoutSD, Label: "Won w/o SD", SampleClass: SampleClassHands, Format: MetricFormatPercent},
	{ID: MetricBBPer100, Label: "bb/100", SampleClass: SampleClassHands, Format: MetricFormatBBPer100},
}

// Definitions returns the metric registry in display order.
func Definitions() []MetricDefinition {
	return append([]MetricDefinition(nil), metricRegistry...)
}

func confidenceThreshold(class MetricSampleClass) int {
	if class == SampleClassSituational {
		return situationalThreshold
	}
	return handFrequencyThreshold
}
