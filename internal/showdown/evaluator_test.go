package showdown

import (
	"testing"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
)

func eval(t *testing.T, hole, board string) int {
	t.Helper()
	v, err := Evaluator{}.Evaluate(cards.MustParseList(hole), cards.MustParseList(board))
	if err != nil {
		t.Fatalf("evaluate %s | %s: %v", hole, board, err)
	}
	if v.Description == "" {
		t.Fatalf("evaluate %s | %s: empty description", hole, board)
	}
	return v.Score
}

func TestEvaluatorOrdering(t *testing.T) {
	t.Parallel()

	board := "2c 7d 9h Js Kc"
	tests := []struct {
		name          string
		better, worse string
	}{
		{name: "pair beats high card", better: "2d 3s", worse: "Ah Qd"},
		{name: "higher pair", better: "Ks 4d", worse: "Jh 4c"},
		{name: "two pair beats pair", better: "9d 7c", worse: "Kh Ad"},
		{name: "set beats two pair", better: "9d 9c", worse: "Kh Jd"},
		{name: "straight beats set", better: "Qd Tc", worse: "9d 9c"},
		{name: "ace kicker", better: "Ad Kd", worse: "Qd Kh"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if b, w := eval(t, tt.better, board), eval(t, tt.worse, board); b <= w {
				t.Fatalf("%s scored %d, %s scored %d", tt.better, b, tt.worse, w)
			}
		})
	}
}

func TestEvaluatorTie(t *testing.T) {
	t.Parallel()

	board := "Ac Kd Qh Js Tc"
	if a, b := eval(t, "2c 3d", board), eval(t, "4h 5s", board); a != b {
		t.Fatalf("board straight should tie: %d vs %d", a, b)
	}
}

func TestEvaluatorWheelAndSuits(t *testing.T) {
	t.Parallel()

	wheel := eval(t, "Ah 2d", "3c 4s 5h Kd Qc")
	trips := eval(t, "Kh Ks", "3c 4s 5h Kd Qc")
	if wheel <= trips {
		t.Fatalf("wheel %d should beat trips %d", wheel, trips)
	}
	flush := eval(t, "Ah 2h", "3h 8h Jh Kd Qc")
	if flush <= wheel {
		t.Fatalf("flush %d should beat wheel %d", flush, wheel)
	}
}

func TestEvaluatorRejectsShortInput(t *testing.T) {
	t.Parallel()

	if _, err := (Evaluator{}).Evaluate(cards.MustParseList("Ah"), cards.MustParseList("2c 3c 4c 5c 6c")); err == nil {
		t.Fatal("expected error for one hole card")
	}
	if _, err := (Evaluator{}).Evaluate(cards.MustParseList("Ah Kh"), cards.MustParseList("2c 3c 4c")); err == nil {
		t.Fatal("expected error for a three-card board")
	}
}
