// gen_handhistory generates synthetic hand-history files for import and
// replay testing.
//
// Each file holds the hands of one simulated table session. Players, stacks
// and blinds vary per file; every hand is played by the engine with seeded
// random decisions, so the output replays cleanly unless --corrupt is set.
//
// Usage:
//
//	go run ./tools/gen_handhistory [flags]
//
// Flags:
//
//	--output-dir  where to write generated files (default: "./testdata/generated")
//	--count       number of files to generate (default: 20)
//	--min-hands   minimum hands per file (default: 10)
//	--max-hands   maximum hands per file (default: 200)
//	--format      array | jsonl (default: array)
//	--corrupt     fraction of hands whose final stacks are tampered with (default: 0)
//	--seed        random seed; 0 = use current time (default: 0)
//	--start-date  base date for generated timestamps, YYYY-MM-DD (default: 2025-01-01)
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/decision"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/engine"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/showdown"
)

var playerNames = []string{
	"ada", "ben", "cleo", "dmitri", "eve", "farah", "gus", "hana", "ivan", "jun",
	"kira", "leon", "mina", "noor", "otto", "pia",
}

var blindLevels = [][2]int{{1, 2}, {2, 5}, {5, 10}, {25, 50}, {100, 200}}

// session describes one generated table.
type session struct {
	tableID string
	sb, bb  int
	ante    int
	seats   []handhistory.Seat
	hands   int
	start   time.Time
	seed    int64
}

func randomSession(rng *rand.Rand, idx int, minHands, maxHands int, start time.Time) session {
	level := blindLevels[rng.Intn(len(blindLevels))]
	n := 2 + rng.Intn(8)
	names := rng.Perm(len(playerNames))[:n]
	seats := make([]handhistory.Seat, 0, n)
	for i, k := range names {
		stack := level[1] * (40 + rng.Intn(160))
		seats = append(seats, handhistory.Seat{
			SeatNo:        i + 1,
			PlayerUID:     playerNames[k],
			Name:          playerNames[k],
			StartingStack: stack,
		})
	}
	ante := 0
	if rng.Intn(4) == 0 {
		ante = level[0] / 2
	}
	hands := minHands
	if maxHands > minHands {
		hands += rng.Intn(maxHands - minHands + 1)
	}
	return session{
		tableID: fmt.Sprintf("gen-%04d", idx),
		sb:      level[0],
		bb:      level[1],
		ante:    ante,
		seats:   seats,
		hands:   hands,
		start:   start,
		seed:    rng.Int63(),
	}
}

// play runs the session; it may stop early once a single player has all chips.
func play(ctx context.Context, s session) ([]*handhistory.Hand, error) {
	now := s.start
	table, err := engine.NewTable(engine.TableOptions{
		ID:         s.tableID,
		SmallBlind: s.sb,
		BigBlind:   s.bb,
		Ante:       s.ante,
		Seats:      s.seats,
		Evaluator:  showdown.Evaluator{},
		Clock: func() time.Time {
			now = now.Add(7 * time.Second)
			return now
		},
	})
	if err != nil {
		return nil, err
	}
	src := decision.NewRandom(s.seed)
	hands := make([]*handhistory.Hand, 0, s.hands)
	for i := 0; i < s.hands; i++ {
		h, err := table.PlayHand(ctx, src, cards.NewShuffledDeck(s.seed+int64(i)))
		if errors.Is(err, engine.ErrTableFinished) {
			break
		}
		if err != nil {
			return hands, err
		}
		hands = append(hands, h)
	}
	return hands, nil
}

// corrupt moves a chip from the biggest final stack to another seat, so the
// totals still balance but a replay no longer agrees with the record.
func corrupt(h *handhistory.Hand, rng *rand.Rand) {
	if len(h.Seats) < 2 {
		return
	}
	rich := 0
	for i, s := range h.Seats {
		if h.FinalStacks[s.PlayerUID] > h.FinalStacks[h.Seats[rich].PlayerUID] {
			rich = i
		}
	}
	other := (rich + 1 + rng.Intn(len(h.Seats)-1)) % len(h.Seats)
	h.FinalStacks[h.Seats[rich].PlayerUID]--
	h.FinalStacks[h.Seats[other].PlayerUID]++
}

func writeHands(w io.Writer, hands []*handhistory.Hand, format string) error {
	bw := bufio.NewWriter(w)
	switch format {
	case "array":
		enc := json.NewEncoder(bw)
		enc.SetIndent("", "  ")
		if err := enc.Encode(hands); err != nil {
			return err
		}
	case "jsonl":
		enc := json.NewEncoder(bw)
		for _, h := range hands {
			if err := enc.Encode(h); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return bw.Flush()
}

func generateFile(ctx context.Context, path string, s session, format string, corruptRate float64, rng *rand.Rand) (int, int, error) {
	hands, err := play(ctx, s)
	if err != nil {
		return 0, 0, err
	}
	tampered := 0
	for _, h := range hands {
		if corruptRate > 0 && rng.Float64() < corruptRate {
			corrupt(h, rng)
			tampered++
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, 0, err
	}
	if err := writeHands(f, hands, format); err != nil {
		_ = f.Close()
		return 0, 0, err
	}
	return len(hands), tampered, f.Close()
}

func main() {
	outputDir := flag.String("output-dir", "testdata/generated", "output directory")
	count := flag.Int("count", 20, "number of files to generate")
	minHands := flag.Int("min-hands", 10, "minimum hands per file")
	maxHands := flag.Int("max-hands", 200, "maximum hands per file")
	format := flag.String("format", "array", "array | jsonl")
	corruptRate := flag.Float64("corrupt", 0, "fraction of hands to tamper with")
	seed := flag.Int64("seed", 0, "random seed (0 = use current Unix time)")
	startDate := flag.String("start-date", "2025-01-01", "base date for timestamps, YYYY-MM-DD")
	flag.Parse()

	if *count < 1 {
		fmt.Fprintln(os.Stderr, "error: --count must be >= 1")
		os.Exit(1)
	}
	if *minHands < 1 || *minHands > *maxHands {
		fmt.Fprintln(os.Stderr, "error: need 1 <= --min-hands <= --max-hands")
		os.Exit(1)
	}
	if *format != "array" && *format != "jsonl" {
		fmt.Fprintf(os.Stderr, "error: unknown --format %q\n", *format)
		os.Exit(1)
	}

	actualSeed := *seed
	if actualSeed == 0 {
		actualSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(actualSeed))
	fmt.Printf("seed: %d\n", actualSeed)

	baseTime, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid --start-date %q: %v\n", *startDate, err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot create output dir %q: %v\n", *outputDir, err)
		os.Exit(1)
	}

	ext := ".json"
	if *format == "jsonl" {
		ext = ".jsonl"
	}
	ctx := context.Background()
	t := baseTime
	total := 0
	for i := 0; i < *count; i++ {
		// Stagger each session's start by 30 min to 3 h.
		t = t.Add(time.Duration(30+rng.Intn(150)) * time.Minute)
		s := randomSession(rng, i+1, *minHands, *maxHands, t)

		fname := fmt.Sprintf("session_%s%s", t.Format("2006-01-02_15-04-05"), ext)
		outPath := filepath.Join(*outputDir, fname)
		n, tampered, err := generateFile(ctx, outPath, s, *format, *corruptRate, rng)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error generating %s: %v\n", fname, err)
			os.Exit(1)
		}
		total += n
		fmt.Printf("[%3d/%d] %s  %d players  %d hands  %d tampered\n", i+1, *count, fname, len(s.seats), n, tampered)
	}

	fmt.Printf("\ndone: %d hands in %d files written to %s\n", total, *count, *outputDir)
}
