package persistence

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/decision"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/engine"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/showdown"
)

// playHands deals up to n hands at a three-handed table with a fixed clock.
func playHands(t *testing.T, tableID string, n int) []*handhistory.Hand {
	t.Helper()
	return playTable(t, tableID, n, []handhistory.Seat{
		{PlayerUID: "alice", Name: "Alice", StartingStack: 1000},
		{PlayerUID: "bob", Name: "Bob", StartingStack: 1000},
		{PlayerUID: "carol", Name: "Carol", StartingStack: 1000},
	})
}

func playTable(t *testing.T, tableID string, n int, seats []handhistory.Seat) []*handhistory.Hand {
	t.Helper()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
	table, err := engine.NewTable(engine.TableOptions{
		ID:         tableID,
		SmallBlind: 5,
		BigBlind:   10,
		Seats:      seats,
		Evaluator:  showdown.Evaluator{},
		Clock:      clock,
	})
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	src := decision.NewRandom(7)
	var out []*handhistory.Hand
	for i := 0; i < n; i++ {
		h, err := table.PlayHand(context.Background(), src, cards.NewShuffledDeck(int64(i+1)))
		if errors.Is(err, engine.ErrTableFinished) {
			break
		}
		if err != nil {
			t.Fatalf("play hand %d: %v", i, err)
		}
		out = append(out, h)
	}
	if len(out) < 2 {
		t.Fatalf("got %d hands, want at least 2", len(out))
	}
	return out
}

func newRepos(t *testing.T) map[string]ImportBatchRepository {
	t.Helper()
	sqliteRepo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "hands.db"))
	if err != nil {
		t.Fatalf("new sqlite repo: %v", err)
	}
	t.Cleanup(func() {
		_ = sqliteRepo.Close()
	})
	return map[string]ImportBatchRepository{
		"memory": NewMemoryRepository(),
		"sqlite": sqliteRepo,
	}
}

func persisted(hands []*handhistory.Hand, path string) []PersistedHand {
	out := make([]PersistedHand, 0, len(hands))
	for i, h := range hands {
		src := HandSourceRef{SourcePath: path, Position: i}
		src.HandUID = GenerateHandUID(h, src)
		out = append(out, PersistedHand{Hand: h, Source: src})
	}
	return out
}

func mustMarshal(t *testing.T, h *handhistory.Hand) []byte {
	t.Helper()
	b, err := handhistory.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestBustedSeatIsNotCounted(t *testing.T) {
	t.Parallel()

	hands := playTable(t, "busted", 4, []handhistory.Seat{
		{SeatNo: 1, PlayerUID: "alice", Name: "Alice", StartingStack: 1000},
		{SeatNo: 2, PlayerUID: "bob", Name: "Bob", StartingStack: 1000},
		{SeatNo: 3, PlayerUID: "carol", Name: "Carol", StartingStack: 0},
	})
	for name, repo := range newRepos(t) {
		name, repo := name, repo
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := repo.UpsertHands(ctx, persisted(hands, "busted.json")); err != nil {
				t.Fatalf("upsert: %v", err)
			}

			totals, err := repo.PlayerTotals(ctx, HandFilter{})
			if err != nil {
				t.Fatalf("totals: %v", err)
			}
			if len(totals) != 2 {
				t.Fatalf("totals = %+v, want alice and bob only", totals)
			}
			for _, pt := range totals {
				if pt.PlayerUID == "carol" || pt.Hands != len(hands) {
					t.Fatalf("total %+v, want %d hands for a dealt-in player", pt, len(hands))
				}
			}

			n, err := repo.CountHands(ctx, HandFilter{PlayerUID: "carol"})
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if n != 0 {
				t.Fatalf("hands for busted carol = %d, want 0", n)
			}

			sums, _, err := repo.ListHandSummaries(ctx, HandFilter{})
			if err != nil {
				t.Fatalf("summaries: %v", err)
			}
			for _, s := range sums {
				if s.NumPlayers != 2 {
					t.Fatalf("hand %s NumPlayers = %d, want 2", s.HandID, s.NumPlayers)
				}
			}
		})
	}
}

func TestSaveImportBatchParity(t *testing.T) {
	t.Parallel()

	hands := playHands(t, "parity", 1)
	for name, repo := range newRepos(t) {
		name, repo := name, repo
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			batch := persisted(hands[:1], "session.json")
			cursor := ImportCursor{
				SourcePath:  "session.json",
				ContentHash: "abc",
				HandCount:   1,
				LastHandUID: batch[0].Source.HandUID,
				UpdatedAt:   time.Now(),
			}

			res, err := repo.SaveImportBatch(ctx, batch, cursor)
			if err != nil {
				t.Fatalf("first save import batch: %v", err)
			}
			if res.Inserted != 1 || res.Updated != 0 {
				t.Fatalf("first upsert result: %+v", res)
			}

			res, err = repo.SaveImportBatch(ctx, batch, cursor)
			if err != nil {
				t.Fatalf("second save import batch: %v", err)
			}
			if res.Updated != 1 {
				t.Fatalf("second upsert should update existing row: %+v", res)
			}

			saved, err := repo.GetCursor(ctx, "session.json")
			if err != nil {
				t.Fatalf("get cursor: %v", err)
			}
			if saved == nil || saved.ContentHash != "abc" || saved.LastHandUID != batch[0].Source.HandUID {
				t.Fatalf("cursor not saved correctly: %+v", saved)
			}
			if saved.IsFullyImported {
				t.Fatalf("cursor should not be fully imported yet")
			}
			if err := repo.MarkFullyImported(ctx, "session.json"); err != nil {
				t.Fatalf("mark fully imported: %v", err)
			}
			saved, _ = repo.GetCursor(ctx, "session.json")
			if saved == nil || !saved.IsFullyImported {
				t.Fatalf("cursor after mark: %+v", saved)
			}

			got, err := repo.GetHandByUID(ctx, batch[0].Source.HandUID)
			if err != nil {
				t.Fatalf("get hand: %v", err)
			}
			if got == nil {
				t.Fatalf("hand %s not found", batch[0].Source.HandUID)
			}
			if !bytes.Equal(mustMarshal(t, got), mustMarshal(t, hands[0])) {
				t.Fatalf("stored hand differs from original")
			}
		})
	}
}

func TestRepositoryQueryParity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hands := playHands(t, "parity", 12)
	repos := newRepos(t)
	for name, repo := range repos {
		res, err := repo.UpsertHands(ctx, persisted(hands, "a.json"))
		if err != nil {
			t.Fatalf("%s upsert: %v", name, err)
		}
		if res.Inserted != len(hands) {
			t.Fatalf("%s inserted = %d, want %d", name, res.Inserted, len(hands))
		}
	}
	mem, lite := repos["memory"], repos["sqlite"]

	from := hands[1].Metadata.StartedAt
	filters := []HandFilter{
		{},
		{OnlyComplete: true},
		{PlayerUID: "bob"},
		{TableID: "parity", FromTime: &from},
		{TableID: "other"},
		{Limit: 3, Offset: 1},
		{PlayerUID: "carol", Limit: 2},
		{Offset: 100},
	}
	for _, f := range filters {
		wantN, err := mem.CountHands(ctx, f)
		if err != nil {
			t.Fatalf("memory count: %v", err)
		}
		gotN, err := lite.CountHands(ctx, f)
		if err != nil {
			t.Fatalf("sqlite count: %v", err)
		}
		if gotN != wantN {
			t.Fatalf("CountHands(%+v): sqlite %d, memory %d", f, gotN, wantN)
		}

		wantHands, _ := mem.ListHands(ctx, f)
		gotHands, err := lite.ListHands(ctx, f)
		if err != nil {
			t.Fatalf("sqlite list: %v", err)
		}
		if len(gotHands) != len(wantHands) {
			t.Fatalf("ListHands(%+v): sqlite %d hands, memory %d", f, len(gotHands), len(wantHands))
		}
		for i := range gotHands {
			if !bytes.Equal(mustMarshal(t, gotHands[i]), mustMarshal(t, wantHands[i])) {
				t.Fatalf("ListHands(%+v)[%d] differs", f, i)
			}
		}

		wantSum, wantTotal, _ := mem.ListHandSummaries(ctx, f)
		gotSum, gotTotal, err := lite.ListHandSummaries(ctx, f)
		if err != nil {
			t.Fatalf("sqlite summaries: %v", err)
		}
		if gotTotal != wantTotal || len(gotSum) != len(wantSum) {
			t.Fatalf("ListHandSummaries(%+v): sqlite %d/%d, memory %d/%d", f, len(gotSum), gotTotal, len(wantSum), wantTotal)
		}
		for i := range gotSum {
			g, w := gotSum[i], wantSum[i]
			if !g.StartTime.Equal(w.StartTime) {
				t.Fatalf("summary %d start: got %v, want %v", i, g.StartTime, w.StartTime)
			}
			g.StartTime, w.StartTime = time.Time{}, time.Time{}
			if !reflect.DeepEqual(g, w) {
				t.Fatalf("summary %d:\n got %+v\nwant %+v", i, g, w)
			}
		}

		wantTotals, _ := mem.PlayerTotals(ctx, f)
		gotTotals, err := lite.PlayerTotals(ctx, f)
		if err != nil {
			t.Fatalf("sqlite totals: %v", err)
		}
		if !reflect.DeepEqual(gotTotals, wantTotals) {
			t.Fatalf("PlayerTotals(%+v):\n got %+v\nwant %+v", f, gotTotals, wantTotals)
		}
	}

	totals, _ := lite.PlayerTotals(ctx, HandFilter{})
	sum := 0
	for _, pt := range totals {
		sum += pt.NetChips
	}
	if sum != 0 {
		t.Fatalf("net chips sum = %d, want 0", sum)
	}
}

func TestListHandSummariesNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	hands := playHands(t, "order", 4)
	repo := NewMemoryRepository()
	if _, err := repo.UpsertHands(ctx, persisted(hands, "order.json")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	sums, total, err := repo.ListHandSummaries(ctx, HandFilter{Limit: 2})
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if total != len(hands) {
		t.Fatalf("total = %d, want %d", total, len(hands))
	}
	if len(sums) != 2 {
		t.Fatalf("len = %d, want 2", len(sums))
	}
	last := hands[len(hands)-1]
	if sums[0].HandID != last.Metadata.HandID {
		t.Fatalf("first summary = %s, want newest %s", sums[0].HandID, last.Metadata.HandID)
	}
	if len(sums[0].Winners) == 0 {
		t.Fatalf("newest hand has no winners")
	}
}

func TestSQLiteUpsertOverwritesHandChildren(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "hands.db"))
	if err != nil {
		t.Fatalf("new sqlite repo: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})

	hands := playHands(t, "overwrite", 2)
	first := persisted(hands[:1], "x.json")
	if _, err := repo.UpsertHands(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// The same file position now holds a different hand; its row is replaced.
	second := []PersistedHand{{Hand: hands[1], Source: HandSourceRef{SourcePath: "x.json", Position: 0}}}
	res, err := repo.UpsertHands(ctx, second)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if res.Updated != 1 || res.Inserted != 0 {
		t.Fatalf("second upsert result: %+v", res)
	}

	uid := first[0].Source.HandUID
	got, err := repo.GetHandByUID(ctx, uid)
	if err != nil || got == nil {
		t.Fatalf("get hand: %v %v", got, err)
	}
	if got.Metadata.HandID != hands[1].Metadata.HandID {
		t.Fatalf("hand id = %s, want %s", got.Metadata.HandID, hands[1].Metadata.HandID)
	}

	var seats, actions int
	if err := repo.db.QueryRow(`SELECT COUNT(*) FROM hand_seats WHERE hand_uid = ?`, uid).Scan(&seats); err != nil {
		t.Fatalf("count seats: %v", err)
	}
	if seats != len(hands[1].Seats) {
		t.Fatalf("seat rows = %d, want %d", seats, len(hands[1].Seats))
	}
	if err := repo.db.QueryRow(`SELECT COUNT(*) FROM hand_actions WHERE hand_uid = ?`, uid).Scan(&actions); err != nil {
		t.Fatalf("count actions: %v", err)
	}
	if actions != len(hands[1].Actions()) {
		t.Fatalf("action rows = %d, want %d", actions, len(hands[1].Actions()))
	}
}

func TestMarkFullyImportedWithoutCursorIsNoop(t *testing.T) {
	t.Parallel()

	for name, repo := range newRepos(t) {
		if err := repo.MarkFullyImported(context.Background(), "missing.json"); err != nil {
			t.Fatalf("%s: mark: %v", name, err)
		}
		c, err := repo.GetCursor(context.Background(), "missing.json")
		if err != nil {
			t.Fatalf("%s: get cursor: %v", name, err)
		}
		if c != nil {
			t.Fatalf("%s: cursor = %+v, want nil", name, c)
		}
	}
}

func TestGetHandByUIDMissing(t *testing.T) {
	t.Parallel()

	for name, repo := range newRepos(t) {
		h, err := repo.GetHandByUID(context.Background(), "nope")
		if err != nil || h != nil {
			t.Fatalf("%s: got %v, %v; want nil, nil", name, h, err)
		}
	}
}

func TestGenerateHandUID(t *testing.T) {
	t.Parallel()

	hands := playHands(t, "uid", 2)
	a := GenerateHandUID(hands[0], HandSourceRef{SourcePath: "a.json"})
	b := GenerateHandUID(handhistory.Clone(hands[0]), HandSourceRef{SourcePath: "b.json", Position: 4})
	if a != b {
		t.Fatalf("uid depends on source: %s != %s", a, b)
	}
	if c := GenerateHandUID(hands[1], HandSourceRef{}); c == a {
		t.Fatalf("different hands share uid %s", c)
	}
	if len(a) != 64 {
		t.Fatalf("uid length = %d, want 64", len(a))
	}
	x := GenerateHandUID(nil, HandSourceRef{SourcePath: "a.json", Position: 1})
	y := GenerateHandUID(nil, HandSourceRef{SourcePath: "a.json", Position: 2})
	if x == y {
		t.Fatalf("nil hands at different positions share uid")
	}
}

func TestMigrationBackfillsSeatResults(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "v1.db")
	db, err := openSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := migrateTo(db, 1); err != nil {
		_ = db.Close()
		t.Fatalf("migrate to 1: %v", err)
	}

	h := playHands(t, "legacy", 1)[0]
	payload := mustMarshal(t, h)
	if err := insertV1Hand(db, "legacy-uid", h, payload); err != nil {
		_ = db.Close()
		t.Fatalf("insert v1 hand: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("reopen with migrations: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})

	want := h.Results()
	rows, err := repo.db.Query(`SELECT player_uid, final_stack, net_chips, won FROM hand_seats WHERE hand_uid = ?`, "legacy-uid")
	if err != nil {
		t.Fatalf("query seats: %v", err)
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		var uid string
		var got handhistory.SeatResult
		if err := rows.Scan(&uid, &got.Final, &got.Net, &got.Won); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if got != want[uid] {
			t.Fatalf("%s backfill = %+v, want %+v", uid, got, want[uid])
		}
		n++
	}
	if n != len(h.Seats) {
		t.Fatalf("seat rows = %d, want %d", n, len(h.Seats))
	}
}

func insertV1Hand(db *sql.DB, uid string, h *handhistory.Hand, payload []byte) error {
	m := h.Metadata
	if _, err := db.Exec(`INSERT INTO hands(
		hand_uid, table_id, hand_id, variant, small_blind, big_blind, start_time, end_time,
		num_players, total_pot, payload_json, updated_at
	) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uid, m.TableID, m.HandID, m.Variant, m.SmallBlind, m.BigBlind,
		m.StartedAt.Format(timeLayout), m.EndedAt.Format(timeLayout),
		len(h.Seats), h.TotalPot(), payload, m.EndedAt.Format(timeLayout),
	); err != nil {
		return err
	}
	for _, s := range h.Seats {
		if _, err := db.Exec(`INSERT INTO hand_seats(hand_uid, seat_no, player_uid, name, starting_stack, is_button)
			VALUES(?, ?, ?, ?, ?, ?)`,
			uid, s.SeatNo, s.PlayerUID, s.Name, s.StartingStack, boolToInt(s.IsButton),
		); err != nil {
			return err
		}
	}
	return nil
}
