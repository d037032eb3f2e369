package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

type HandFilter struct {
	FromTime     *time.Time
	ToTime       *time.Time
	TableID      string
	PlayerUID    string
	OnlyComplete bool
	// Limit and Offset are used by ListHandSummaries for pagination.
	// Limit == 0 means no limit (return all matching rows).
	Limit  int
	Offset int
}

// HandSourceRef locates a hand inside an imported file. Position is the
// hand's zero-based order within the file.
type HandSourceRef struct {
	SourcePath string
	Position   int
	HandUID    string
}

type PersistedHand struct {
	Hand   *handhistory.Hand
	Source HandSourceRef
}

// HandSummary is a lightweight hand record for list display.
type HandSummary struct {
	HandUID    string
	HandID     string
	TableID    string
	StartTime  time.Time
	NumPlayers int
	TotalPot   int
	Board      string
	Showdown   bool
	IsComplete bool
	// Winners holds every player with a pot share, sorted.
	Winners []string
	// NetChips is set for HandFilter.PlayerUID when that player was seated.
	NetChips int
}

// PlayerTotal aggregates results over many hands.
type PlayerTotal struct {
	PlayerUID string
	Hands     int
	HandsWon  int
	NetChips  int
}

type UpsertResult struct {
	Inserted int
	Updated  int
	Skipped  int
}

// ImportCursor remembers what was imported from a source file. A file whose
// content hash is unchanged does not need to be read again.
type ImportCursor struct {
	SourcePath      string
	ContentHash     string
	HandCount       int
	LastHandUID     string
	IsFullyImported bool
	UpdatedAt       time.Time
}

type HandRepository interface {
	UpsertHands(ctx context.Context, hands []PersistedHand) (UpsertResult, error)
	// ListHands returns matching hands ordered by start time, oldest first.
	ListHands(ctx context.Context, f HandFilter) ([]*handhistory.Hand, error)
	CountHands(ctx context.Context, f HandFilter) (int, error)
	// ListHandSummaries returns lightweight summaries, newest first, and the
	// total count of matching hands (ignoring Limit/Offset).
	ListHandSummaries(ctx context.Context, f HandFilter) ([]HandSummary, int, error)
	// GetHandByUID returns nil, nil if not found.
	GetHandByUID(ctx context.Context, uid string) (*handhistory.Hand, error)
	// PlayerTotals aggregates per-player results, best net result first.
	PlayerTotals(ctx context.Context, f HandFilter) ([]PlayerTotal, error)
}

type CursorRepository interface {
	GetCursor(ctx context.Context, sourcePath string) (*ImportCursor, error)
	SaveCursor(ctx context.Context, c ImportCursor) error
	// MarkFullyImported sets is_fully_imported on an existing cursor.
	// If no cursor row exists yet the call is a no-op.
	MarkFullyImported(ctx context.Context, sourcePath string) error
}

type ImportRepository interface {
	HandRepository
	CursorRepository
}

type ImportBatchRepository interface {
	ImportRepository
	SaveImportBatch(ctx context.Context, hands []PersistedHand, cursor ImportCursor) (UpsertResult, error)
}

// GenerateHandUID derives a stable id from the hand's content, so the same
// hand imported from two files is stored once.
func GenerateHandUID(h *handhistory.Hand, src HandSourceRef) string {
	if h == nil {
		payload := fmt.Sprintf("src:%s|%d", src.SourcePath, src.Position)
		s := sha256.Sum256([]byte(payload))
		return hex.EncodeToString(s[:])
	}

	m := h.Metadata
	b := strings.Builder{}
	b.WriteString("v1|")
	b.WriteString(m.TableID)
	b.WriteByte('|')
	b.WriteString(m.HandID)
	b.WriteByte('|')
	b.WriteString(m.Variant)
	b.WriteByte('|')
	b.WriteString(m.StartedAt.UTC().Format(time.RFC3339Nano))
	b.WriteByte('|')
	appendInt(&b, m.SmallBlind)
	b.WriteByte('/')
	appendInt(&b, m.BigBlind)
	b.WriteByte('/')
	appendInt(&b, m.Ante)

	b.WriteString("|S:")
	for _, s := range h.Seats {
		appendInt(&b, s.SeatNo)
		b.WriteByte(':')
		b.WriteString(s.PlayerUID)
		b.WriteByte(':')
		appendInt(&b, s.StartingStack)
		b.WriteByte(':')
		b.WriteString(strconv.FormatBool(s.IsButton))
		b.WriteByte(';')
	}

	b.WriteString("|B:")
	b.WriteString(cards.Join(h.Board()))

	b.WriteString("|A:")
	for _, a := range h.Actions() {
		appendInt(&b, a.Index)
		b.WriteByte('/')
		b.WriteString(string(a.Street))
		b.WriteByte('/')
		b.WriteString(a.ActorUID())
		b.WriteByte('/')
		b.WriteString(string(a.Kind))
		b.WriteByte('/')
		appendInt(&b, a.Amount)
		b.WriteByte('/')
		appendInt(&b, a.ToAmount)
		b.WriteByte(';')
	}

	uids := make([]string, 0, len(h.FinalStacks))
	for uid := range h.FinalStacks {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	b.WriteString("|F:")
	for _, uid := range uids {
		b.WriteString(uid)
		b.WriteByte(':')
		appendInt(&b, h.FinalStacks[uid])
		b.WriteByte(';')
	}

	payload := b.String()
	s := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(s[:])
}

func appendInt(b *strings.Builder, v int) {
	b.WriteString(strconv.Itoa(v))
}

// summarize builds the list view of a hand.
func summarize(uid string, h *handhistory.Hand, playerUID string) HandSummary {
	s := HandSummary{
		HandUID:    uid,
		HandID:     h.Metadata.HandID,
		TableID:    h.Metadata.TableID,
		StartTime:  h.Metadata.StartedAt,
		NumPlayers: len(h.DealtIn()),
		TotalPot:   h.TotalPot(),
		Board:      cards.Join(h.Board()),
		Showdown:   h.WentToShowdown(),
		IsComplete: h.IsComplete(),
	}
	results := h.Results()
	for uid, r := range results {
		if r.Won > 0 {
			s.Winners = append(s.Winners, uid)
		}
	}
	sort.Strings(s.Winners)
	if playerUID != "" {
		s.NetChips = results[playerUID].Net
	}
	return s
}

// matches applies a filter to an in-memory hand.
func matches(h *handhistory.Hand, f HandFilter) bool {
	if f.OnlyComplete && !h.IsComplete() {
		return false
	}
	if f.FromTime != nil && h.Metadata.StartedAt.Before(*f.FromTime) {
		return false
	}
	if f.ToTime != nil && h.Metadata.StartedAt.After(*f.ToTime) {
		return false
	}
	if f.TableID != "" && h.Metadata.TableID != f.TableID {
		return false
	}
	if f.PlayerUID != "" {
		if s, ok := h.SeatByUID(f.PlayerUID); !ok || !s.DealtIn() {
			return false
		}
	}
	return true
}

func sortPlayerTotals(out []PlayerTotal) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].NetChips != out[j].NetChips {
			return out[i].NetChips > out[j].NetChips
		}
		return out[i].PlayerUID < out[j].PlayerUID
	})
}
