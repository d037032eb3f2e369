package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

type inMemoryEntry struct {
	uid    string
	hand   *handhistory.Hand
	source HandSourceRef
}

type MemoryRepository struct {
	mu          sync.RWMutex
	hands       map[string]inMemoryEntry
	occurrences map[HandSourceRef]string
	cursors     map[string]ImportCursor
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		hands:       make(map[string]inMemoryEntry),
		occurrences: make(map[HandSourceRef]string),
		cursors:     make(map[string]ImportCursor),
	}
}

func (r *MemoryRepository) UpsertHands(_ context.Context, hands []PersistedHand) (UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsertHandsLocked(hands), nil
}

func (r *MemoryRepository) upsertHandsLocked(hands []PersistedHand) UpsertResult {
	res := UpsertResult{}
	for _, ph := range hands {
		if ph.Hand == nil {
			res.Skipped++
			continue
		}
		uid := ph.Source.HandUID
		span := HandSourceRef{SourcePath: ph.Source.SourcePath, Position: ph.Source.Position}
		if existing, ok := r.occurrences[span]; ok && span.SourcePath != "" {
			uid = existing
		}
		if uid == "" {
			uid = GenerateHandUID(ph.Hand, ph.Source)
		}
		if _, ok := r.hands[uid]; ok {
			res.Updated++
		} else {
			res.Inserted++
		}
		r.hands[uid] = inMemoryEntry{uid: uid, hand: handhistory.Clone(ph.Hand), source: ph.Source}
		if span.SourcePath != "" {
			r.occurrences[span] = uid
		}
	}
	return res
}

// sortedLocked returns matching entries ordered by start time, oldest first.
func (r *MemoryRepository) sortedLocked(f HandFilter) []inMemoryEntry {
	out := make([]inMemoryEntry, 0, len(r.hands))
	for _, entry := range r.hands {
		if entry.hand == nil || !matches(entry.hand, f) {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].hand.Metadata.StartedAt, out[j].hand.Metadata.StartedAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i].uid < out[j].uid
	})
	return out
}

func (r *MemoryRepository) ListHands(_ context.Context, f HandFilter) ([]*handhistory.Hand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.sortedLocked(f)
	out := make([]*handhistory.Hand, 0, len(entries))
	for _, e := range entries {
		out = append(out, handhistory.Clone(e.hand))
	}
	return out, nil
}

func (r *MemoryRepository) CountHands(_ context.Context, f HandFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sortedLocked(f)), nil
}

func (r *MemoryRepository) ListHandSummaries(_ context.Context, f HandFilter) ([]HandSummary, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f.OnlyComplete = true
	entries := r.sortedLocked(f)
	total := len(entries)
	// Newest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if f.Offset > 0 {
		if f.Offset >= len(entries) {
			entries = nil
		} else {
			entries = entries[f.Offset:]
		}
	}
	if f.Limit > 0 && len(entries) > f.Limit {
		entries = entries[:f.Limit]
	}
	out := make([]HandSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, summarize(e.uid, e.hand, f.PlayerUID))
	}
	return out, total, nil
}

func (r *MemoryRepository) GetHandByUID(_ context.Context, uid string) (*handhistory.Hand, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.hands[uid]
	if !ok {
		return nil, nil
	}
	return handhistory.Clone(e.hand), nil
}

func (r *MemoryRepository) PlayerTotals(_ context.Context, f HandFilter) ([]PlayerTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byUID := map[string]*PlayerTotal{}
	for _, e := range r.sortedLocked(f) {
		results := e.hand.Results()
		for _, s := range e.hand.DealtIn() {
			uid, res := s.PlayerUID, results[s.PlayerUID]
			if f.PlayerUID != "" && uid != f.PlayerUID {
				continue
			}
			t, ok := byUID[uid]
			if !ok {
				t = &PlayerTotal{PlayerUID: uid}
				byUID[uid] = t
			}
			t.Hands++
			t.NetChips += res.Net
			if res.Won > 0 {
				t.HandsWon++
			}
		}
	}
	out := make([]PlayerTotal, 0, len(byUID))
	for _, t := range byUID {
		out = append(out, *t)
	}
	sortPlayerTotals(out)
	return out, nil
}

func (r *MemoryRepository) GetCursor(_ context.Context, sourcePath string) (*ImportCursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cursors[sourcePath]
	if !ok {
		return nil, nil
	}
	copyCursor := c
	return &copyCursor, nil
}

func (r *MemoryRepository) SaveCursor(_ context.Context, c ImportCursor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	r.cursors[c.SourcePath] = c
	return nil
}

func (r *MemoryRepository) MarkFullyImported(_ context.Context, sourcePath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cursors[sourcePath]
	if !ok {
		return nil
	}
	c.IsFullyImported = true
	c.UpdatedAt = time.Now()
	r.cursors[sourcePath] = c
	return nil
}

func (r *MemoryRepository) SaveImportBatch(_ context.Context, hands []PersistedHand, c ImportCursor) (UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.upsertHandsLocked(hands)
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	r.cursors[c.SourcePath] = c
	return res, nil
}
