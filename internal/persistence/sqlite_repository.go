package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so that text comparison orders timestamps.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	repo := &SQLiteRepository{db: db}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func openSQLite(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// WAL mode reduces write latency by avoiding full fsync on every commit.
	// synchronous=NORMAL is safe with WAL and significantly faster than the default FULL.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set sqlite pragmas: %w", err)
	}
	return db, nil
}

func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *SQLiteRepository) UpsertHands(ctx context.Context, hands []PersistedHand) (UpsertResult, error) {
	var res UpsertResult
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = r.upsertHandsTx(ctx, tx, hands)
		return err
	})
	if err != nil {
		return UpsertResult{}, err
	}
	return res, nil
}

func (r *SQLiteRepository) upsertHandsTx(ctx context.Context, tx *sql.Tx, hands []PersistedHand) (UpsertResult, error) {
	res := UpsertResult{}
	now := time.Now().UTC().Format(timeLayout)

	for _, ph := range hands {
		if ph.Hand == nil {
			res.Skipped++
			continue
		}
		h := ph.Hand
		uid := ph.Source.HandUID
		if resolvedUID, ok, err := findHandUIDBySourceTx(ctx, tx, ph.Source); err != nil {
			return UpsertResult{}, err
		} else if ok {
			uid = resolvedUID
		}
		if uid == "" {
			uid = GenerateHandUID(h, ph.Source)
		}

		exists, err := rowExists(ctx, tx, `SELECT 1 FROM hands WHERE hand_uid = ? LIMIT 1`, uid)
		if err != nil {
			return UpsertResult{}, err
		}

		payload, err := handhistory.Marshal(h)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("encode hand %s: %w", uid, err)
		}

		m := h.Metadata
		if _, err := tx.ExecContext(ctx, `INSERT INTO hands(
			hand_uid, table_id, hand_id, variant, small_blind, big_blind, ante, rake,
			start_time, end_time, num_players, total_pot, board, went_to_showdown, is_complete,
			payload_json, updated_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hand_uid) DO UPDATE SET
			table_id=excluded.table_id,
			hand_id=excluded.hand_id,
			variant=excluded.variant,
			small_blind=excluded.small_blind,
			big_blind=excluded.big_blind,
			ante=excluded.ante,
			rake=excluded.rake,
			start_time=excluded.start_time,
			end_time=excluded.end_time,
			num_players=excluded.num_players,
			total_pot=excluded.total_pot,
			board=excluded.board,
			went_to_showdown=excluded.went_to_showdown,
			is_complete=excluded.is_complete,
			payload_json=excluded.payload_json,
			updated_at=excluded.updated_at`,
			uid,
			m.TableID,
			m.HandID,
			m.Variant,
			m.SmallBlind,
			m.BigBlind,
			m.Ante,
			m.Rake,
			m.StartedAt.UTC().Format(timeLayout),
			m.EndedAt.UTC().Format(timeLayout),
			len(h.DealtIn()),
			h.TotalPot(),
			cards.Join(h.Board()),
			boolToInt(h.WentToShowdown()),
			boolToInt(h.IsComplete()),
			payload,
			now,
		); err != nil {
			return UpsertResult{}, fmt.Errorf("upsert hand %s: %w", uid, err)
		}

		if err := clearHandChildrenTx(ctx, tx, uid); err != nil {
			return UpsertResult{}, err
		}
		if err := insertHandChildrenTx(ctx, tx, uid, h); err != nil {
			return UpsertResult{}, err
		}

		if ph.Source.SourcePath != "" {
			if _, err := tx.ExecContext(ctx, `INSERT INTO hand_occurrences(
				source_path, position, hand_uid, updated_at
			) VALUES(?, ?, ?, ?)
			ON CONFLICT(source_path, position) DO UPDATE SET
				hand_uid=excluded.hand_uid,
				updated_at=excluded.updated_at`,
				ph.Source.SourcePath,
				ph.Source.Position,
				uid,
				now,
			); err != nil {
				return UpsertResult{}, err
			}
		}

		if exists {
			res.Updated++
		} else {
			res.Inserted++
		}
	}

	return res, nil
}

func insertHandChildrenTx(ctx context.Context, tx *sql.Tx, uid string, h *handhistory.Hand) error {
	results := h.Results()
	for _, s := range h.Seats {
		res := results[s.PlayerUID]
		if _, err := tx.ExecContext(ctx, `INSERT INTO hand_seats(
			hand_uid, seat_no, player_uid, name, starting_stack, is_button, final_stack, net_chips, won
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uid, s.SeatNo, s.PlayerUID, s.Name, s.StartingStack, boolToInt(s.IsButton),
			res.Final, res.Net, res.Won,
		); err != nil {
			return fmt.Errorf("insert seat %d: %w", s.SeatNo, err)
		}
	}

	for _, a := range h.Actions() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO hand_actions(
			hand_uid, action_index, street, actor_uid, kind, amount, to_amount, all_in, note
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uid, a.Index, string(a.Street), nullIfEmpty(a.ActorUID()), string(a.Kind),
			a.Amount, a.ToAmount, boolToInt(a.AllIn), a.Note,
		); err != nil {
			return fmt.Errorf("insert action %d: %w", a.Index, err)
		}
	}

	for i, p := range h.Pots {
		shares, err := json.Marshal(p.Shares)
		if err != nil {
			return fmt.Errorf("encode pot %d shares: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO hand_pots(
			hand_uid, pot_index, amount, eligible, shares_json
		) VALUES(?, ?, ?, ?, ?)`,
			uid, i, p.Amount, strings.Join(p.Eligible, ","), string(shares),
		); err != nil {
			return fmt.Errorf("insert pot %d: %w", i, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) ListHands(ctx context.Context, f HandFilter) ([]*handhistory.Hand, error) {
	where, args := buildHandsFilterWhere(f, "hands.")
	query := `SELECT hand_uid, payload_json FROM hands` + where + ` ORDER BY start_time ASC, hand_uid ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListHands query: %w", err)
	}
	defer rows.Close()

	var out []*handhistory.Hand
	for rows.Next() {
		var uid string
		var payload []byte
		if err := rows.Scan(&uid, &payload); err != nil {
			return nil, fmt.Errorf("ListHands scan: %w", err)
		}
		h, err := handhistory.Unmarshal(payload)
		if err != nil {
			return nil, fmt.Errorf("decode hand %s: %w", uid, err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListHands rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetHandByUID(ctx context.Context, uid string) (*handhistory.Hand, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload_json FROM hands WHERE hand_uid = ?`, uid).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	h, err := handhistory.Unmarshal(payload)
	if err != nil {
		return nil, fmt.Errorf("decode hand %s: %w", uid, err)
	}
	return h, nil
}

func (r *SQLiteRepository) CountHands(ctx context.Context, f HandFilter) (int, error) {
	where, args := buildHandsFilterWhere(f, "hands.")
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hands`+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SQLiteRepository) ListHandSummaries(ctx context.Context, f HandFilter) ([]HandSummary, int, error) {
	// Summaries always cover finished hands only.
	f.OnlyComplete = true
	where, whereArgs := buildHandsFilterWhere(f, "h.")
	args := append([]any{f.PlayerUID}, whereArgs...)

	query := `
SELECT
    h.hand_uid,
    h.hand_id,
    h.table_id,
    h.start_time,
    h.num_players,
    h.total_pot,
    h.board,
    h.went_to_showdown,
    h.is_complete,
    COALESCE(ps.net_chips, 0) AS net_chips,
    COUNT(*) OVER()           AS total_count
FROM hands h
LEFT JOIN hand_seats ps
    ON ps.hand_uid = h.hand_uid AND ps.player_uid = ?` +
		where + `
ORDER BY h.start_time DESC, h.hand_uid DESC`

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	} else if f.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListHandSummaries query: %w", err)
	}
	defer rows.Close()

	var out []HandSummary
	totalCount := 0
	for rows.Next() {
		var s HandSummary
		var startStr string
		var showdown, isComplete int
		var rowTotal int
		if err := rows.Scan(
			&s.HandUID,
			&s.HandID,
			&s.TableID,
			&startStr,
			&s.NumPlayers,
			&s.TotalPot,
			&s.Board,
			&showdown,
			&isComplete,
			&s.NetChips,
			&rowTotal,
		); err != nil {
			return nil, 0, fmt.Errorf("ListHandSummaries scan: %w", err)
		}
		if totalCount == 0 {
			totalCount = rowTotal
		}
		s.StartTime, _ = time.Parse(time.RFC3339Nano, startStr)
		s.Showdown = showdown == 1
		s.IsComplete = isComplete == 1
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListHandSummaries rows: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, 0, err
	}
	if len(out) == 0 && f.Offset > 0 {
		// COUNT(*) OVER() yields nothing once the page is past the end.
		totalCount, err = r.CountHands(ctx, f)
		if err != nil {
			return nil, 0, err
		}
	}

	if err := r.loadWinners(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, totalCount, nil
}

// sqliteMaxVars is the default SQLite SQLITE_MAX_VARIABLE_NUMBER limit.
const sqliteMaxVars = 999

func inClause(uids []string) (string, []any) {
	placeholders := make([]byte, 0, len(uids)*3)
	args := make([]any, len(uids))
	for i, uid := range uids {
		if i > 0 {
			placeholders = append(placeholders, ',', '?')
		} else {
			placeholders = append(placeholders, '?')
		}
		args[i] = uid
	}
	return "(" + string(placeholders) + ")", args
}

// loadWinners fills HandSummary.Winners from hand_seats.
// When the number of UIDs exceeds sqliteMaxVars the work is split into chunks.
func (r *SQLiteRepository) loadWinners(ctx context.Context, summaries []HandSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	idx := make(map[string]int, len(summaries))
	uids := make([]string, 0, len(summaries))
	for i, s := range summaries {
		idx[s.HandUID] = i
		uids = append(uids, s.HandUID)
	}
	for len(uids) > 0 {
		chunk := uids
		if len(chunk) > sqliteMaxVars {
			chunk = uids[:sqliteMaxVars]
		}
		uids = uids[len(chunk):]

		in, args := inClause(chunk)
		rows, err := r.db.QueryContext(ctx,
			`SELECT hand_uid, player_uid FROM hand_seats WHERE won > 0 AND hand_uid IN `+in+
				` ORDER BY hand_uid ASC, player_uid ASC`, args...)
		if err != nil {
			return fmt.Errorf("load winners: %w", err)
		}
		for rows.Next() {
			var uid, player string
			if err := rows.Scan(&uid, &player); err != nil {
				_ = rows.Close()
				return fmt.Errorf("scan winner: %w", err)
			}
			i := idx[uid]
			summaries[i].Winners = append(summaries[i].Winners, player)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) PlayerTotals(ctx context.Context, f HandFilter) ([]PlayerTotal, error) {
	where, args := buildHandsFilterWhere(f, "h.")
	where += ` AND s.starting_stack > 0`
	if f.PlayerUID != "" {
		where += ` AND s.player_uid = ?`
		args = append(args, f.PlayerUID)
	}
	query := `SELECT s.player_uid,
		COUNT(*),
		SUM(CASE WHEN s.won > 0 THEN 1 ELSE 0 END),
		SUM(s.net_chips)
		FROM hand_seats s
		JOIN hands h ON h.hand_uid = s.hand_uid` + where + `
		GROUP BY s.player_uid`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("PlayerTotals query: %w", err)
	}
	defer rows.Close()

	out := make([]PlayerTotal, 0)
	for rows.Next() {
		var t PlayerTotal
		if err := rows.Scan(&t.PlayerUID, &t.Hands, &t.HandsWon, &t.NetChips); err != nil {
			return nil, fmt.Errorf("PlayerTotals scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortPlayerTotals(out)
	return out, nil
}

func (r *SQLiteRepository) GetCursor(ctx context.Context, sourcePath string) (*ImportCursor, error) {
	row := r.db.QueryRowContext(ctx, `SELECT source_path, content_hash, hand_count, last_hand_uid,
		is_fully_imported, updated_at
		FROM imported_sources WHERE source_path = ?`, sourcePath)
	var c ImportCursor
	var lastHand sql.NullString
	var updatedAt string
	var isFullyImported int
	if err := row.Scan(
		&c.SourcePath,
		&c.ContentHash,
		&c.HandCount,
		&lastHand,
		&isFullyImported,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	c.LastHandUID = lastHand.String
	c.IsFullyImported = isFullyImported == 1
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		c.UpdatedAt = t
	}
	return &c, nil
}

func (r *SQLiteRepository) SaveCursor(ctx context.Context, c ImportCursor) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return saveCursorTx(ctx, tx, c)
	})
}

func (r *SQLiteRepository) MarkFullyImported(ctx context.Context, sourcePath string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE imported_sources SET is_fully_imported=1, updated_at=? WHERE source_path=?`,
		time.Now().UTC().Format(timeLayout),
		sourcePath,
	)
	return err
}

func (r *SQLiteRepository) SaveImportBatch(ctx context.Context, hands []PersistedHand, c ImportCursor) (UpsertResult, error) {
	var res UpsertResult
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = r.upsertHandsTx(ctx, tx, hands)
		if err != nil {
			return err
		}
		return saveCursorTx(ctx, tx, c)
	})
	if err != nil {
		return UpsertResult{}, err
	}
	return res, nil
}

func saveCursorTx(ctx context.Context, tx *sql.Tx, c ImportCursor) error {
	updatedAt := c.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO imported_sources(
		source_path, content_hash, hand_count, last_hand_uid, is_fully_imported, updated_at
	) VALUES(?, ?, ?, ?, ?, ?)
	ON CONFLICT(source_path) DO UPDATE SET
		content_hash=excluded.content_hash,
		hand_count=excluded.hand_count,
		last_hand_uid=excluded.last_hand_uid,
		is_fully_imported=excluded.is_fully_imported,
		updated_at=excluded.updated_at`,
		c.SourcePath,
		c.ContentHash,
		c.HandCount,
		nullIfEmpty(c.LastHandUID),
		boolToInt(c.IsFullyImported),
		updatedAt.UTC().Format(timeLayout),
	)
	return err
}

func rowExists(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	var probe int
	err := tx.QueryRowContext(ctx, query, args...).Scan(&probe)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func findHandUIDBySourceTx(ctx context.Context, tx *sql.Tx, src HandSourceRef) (string, bool, error) {
	if src.SourcePath == "" {
		return "", false, nil
	}
	var uid string
	err := tx.QueryRowContext(
		ctx,
		`SELECT hand_uid FROM hand_occurrences WHERE source_path = ? AND position = ? LIMIT 1`,
		src.SourcePath,
		src.Position,
	).Scan(&uid)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return uid, true, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func clearHandChildrenTx(ctx context.Context, tx *sql.Tx, handUID string) error {
	tables := []string{"hand_actions", "hand_seats", "hand_pots"}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE hand_uid = ?`, table), handUID); err != nil {
			return err
		}
	}
	return nil
}

// buildHandsFilterWhere renders f against the hands table. alias qualifies
// the columns ("hands." or "h.") so the player subquery binds correctly.
func buildHandsFilterWhere(f HandFilter, alias string) (string, []any) {
	where := " WHERE 1=1"
	args := make([]any, 0, 4)
	if f.OnlyComplete {
		where += ` AND ` + alias + `is_complete=1`
	}
	if f.FromTime != nil {
		where += ` AND ` + alias + `start_time >= ?`
		args = append(args, f.FromTime.UTC().Format(timeLayout))
	}
	if f.ToTime != nil {
		where += ` AND ` + alias + `start_time <= ?`
		args = append(args, f.ToTime.UTC().Format(timeLayout))
	}
	if f.TableID != "" {
		where += ` AND ` + alias + `table_id = ?`
		args = append(args, f.TableID)
	}
	if f.PlayerUID != "" {
		where += ` AND EXISTS (SELECT 1 FROM hand_seats hs WHERE hs.hand_uid = ` + alias + `hand_uid AND hs.player_uid = ? AND hs.starting_stack > 0)`
		args = append(args, f.PlayerUID)
	}
	return where, args
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ ImportBatchRepository = (*SQLiteRepository)(nil)
var _ ImportBatchRepository = (*MemoryRepository)(nil)
