package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/handhistory"
)

func init() {
	goose.AddMigrationContext(Up00002, Down00002)
}

// Up00002 adds per-seat outcome columns and fills them from the stored
// hand payloads.
func Up00002(ctx context.Context, tx *sql.Tx) error {
	for _, q := range []string{
		`ALTER TABLE hand_seats ADD COLUMN final_stack INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE hand_seats ADD COLUMN net_chips INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE hand_seats ADD COLUMN won INTEGER NOT NULL DEFAULT 0`,
	} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("add seat result columns: %w", err)
		}
	}

	type stored struct {
		uid     string
		payload []byte
	}
	rows, err := tx.QueryContext(ctx, `SELECT hand_uid, payload_json FROM hands`)
	if err != nil {
		return fmt.Errorf("query hand payloads: %w", err)
	}
	var hands []stored
	for rows.Next() {
		var s stored
		if err := rows.Scan(&s.uid, &s.payload); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan hand payload: %w", err)
		}
		hands = append(hands, s)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, s := range hands {
		h, err := handhistory.Unmarshal(s.payload)
		if err != nil {
			// Undecodable payloads keep zero results; the hand row stays readable.
			continue
		}
		for uid, res := range h.Results() {
			if _, err := tx.ExecContext(ctx, `UPDATE hand_seats
				SET final_stack = ?, net_chips = ?, won = ?
				WHERE hand_uid = ? AND player_uid = ?`,
				res.Final, res.Net, res.Won, s.uid, uid); err != nil {
				return fmt.Errorf("backfill seat results for %s: %w", s.uid, err)
			}
		}
	}
	return nil
}

func Down00002(context.Context, *sql.Tx) error {
	return nil
}
