// Package settlement persists the money consequences of a finished game:
// the loser pays their stake, every other participant receives an even
// share, and each delta is journaled as a PnL row.
package settlement

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// Postgres settles games against the wallet and PnL tables. All writes
// for one game happen in a single transaction.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// UpdatePlayerBalances applies the per-player deltas for one finished
// game: -stake for the loser, +winningShare for everyone else.
func (s *Postgres) UpdatePlayerBalances(ctx context.Context, playerIDs []string, loserIdx int, stake, winningShare float64, currency string) error {
	if loserIdx < 0 || loserIdx >= len(playerIDs) {
		return fmt.Errorf("settlement: loser index %d out of range for %d players", loserIdx, len(playerIDs))
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("settlement: begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, playerID := range playerIDs {
		profit := winningShare
		if i == loserIdx {
			profit = -stake
		}

		var balance float64
		if err := tx.GetContext(ctx, &balance,
			`SELECT balance FROM wallet WHERE user_id = $1 AND currency = $2 FOR UPDATE`,
			playerID, currency); err != nil {
			return fmt.Errorf("settlement: load wallet for %s: %w", playerID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE wallet SET balance = $1, updated_at = NOW() WHERE user_id = $2 AND currency = $3`,
			balance+profit, playerID, currency); err != nil {
			return fmt.Errorf("settlement: update wallet for %s: %w", playerID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO game_pnl (user_id, currency, profit, created_at) VALUES ($1, $2, $3, NOW())`,
			playerID, currency, profit); err != nil {
			return fmt.Errorf("settlement: journal pnl for %s: %w", playerID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_pnl (user_id, currency, total_matches, total_profit)
			VALUES ($1, $2, 1, $3)
			ON CONFLICT (user_id, currency) DO UPDATE
			SET total_matches = user_pnl.total_matches + 1,
			    total_profit = user_pnl.total_profit + $3,
			    updated_at = NOW()
		`, playerID, currency, profit); err != nil {
			return fmt.Errorf("settlement: update pnl totals for %s: %w", playerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("settlement: commit: %w", err)
	}

	log.Printf("[SETTLE] Applied balances for %d players (loser=%s stake=%.4f share=%.4f %s)",
		len(playerIDs), playerIDs[loserIdx], stake, winningShare, currency)
	return nil
}
