package services

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"table-session-bot/models"
)

// DefaultStoreTimeout bounds every store call when the caller does not configure one.
const DefaultStoreTimeout = 5 * time.Second

// withTimeout derives the bounded context a single service call runs under.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// lockTable loads a table inside tx and, on postgres, holds its row lock until
// the transaction ends. Every seat mutation that depends on max_players goes
// through here so joins and capacity edits on one table are serialized.
// The sqlite backend runs on a single connection, which already serializes
// transactions.
func lockTable(tx *gorm.DB, tableID uint) (*models.Table, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var table models.Table
	if err := q.First(&table, tableID).Error; err != nil {
		return nil, err
	}
	return &table, nil
}

func countActiveSeats(tx *gorm.DB, tableID uint) (int64, error) {
	var count int64
	err := tx.Model(&models.Registration{}).
		Where("table_id = ? AND is_active = ?", tableID, models.SeatActive).
		Count(&count).Error
	return count, err
}
