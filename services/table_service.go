package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"table-session-bot/logging"
	"table-session-bot/models"
)

// TableService is the table catalog: creation, listing, edits and
// activation of game tables.
type TableService struct {
	DB      *gorm.DB
	Timeout time.Duration
	log     *logrus.Entry
}

func NewTableService(db *gorm.DB, log logrus.FieldLogger, timeout time.Duration) *TableService {
	return &TableService{DB: db, Timeout: timeout, log: logging.Component(log, "tables")}
}

// errNoTable aborts a transaction whose table disappeared; methods that
// report absence as false translate it back.
var errNoTable = errors.New("table missing")

// CreateTable persists a completed draft and returns the new table id.
func (s *TableService) CreateTable(ctx context.Context, draft TableDraft) (uint, error) {
	if err := draft.Validate(); err != nil {
		return 0, err
	}
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()
	log := s.log.WithField("master_id", draft.MasterID)

	table := draft.toModel()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", draft.MasterID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("master %d: %w", draft.MasterID, ErrReferenceNotFound)
		}
		return tx.Create(&table).Error
	})
	if err != nil {
		return 0, classifyStoreError(log, "create table", err)
	}
	log.WithFields(logrus.Fields{"table_id": table.ID, "type": table.Type}).Infof("table %q created", table.Name)
	return table.ID, nil
}

// GetActiveTables lists tables open for registration, newest first.
func (s *TableService) GetActiveTables(ctx context.Context) ([]models.Table, error) {
	return s.listTables(ctx, "get active tables", s.DB.Where("active = ?", true))
}

// GetAllTables lists every table, newest first.
func (s *TableService) GetAllTables(ctx context.Context) ([]models.Table, error) {
	return s.listTables(ctx, "get all tables", s.DB)
}

// GetTablesByMaster lists the tables a master owns, newest first.
func (s *TableService) GetTablesByMaster(ctx context.Context, masterID uint) ([]models.Table, error) {
	return s.listTables(ctx, "get tables by master", s.DB.Where("master_id = ?", masterID))
}

func (s *TableService) GetActiveCampaignsByMaster(ctx context.Context, masterID uint) ([]models.Table, error) {
	return s.listTables(ctx, "get active campaigns",
		s.DB.Where("master_id = ? AND type = ? AND active = ?", masterID, models.TableKindCampaign, true))
}

func (s *TableService) GetInactiveCampaignsByMaster(ctx context.Context, masterID uint) ([]models.Table, error) {
	return s.listTables(ctx, "get inactive campaigns",
		s.DB.Where("master_id = ? AND type = ? AND active = ?", masterID, models.TableKindCampaign, false))
}

func (s *TableService) listTables(ctx context.Context, op string, q *gorm.DB) ([]models.Table, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var tables []models.Table
	if err := q.WithContext(ctx).Order("created_at DESC, id DESC").Find(&tables).Error; err != nil {
		return nil, classifyStoreError(s.log, op, err)
	}
	return tables, nil
}

// GetTableByID returns the table or ErrNotFound.
func (s *TableService) GetTableByID(ctx context.Context, id uint) (*models.Table, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var table models.Table
	if err := s.DB.WithContext(ctx).First(&table, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("table %d: %w", id, ErrNotFound)
		}
		return nil, classifyStoreError(s.log.WithField("table_id", id), "get table", err)
	}
	return &table, nil
}

// IsTableOwner answers whether userID (internal id) is the table's master.
// Enforcing it is up to the caller.
func (s *TableService) IsTableOwner(ctx context.Context, tableID, userID uint) (bool, error) {
	table, err := s.GetTableByID(ctx, tableID)
	if err != nil {
		return false, err
	}
	return table.IsOwnedBy(userID), nil
}

// UpdateTableStatus pauses (false) or resumes (true) a table. It reports
// false when the table does not exist.
func (s *TableService) UpdateTableStatus(ctx context.Context, tableID uint, active bool) (bool, error) {
	return s.updateColumns(ctx, "update table status", tableID, map[string]any{"active": active})
}

func (s *TableService) UpdateTableDescription(ctx context.Context, tableID uint, description string) (bool, error) {
	return s.updateColumns(ctx, "update table description", tableID, map[string]any{"description": description})
}

// SetTableImage replaces the table's image reference; an empty ref clears it.
func (s *TableService) SetTableImage(ctx context.Context, tableID uint, ref string) (bool, error) {
	var image *string
	if ref != "" {
		image = &ref
	}
	return s.updateColumns(ctx, "set table image", tableID, map[string]any{"image": image})
}

func (s *TableService) updateColumns(ctx context.Context, op string, tableID uint, values map[string]any) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	res := s.DB.WithContext(ctx).Model(&models.Table{}).Where("id = ?", tableID).Updates(values)
	if res.Error != nil {
		return false, classifyStoreError(s.log.WithField("table_id", tableID), op, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// UpdateTable edits description and seat count together.
func (s *TableService) UpdateTable(ctx context.Context, tableID uint, description string, maxPlayers int) (bool, error) {
	return s.resize(ctx, "update table", tableID, maxPlayers, map[string]any{
		"description": description,
		"max_players": maxPlayers,
	})
}

// UpdateTableMaxPlayers changes the seat count. Shrinking below the number of
// players currently seated is rejected with ErrCapacityBelowOccupancy.
func (s *TableService) UpdateTableMaxPlayers(ctx context.Context, tableID uint, maxPlayers int) (bool, error) {
	return s.resize(ctx, "update table max players", tableID, maxPlayers, map[string]any{
		"max_players": maxPlayers,
	})
}

func (s *TableService) resize(ctx context.Context, op string, tableID uint, maxPlayers int, values map[string]any) (bool, error) {
	if maxPlayers <= 0 {
		return false, fmt.Errorf("%w: max players must be positive, got %d", ErrInvalidTableData, maxPlayers)
	}
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()
	log := s.log.WithField("table_id", tableID)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockTable(tx, tableID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errNoTable
			}
			return err
		}
		seated, err := countActiveSeats(tx, tableID)
		if err != nil {
			return err
		}
		if int64(maxPlayers) < seated {
			return fmt.Errorf("table %d has %d players seated, cannot shrink to %d: %w",
				tableID, seated, maxPlayers, ErrCapacityBelowOccupancy)
		}
		return tx.Model(&models.Table{}).Where("id = ?", tableID).Updates(values).Error
	})
	if errors.Is(err, errNoTable) {
		return false, nil
	}
	if err != nil {
		return false, classifyStoreError(log, op, err)
	}
	log.WithField("max_players", maxPlayers).Info("table resized")
	return true, nil
}

// DeleteTable hard-deletes a table; its registrations go with it.
func (s *TableService) DeleteTable(ctx context.Context, tableID uint) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()
	log := s.log.WithField("table_id", tableID)

	var deleted int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// explicit child delete keeps the behaviour when a backend ignores ON DELETE CASCADE
		if err := tx.Where("table_id = ?", tableID).Delete(&models.Registration{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Table{}, tableID)
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, classifyStoreError(log, "delete table", err)
	}
	if deleted > 0 {
		log.Warn("table hard-deleted")
	}
	return deleted > 0, nil
}
