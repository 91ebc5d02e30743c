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

// RegistrationService is the seat ledger: who occupies which table, and how
// many seats are left.
type RegistrationService struct {
	DB      *gorm.DB
	Timeout time.Duration
	log     *logrus.Entry
}

func NewRegistrationService(db *gorm.DB, log logrus.FieldLogger, timeout time.Duration) *RegistrationService {
	return &RegistrationService{DB: db, Timeout: timeout, log: logging.Component(log, "registrations")}
}

func validateIDs(tableID, userID uint) error {
	if tableID == 0 || userID == 0 {
		return fmt.Errorf("%w: table id and user id must be positive", ErrValidation)
	}
	return nil
}

// CreateRegistration seats userID at tableID. A user who left the table
// earlier gets the same row back (reactivated=true). The capacity check and
// the write happen in one transaction with the table locked, so two users
// racing for the last seat cannot both get it.
func (s *RegistrationService) CreateRegistration(ctx context.Context, tableID, userID uint) (uint, bool, error) {
	if err := validateIDs(tableID, userID); err != nil {
		return 0, false, err
	}
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()
	log := s.log.WithFields(logrus.Fields{"table_id": tableID, "user_id": userID})

	var (
		regID       uint
		reactivated bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := lockTable(tx, tableID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("table %d: %w", tableID, ErrReferenceNotFound)
		}
		if err != nil {
			return err
		}

		var users int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&users).Error; err != nil {
			return err
		}
		if users == 0 {
			return fmt.Errorf("user %d: %w", userID, ErrReferenceNotFound)
		}

		var existing models.Registration
		found := true
		if err := tx.Where("table_id = ? AND user_id = ?", tableID, userID).First(&existing).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			found = false
		}
		if found && existing.IsActive() {
			return ErrAlreadyRegistered
		}

		// an inactive row is no reservation; other players may have filled the table since
		seated, err := countActiveSeats(tx, tableID)
		if err != nil {
			return err
		}
		if seated >= int64(table.MaxPlayers) {
			return ErrTableFull
		}

		if found {
			res := tx.Model(&existing).Where("is_active = ?", models.SeatInactive).Update("is_active", models.SeatActive)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrAlreadyRegistered
			}
			regID, reactivated = existing.ID, true
			return nil
		}

		reg := models.Registration{TableID: tableID, UserID: userID, State: models.SeatActive}
		if err := tx.Create(&reg).Error; err != nil {
			return err
		}
		regID = reg.ID
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyRegistered), errors.Is(err, ErrTableFull):
			log.WithError(err).Info("join refused")
			return 0, false, err
		case errors.Is(err, ErrReferenceNotFound):
			log.WithError(err).Warn("join against missing record")
			return 0, false, err
		case !errors.Is(err, ErrTransientStore) && isUniqueViolation(err):
			// a concurrent join for the same pair committed first
			log.Info("join lost race on unique pair")
			return 0, false, ErrAlreadyRegistered
		case !errors.Is(err, ErrTransientStore) && isForeignKeyViolation(err):
			log.Warn("join raced with a delete")
			return 0, false, fmt.Errorf("create registration: %w", ErrReferenceNotFound)
		}
		return 0, false, classifyStoreError(log, "create registration", err)
	}

	log.WithFields(logrus.Fields{"registration_id": regID, "reactivated": reactivated}).Info("seat taken")
	return regID, reactivated, nil
}

// UnjoinRegistration frees the user's seat. Leaving a table you do not sit
// at is a no-op that reports false.
func (s *RegistrationService) UnjoinRegistration(ctx context.Context, tableID, userID uint) (bool, error) {
	if err := validateIDs(tableID, userID); err != nil {
		return false, err
	}
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()
	log := s.log.WithFields(logrus.Fields{"table_id": tableID, "user_id": userID})

	res := s.DB.WithContext(ctx).Model(&models.Registration{}).
		Where("table_id = ? AND user_id = ? AND is_active = ?", tableID, userID, models.SeatActive).
		Update("is_active", models.SeatInactive)
	if res.Error != nil {
		return false, classifyStoreError(log, "unjoin registration", res.Error)
	}
	if res.RowsAffected > 0 {
		log.Info("seat freed")
	}
	return res.RowsAffected > 0, nil
}

// GetRegistration returns the pair's registration only while it is active.
func (s *RegistrationService) GetRegistration(ctx context.Context, tableID, userID uint) (*models.Registration, error) {
	return s.findRegistration(ctx, "get registration", tableID, userID, true)
}

// GetAnyRegistration returns the pair's registration whatever its state, so
// callers can tell "never joined" from "left".
func (s *RegistrationService) GetAnyRegistration(ctx context.Context, tableID, userID uint) (*models.Registration, error) {
	return s.findRegistration(ctx, "get any registration", tableID, userID, false)
}

func (s *RegistrationService) findRegistration(ctx context.Context, op string, tableID, userID uint, activeOnly bool) (*models.Registration, error) {
	if err := validateIDs(tableID, userID); err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	q := s.DB.WithContext(ctx).Where("table_id = ? AND user_id = ?", tableID, userID)
	if activeOnly {
		q = q.Where("is_active = ?", models.SeatActive)
	}
	var reg models.Registration
	if err := q.First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, classifyStoreError(s.log.WithFields(logrus.Fields{"table_id": tableID, "user_id": userID}), op, err)
	}
	return &reg, nil
}

func (s *RegistrationService) IsUserRegistered(ctx context.Context, tableID, userID uint) (bool, error) {
	reg, err := s.GetRegistration(ctx, tableID, userID)
	return reg != nil, err
}

// GetRegistrationsCount counts the active seats of a table.
func (s *RegistrationService) GetRegistrationsCount(ctx context.Context, tableID uint) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	count, err := countActiveSeats(s.DB.WithContext(ctx), tableID)
	if err != nil {
		return 0, classifyStoreError(s.log.WithField("table_id", tableID), "count registrations", err)
	}
	return count, nil
}

// GetRegistrationsForTable lists the seated players in the order they took
// their seat. A reactivated seat counts from its reactivation.
func (s *RegistrationService) GetRegistrationsForTable(ctx context.Context, tableID uint) ([]models.Registrant, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var players []models.Registrant
	err := s.DB.WithContext(ctx).
		Table("registrations AS r").
		Select("r.id AS registration_id, u.id AS user_id, u.external_id, u.username, u.first_name, u.last_name, r.updated_at AS joined_at").
		Joins("JOIN users u ON u.id = r.user_id").
		Where("r.table_id = ? AND r.is_active = ?", tableID, models.SeatActive).
		Order("r.updated_at ASC, r.id ASC").
		Scan(&players).Error
	if err != nil {
		return nil, classifyStoreError(s.log.WithField("table_id", tableID), "list registrations", err)
	}
	return players, nil
}

// GetTableCapacityInfo reports the seat summary of a table, or ErrNotFound.
func (s *RegistrationService) GetTableCapacityInfo(ctx context.Context, tableID uint) (models.CapacityInfo, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()
	log := s.log.WithField("table_id", tableID)

	var table models.Table
	if err := s.DB.WithContext(ctx).Select("id", "max_players").First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CapacityInfo{}, fmt.Errorf("table %d: %w", tableID, ErrNotFound)
		}
		return models.CapacityInfo{}, classifyStoreError(log, "capacity info", err)
	}
	count, err := countActiveSeats(s.DB.WithContext(ctx), tableID)
	if err != nil {
		return models.CapacityInfo{}, classifyStoreError(log, "capacity info", err)
	}
	return models.NewCapacityInfo(table.MaxPlayers, int(count)), nil
}

// GetCapacityForTables computes the seat summary of many tables with a single
// grouped count.
func (s *RegistrationService) GetCapacityForTables(ctx context.Context, tables []models.Table) (map[uint]models.CapacityInfo, error) {
	out := make(map[uint]models.CapacityInfo, len(tables))
	if len(tables) == 0 {
		return out, nil
	}
	ids := make([]uint, len(tables))
	for i, t := range tables {
		ids[i] = t.ID
	}

	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var rows []struct {
		TableID uint
		Seated  int
	}
	err := s.DB.WithContext(ctx).Model(&models.Registration{}).
		Select("table_id, COUNT(*) AS seated").
		Where("table_id IN ? AND is_active = ?", ids, models.SeatActive).
		Group("table_id").
		Scan(&rows).Error
	if err != nil {
		return nil, classifyStoreError(s.log, "capacity for tables", err)
	}
	seated := make(map[uint]int, len(rows))
	for _, r := range rows {
		seated[r.TableID] = r.Seated
	}
	for _, t := range tables {
		out[t.ID] = models.NewCapacityInfo(t.MaxPlayers, seated[t.ID])
	}
	return out, nil
}

// GetUserRegistrations lists the tables a user sits at (activeOnly) or has
// ever joined, most recent registration first.
func (s *RegistrationService) GetUserRegistrations(ctx context.Context, userID uint, activeOnly bool) ([]models.Table, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	q := s.DB.WithContext(ctx).
		Joins("JOIN registrations r ON r.table_id = tables.id").
		Where("r.user_id = ?", userID)
	if activeOnly {
		q = q.Where("r.is_active = ?", models.SeatActive)
	}
	var tables []models.Table
	if err := q.Order("r.created_at DESC, r.id DESC").Find(&tables).Error; err != nil {
		return nil, classifyStoreError(s.log.WithField("user_id", userID), "user registrations", err)
	}
	return tables, nil
}

// DeleteRegistration hard-deletes the pair's row. It is meant for
// administrative cleanup; leaving a table goes through UnjoinRegistration.
func (s *RegistrationService) DeleteRegistration(ctx context.Context, tableID, userID uint) (bool, error) {
	if err := validateIDs(tableID, userID); err != nil {
		return false, err
	}
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()
	log := s.log.WithFields(logrus.Fields{"table_id": tableID, "user_id": userID})

	res := s.DB.WithContext(ctx).Where("table_id = ? AND user_id = ?", tableID, userID).Delete(&models.Registration{})
	if res.Error != nil {
		return false, classifyStoreError(log, "delete registration", res.Error)
	}
	if res.RowsAffected > 0 {
		log.Warn("registration hard-deleted")
	}
	return res.RowsAffected > 0, nil
}

// DeleteAllRegistrationsForTable hard-deletes every row of a table and
// returns how many were removed.
func (s *RegistrationService) DeleteAllRegistrationsForTable(ctx context.Context, tableID uint) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()
	log := s.log.WithField("table_id", tableID)

	res := s.DB.WithContext(ctx).Where("table_id = ?", tableID).Delete(&models.Registration{})
	if res.Error != nil {
		return 0, classifyStoreError(log, "delete registrations for table", res.Error)
	}
	log.WithField("deleted", res.RowsAffected).Warn("registrations hard-deleted")
	return res.RowsAffected, nil
}
