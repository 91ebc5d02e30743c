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

// UserService is the user directory: identities keyed by the platform's
// external id, plus the master/admin/mute flags.
type UserService struct {
	DB      *gorm.DB
	Timeout time.Duration
	log     *logrus.Entry
}

func NewUserService(db *gorm.DB, log logrus.FieldLogger, timeout time.Duration) *UserService {
	return &UserService{DB: db, Timeout: timeout, log: logging.Component(log, "users")}
}

// CreateUser inserts a new account and returns its internal id.
func (s *UserService) CreateUser(ctx context.Context, externalID int64, username, firstName, lastName string) (uint, error) {
	if externalID == 0 {
		return 0, fmt.Errorf("%w: external id is required", ErrValidation)
	}
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	user := models.User{
		ExternalID: externalID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
	}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("user %d: %w", externalID, ErrAlreadyExists)
		}
		return 0, classifyStoreError(s.log.WithField("external_id", externalID), "create user", err)
	}
	s.log.WithFields(logrus.Fields{"external_id": externalID, "user_id": user.ID}).Info("user created")
	return user.ID, nil
}

// EnsureUser returns the account for externalID, creating it on first contact.
func (s *UserService) EnsureUser(ctx context.Context, externalID int64, username, firstName, lastName string) (*models.User, bool, error) {
	user, err := s.GetUser(ctx, externalID)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		return user, false, nil
	}

	id, err := s.CreateUser(ctx, externalID, username, firstName, lastName)
	if errors.Is(err, ErrAlreadyExists) {
		// lost a race with a concurrent first contact
		user, err = s.GetUser(ctx, externalID)
		if err == nil && user == nil {
			err = fmt.Errorf("user %d: %w", externalID, ErrNotFound)
		}
		return user, false, err
	}
	if err != nil {
		return nil, false, err
	}
	user, err = s.GetUserByID(ctx, id)
	return user, err == nil, err
}

// GetUser looks a user up by platform id. A missing user is (nil, nil).
func (s *UserService) GetUser(ctx context.Context, externalID int64) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var user models.User
	err := s.DB.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyStoreError(s.log.WithField("external_id", externalID), "get user", err)
	}
	return &user, nil
}

// GetUserByID looks a user up by internal id. A missing user is (nil, nil).
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var user models.User
	err := s.DB.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyStoreError(s.log.WithField("user_id", id), "get user by id", err)
	}
	return &user, nil
}

func (s *UserService) SetMaster(ctx context.Context, externalID int64, isMaster bool) (bool, error) {
	return s.setFlag(ctx, externalID, "is_master", isMaster)
}

func (s *UserService) SetAdmin(ctx context.Context, externalID int64, isAdmin bool) (bool, error) {
	return s.setFlag(ctx, externalID, "is_admin", isAdmin)
}

// MuteUser toggles whether the user receives table announcements.
func (s *UserService) MuteUser(ctx context.Context, externalID int64, mute bool) (bool, error) {
	return s.setFlag(ctx, externalID, "mute", mute)
}

// setFlag is only called with the fixed column names above.
func (s *UserService) setFlag(ctx context.Context, externalID int64, column string, value bool) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("external_id = ?", externalID).
		Update(column, value)
	if res.Error != nil {
		return false, classifyStoreError(s.log.WithField("external_id", externalID), "set "+column, res.Error)
	}
	if res.RowsAffected > 0 {
		s.log.WithFields(logrus.Fields{"external_id": externalID, column: value}).Info("user flag updated")
	}
	return res.RowsAffected > 0, nil
}

// GetAllUsers lists every account, oldest first.
func (s *UserService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return s.listUsers(ctx, "get all users", s.DB)
}

// GetUnmutedUsers lists the accounts that receive announcements.
func (s *UserService) GetUnmutedUsers(ctx context.Context) ([]models.User, error) {
	return s.listUsers(ctx, "get unmuted users", s.DB.Where("mute = ?", false))
}

func (s *UserService) listUsers(ctx context.Context, op string, q *gorm.DB) ([]models.User, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var users []models.User
	if err := q.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, classifyStoreError(s.log, op, err)
	}
	return users, nil
}

// DeleteUser hard-deletes an account and its registrations. Masters who still
// own tables cannot be deleted.
func (s *UserService) DeleteUser(ctx context.Context, externalID int64) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	res := s.DB.WithContext(ctx).Where("external_id = ?", externalID).Delete(&models.User{})
	if res.Error != nil {
		if isForeignKeyViolation(res.Error) {
			return false, fmt.Errorf("user %d still owns tables: %w", externalID, ErrValidation)
		}
		return false, classifyStoreError(s.log.WithField("external_id", externalID), "delete user", res.Error)
	}
	if res.RowsAffected > 0 {
		s.log.WithField("external_id", externalID).Warn("user hard-deleted")
	}
	return res.RowsAffected > 0, nil
}

// GetUsersByIDs loads the given accounts keyed by internal id. Unknown ids
// are simply absent from the map.
func (s *UserService) GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	out := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	var users []models.User
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, classifyStoreError(s.log, "get users by ids", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
