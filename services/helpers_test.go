package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"table-session-bot/logging"
	"table-session-bot/models"
	"table-session-bot/storage"
)

type testEnv struct {
	db            *gorm.DB
	users         *UserService
	tables        *TableService
	registrations *RegistrationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logging.Discard()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "bot.db"), nil, log)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close(db) })
	require.NoError(t, storage.Migrate(db))

	return &testEnv{
		db:            db,
		users:         NewUserService(db, log, 5*time.Second),
		tables:        NewTableService(db, log, 5*time.Second),
		registrations: NewRegistrationService(db, log, 5*time.Second),
	}
}

func (e *testEnv) user(t *testing.T, externalID int64, username string) uint {
	t.Helper()
	id, err := e.users.CreateUser(context.Background(), externalID, username, "First"+username, "Last"+username)
	require.NoError(t, err)
	return id
}

func (e *testEnv) table(t *testing.T, masterID uint, name string, maxPlayers int) uint {
	t.Helper()
	draft := NewOneShotDraft(masterID)
	draft.Game = "D&D 5e"
	draft.Name = name
	draft.MaxPlayers = maxPlayers
	draft.Description = "A test table."
	id, err := e.tables.CreateTable(context.Background(), *draft)
	require.NoError(t, err)
	return id
}

func (e *testEnv) campaign(t *testing.T, masterID uint, name string, maxPlayers int) uint {
	t.Helper()
	draft := NewCampaignDraft(masterID)
	draft.Game = "Pathfinder"
	draft.Name = name
	draft.MaxPlayers = maxPlayers
	sessions := 10
	draft.NumSessions = &sessions
	id, err := e.tables.CreateTable(context.Background(), *draft)
	require.NoError(t, err)
	return id
}

func (e *testEnv) rowsForPair(t *testing.T, tableID, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Registration{}).
		Where("table_id = ? AND user_id = ?", tableID, userID).Count(&n).Error)
	return n
}
