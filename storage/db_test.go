package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"table-session-bot/logging"
	"table-session-bot/models"
)

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "bot.db"), nil, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	assert.ElementsMatch(t, RequiredTables, MissingTables(db))

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
	assert.Empty(t, MissingTables(db))
}

func TestMissingTablesReportsDroppedTable(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "bot.db"), nil, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Migrator().DropTable("registrations"))
	assert.Equal(t, []string{"registrations"}, MissingTables(db))
}

func TestForeignKeysAreEnforced(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "bot.db"), nil, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })
	require.NoError(t, Migrate(db))

	err = db.Create(&models.Registration{TableID: 99, UserID: 99, State: models.SeatActive}).Error
	assert.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Registration{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeletingTableCascadesToRegistrations(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "bot.db"), nil, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })
	require.NoError(t, Migrate(db))

	master := models.User{ExternalID: 1, Username: "gm"}
	require.NoError(t, db.Create(&master).Error)
	table := models.Table{MasterID: master.ID, Type: models.TableKindOneShot, Game: "D&D 5e", Name: "Tomb", MaxPlayers: 4}
	require.NoError(t, db.Create(&table).Error)
	require.NoError(t, db.Create(&models.Registration{TableID: table.ID, UserID: master.ID, State: models.SeatActive}).Error)

	require.NoError(t, db.Delete(&models.Table{}, table.ID).Error)

	var count int64
	require.NoError(t, db.Model(&models.Registration{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("a.db"))
	assert.Equal(t, "file:a.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("file:a.db?mode=rwc"))
}
