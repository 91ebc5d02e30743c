package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"table-session-bot/models"
)

func TestOneShotDraftSteps(t *testing.T) {
	d := NewOneShotDraft(1)
	assert.Equal(t, StepGame, d.NextStep())

	require.NoError(t, d.SetGame("  Call of Cthulhu "))
	assert.Equal(t, "Call of Cthulhu", d.Game)
	assert.Equal(t, StepName, d.NextStep())

	assert.ErrorIs(t, d.SetName("   "), ErrInvalidTableData)
	require.NoError(t, d.SetName("Masks"))
	assert.Equal(t, StepMaxPlayers, d.NextStep())

	assert.ErrorIs(t, d.SetMaxPlayersText("zero"), ErrInvalidTableData)
	assert.ErrorIs(t, d.SetMaxPlayersText("0"), ErrInvalidTableData)
	require.NoError(t, d.SetMaxPlayersText(" 5 "))
	assert.Equal(t, 5, d.MaxPlayers)
	assert.Equal(t, StepDescription, d.NextStep())

	d.SetDescription("Investigators wanted.")
	assert.Equal(t, StepImage, d.NextStep())

	d.SkipImage()
	assert.Nil(t, d.Image)
	assert.Equal(t, StepDone, d.NextStep())
	assert.NoError(t, d.Validate())
}

func TestCampaignDraftAsksForSessions(t *testing.T) {
	d := NewCampaignDraft(1)
	require.NoError(t, d.SetGame("Pathfinder"))
	require.NoError(t, d.SetName("Abomination Vaults"))
	require.NoError(t, d.SetMaxPlayersText("4"))
	d.SetDescription("Weekly.")
	d.SetImage("file-id-123")
	require.NotNil(t, d.Image)
	assert.Equal(t, StepSessions, d.NextStep())

	assert.ErrorIs(t, d.SetSessionsText("-1"), ErrInvalidTableData)
	require.NoError(t, d.SetSessionsText("0"))
	assert.Equal(t, StepDone, d.NextStep())
	assert.NoError(t, d.Validate())

	table := d.toModel()
	assert.Equal(t, models.TableKindCampaign, table.Type)
	assert.True(t, table.Active)
	require.NotNil(t, table.NumSessions)
	assert.Zero(t, *table.NumSessions)
}

func TestDraftValidate(t *testing.T) {
	sessions := 3
	tests := []struct {
		name  string
		draft TableDraft
		ok    bool
	}{
		{"valid one shot", TableDraft{MasterID: 1, Kind: models.TableKindOneShot, Game: "g", Name: "n", MaxPlayers: 1}, true},
		{"no master", TableDraft{Kind: models.TableKindOneShot, Game: "g", Name: "n", MaxPlayers: 1}, false},
		{"bad kind", TableDraft{MasterID: 1, Kind: "weekly", Game: "g", Name: "n", MaxPlayers: 1}, false},
		{"blank game", TableDraft{MasterID: 1, Kind: models.TableKindOneShot, Game: " ", Name: "n", MaxPlayers: 1}, false},
		{"zero seats", TableDraft{MasterID: 1, Kind: models.TableKindOneShot, Game: "g", Name: "n"}, false},
		{"sessions on one shot", TableDraft{MasterID: 1, Kind: models.TableKindOneShot, Game: "g", Name: "n", MaxPlayers: 2, NumSessions: &sessions}, false},
		{"campaign with sessions", TableDraft{MasterID: 1, Kind: models.TableKindCampaign, Game: "g", Name: "n", MaxPlayers: 2, NumSessions: &sessions}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTableData)
		})
	}
}
