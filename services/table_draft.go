package services

import (
	"fmt"
	"strconv"
	"strings"

	"table-session-bot/models"
)

// DraftStep is the next piece of data a TableDraft is waiting for.
type DraftStep int

const (
	StepGame DraftStep = iota
	StepName
	StepMaxPlayers
	StepDescription
	StepImage
	StepSessions
	StepDone
)

// TableDraft collects a new table over a multi-message conversation. It only
// lives in the caller's session; nothing reaches the store until the draft is
// passed to TableService.CreateTable, so an abandoned conversation leaves no trace.
type TableDraft struct {
	MasterID    uint             `json:"master_id"`
	Kind        models.TableKind `json:"kind"`
	Game        string           `json:"game"`
	Name        string           `json:"name"`
	MaxPlayers  int              `json:"max_players"`
	Description string           `json:"description"`
	Image       *string          `json:"image,omitempty"`
	NumSessions *int             `json:"num_sessions,omitempty"`

	imageDone bool
}

func NewOneShotDraft(masterID uint) *TableDraft {
	return &TableDraft{MasterID: masterID, Kind: models.TableKindOneShot}
}

func NewCampaignDraft(masterID uint) *TableDraft {
	return &TableDraft{MasterID: masterID, Kind: models.TableKindCampaign}
}

// NextStep reports what the conversation should ask for next.
func (d *TableDraft) NextStep() DraftStep {
	switch {
	case d.Game == "":
		return StepGame
	case d.Name == "":
		return StepName
	case d.MaxPlayers <= 0:
		return StepMaxPlayers
	case d.Description == "":
		return StepDescription
	case !d.imageDone:
		return StepImage
	case d.Kind == models.TableKindCampaign && d.NumSessions == nil:
		return StepSessions
	}
	return StepDone
}

func (d *TableDraft) SetGame(game string) error {
	game = strings.TrimSpace(game)
	if game == "" {
		return fmt.Errorf("%w: game is required", ErrInvalidTableData)
	}
	d.Game = game
	return nil
}

func (d *TableDraft) SetName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTableData)
	}
	d.Name = name
	return nil
}

// SetMaxPlayersText parses the seat count typed by the master.
func (d *TableDraft) SetMaxPlayersText(text string) error {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n <= 0 {
		return fmt.Errorf("%w: max players must be a positive number, got %q", ErrInvalidTableData, text)
	}
	d.MaxPlayers = n
	return nil
}

func (d *TableDraft) SetDescription(description string) {
	d.Description = strings.TrimSpace(description)
}

// SetImage stores the image reference (platform file id or storage URL).
func (d *TableDraft) SetImage(ref string) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		d.SkipImage()
		return
	}
	d.Image = &ref
	d.imageDone = true
}

func (d *TableDraft) SkipImage() {
	d.Image = nil
	d.imageDone = true
}

// SetSessionsText parses the planned session count of a campaign.
func (d *TableDraft) SetSessionsText(text string) error {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 0 {
		return fmt.Errorf("%w: sessions must be a non-negative number, got %q", ErrInvalidTableData, text)
	}
	d.NumSessions = &n
	return nil
}

// Validate checks the draft the same way CreateTable does.
func (d *TableDraft) Validate() error {
	var problems []string
	if d.MasterID == 0 {
		problems = append(problems, "master is required")
	}
	if !d.Kind.Valid() {
		problems = append(problems, fmt.Sprintf("kind must be %s or %s", models.TableKindOneShot, models.TableKindCampaign))
	}
	if strings.TrimSpace(d.Game) == "" {
		problems = append(problems, "game is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		problems = append(problems, "name is required")
	}
	if d.MaxPlayers <= 0 {
		problems = append(problems, "max players must be positive")
	}
	if d.NumSessions != nil {
		if d.Kind != models.TableKindCampaign {
			problems = append(problems, "only campaigns have sessions")
		} else if *d.NumSessions < 0 {
			problems = append(problems, "sessions must not be negative")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTableData, strings.Join(problems, "; "))
	}
	return nil
}

func (d *TableDraft) toModel() models.Table {
	return models.Table{
		MasterID:    d.MasterID,
		Type:        d.Kind,
		Game:        strings.TrimSpace(d.Game),
		Name:        strings.TrimSpace(d.Name),
		MaxPlayers:  d.MaxPlayers,
		Description: d.Description,
		Image:       d.Image,
		NumSessions: d.NumSessions,
		Active:      true,
	}
}
