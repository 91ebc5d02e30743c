package models

import (
	"fmt"
	"strings"
	"time"
)

// TableKind is the session format of a table.
type TableKind string

const (
	TableKindOneShot  TableKind = "one_shot"
	TableKindCampaign TableKind = "campaign"
)

// ParseTableKind normalizes the kind spellings seen in older bot revisions
// ("oneshot", "one-shot") to the canonical values.
func ParseTableKind(s string) (TableKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one_shot", "oneshot", "one-shot":
		return TableKindOneShot, nil
	case "campaign":
		return TableKindCampaign, nil
	}
	return "", fmt.Errorf("unknown table kind %q", s)
}

func (k TableKind) Valid() bool {
	return k == TableKindOneShot || k == TableKindCampaign
}

// Table is a game session offered by a master.
type Table struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	MasterID    uint      `json:"master_id" gorm:"not null;index"`
	Master      *User     `json:"master,omitempty" gorm:"foreignKey:MasterID;constraint:OnDelete:RESTRICT"`
	Type        TableKind `json:"type" gorm:"column:type;type:varchar(16);not null"`
	Game        string    `json:"game" gorm:"not null"`
	Name        string    `json:"name" gorm:"not null"`
	MaxPlayers  int       `json:"max_players" gorm:"not null;check:chk_tables_max_players,max_players > 0"`
	Description string    `json:"description"`
	Image       *string   `json:"image,omitempty"`        // platform file id or object storage URL
	NumSessions *int      `json:"num_sessions,omitempty"` // campaigns only
	Active      bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Registrations []Registration `json:"-" gorm:"foreignKey:TableID;constraint:OnDelete:CASCADE"`

	// Calculated fields (not stored in DB)
	Capacity *CapacityInfo `json:"capacity,omitempty" gorm:"-"`
}

// IsOwnedBy reports whether userID (internal id) is the table's master.
func (t *Table) IsOwnedBy(userID uint) bool {
	return t.MasterID == userID
}

func (t *Table) IsCampaign() bool {
	return t.Type == TableKindCampaign
}
