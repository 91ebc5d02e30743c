package models

import (
	"database/sql/driver"
	"fmt"
	"math"
	"time"
)

// SeatState is the lifecycle of a registration. Leaving a table moves the
// seat to SeatInactive instead of deleting the row; joining again moves the
// same row back to SeatActive. It is persisted as the boolean is_active column.
type SeatState uint8

const (
	SeatInactive SeatState = iota
	SeatActive
)

func (s SeatState) String() string {
	if s == SeatActive {
		return "active"
	}
	return "inactive"
}

func (s SeatState) Value() (driver.Value, error) {
	return s == SeatActive, nil
}

func (s *SeatState) Scan(src any) error {
	var active bool
	switch v := src.(type) {
	case bool:
		active = v
	case int64:
		active = v != 0
	case []byte:
		active = string(v) == "1" || string(v) == "t" || string(v) == "true"
	case string:
		active = v == "1" || v == "t" || v == "true"
	case nil:
		active = false
	default:
		return fmt.Errorf("seat state: unsupported type %T", src)
	}
	if active {
		*s = SeatActive
	} else {
		*s = SeatInactive
	}
	return nil
}

func (s SeatState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Registration is a user's claim on one seat of a table. There is at most one
// row per (table, user) pair.
type Registration struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TableID   uint      `json:"table_id" gorm:"not null;uniqueIndex:idx_registration_table_user"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_registration_table_user;index"`
	User      *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	State     SeatState `json:"state" gorm:"column:is_active;type:boolean;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (r *Registration) IsActive() bool {
	return r.State == SeatActive
}

// Registrant is an active seat joined with the seated user's identity.
type Registrant struct {
	RegistrationID uint      `json:"registration_id"`
	UserID         uint      `json:"user_id"`
	ExternalID     int64     `json:"external_id"`
	Username       string    `json:"username,omitempty"`
	FirstName      string    `json:"first_name,omitempty"`
	LastName       string    `json:"last_name,omitempty"`
	JoinedAt       time.Time `json:"joined_at"`
}

func (r *Registrant) DisplayName() string {
	return displayName(r.FirstName, r.LastName, r.Username)
}

// CapacityInfo is the derived seat state of a table.
type CapacityInfo struct {
	MaxPlayers     int     `json:"max_players"`
	CurrentPlayers int     `json:"current_players"`
	AvailableSpots int     `json:"available_spots"`
	IsFull         bool    `json:"is_full"`
	FillPercentage float64 `json:"fill_percentage"`
}

// NewCapacityInfo derives the seat summary for a table with maxPlayers seats
// and current active registrations. A non-positive maxPlayers counts as full.
func NewCapacityInfo(maxPlayers, current int) CapacityInfo {
	info := CapacityInfo{MaxPlayers: maxPlayers, CurrentPlayers: current}
	if maxPlayers <= 0 {
		info.IsFull = true
		return info
	}
	info.AvailableSpots = max(maxPlayers-current, 0)
	info.IsFull = current >= maxPlayers
	info.FillPercentage = math.Round(float64(current)*1000/float64(maxPlayers)) / 10
	return info
}
