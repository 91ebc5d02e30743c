package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"table-session-bot/logging"
	"table-session-bot/models"
	"table-session-bot/utils"
)

const announcementTitle = "Active tables for the next game day"

// ListingEntry is one table of a published listing.
type ListingEntry struct {
	TableID     uint                `json:"table_id"`
	Kind        models.TableKind    `json:"kind"`
	Game        string              `json:"game"`
	Name        string              `json:"name"`
	NumSessions *int                `json:"num_sessions,omitempty"`
	Master      string              `json:"master"`
	Image       *string             `json:"image,omitempty"`
	Capacity    models.CapacityInfo `json:"capacity"`
}

// Announcement is the active table list as sent to players: the rendered
// text plus the platform ids of everyone who has not muted announcements.
// Delivering it is up to the caller.
type Announcement struct {
	Title       string         `json:"title"`
	GeneratedAt time.Time      `json:"generated_at"`
	Text        string         `json:"text"`
	Tables      []ListingEntry `json:"tables"`
	Recipients  []int64        `json:"-"`
}

// PublishService builds and archives the active table listing.
type PublishService struct {
	tables        *TableService
	registrations *RegistrationService
	users         *UserService
	store         utils.ObjectStore
	printer       *message.Printer
	now           func() time.Time
	log           *logrus.Entry
}

// NewPublishService wires the listing builder. store may be nil, in which
// case archiving reports ErrStorageDisabled.
func NewPublishService(tables *TableService, registrations *RegistrationService, users *UserService,
	store utils.ObjectStore, locale string, log logrus.FieldLogger) *PublishService {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &PublishService{
		tables:        tables,
		registrations: registrations,
		users:         users,
		store:         store,
		printer:       message.NewPrinter(tag),
		now:           time.Now,
		log:           logging.Component(log, "publish"),
	}
}

// BuildAnnouncement collects the active tables with their seat state.
func (s *PublishService) BuildAnnouncement(ctx context.Context) (*Announcement, error) {
	tables, err := s.tables.GetActiveTables(ctx)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, ErrNothingToPublish
	}

	capacity, err := s.registrations.GetCapacityForTables(ctx, tables)
	if err != nil {
		return nil, err
	}
	masterIDs := make([]uint, 0, len(tables))
	for _, t := range tables {
		masterIDs = append(masterIDs, t.MasterID)
	}
	masters, err := s.users.GetUsersByIDs(ctx, masterIDs)
	if err != nil {
		return nil, err
	}
	recipients, err := s.users.GetUnmutedUsers(ctx)
	if err != nil {
		return nil, err
	}

	a := &Announcement{Title: announcementTitle, GeneratedAt: s.now().UTC()}
	for _, t := range tables {
		entry := ListingEntry{
			TableID:     t.ID,
			Kind:        t.Type,
			Game:        t.Game,
			Name:        t.Name,
			NumSessions: t.NumSessions,
			Image:       t.Image,
			Capacity:    capacity[t.ID],
		}
		if m, ok := masters[t.MasterID]; ok {
			entry.Master = m.DisplayName()
		}
		a.Tables = append(a.Tables, entry)
	}
	for _, u := range recipients {
		a.Recipients = append(a.Recipients, u.ExternalID)
	}
	a.Text = s.render(a)

	s.log.WithFields(logrus.Fields{"tables": len(a.Tables), "recipients": len(a.Recipients)}).Info("announcement built")
	return a, nil
}

func (s *PublishService) render(a *Announcement) string {
	var b strings.Builder
	b.WriteString(a.Title + ":\n\n")
	for _, e := range a.Tables {
		c := e.Capacity
		b.WriteString(s.printer.Sprintf("- %s: %s (%d/%d, %.1f%%)", e.Game, e.Name, c.CurrentPlayers, c.MaxPlayers, c.FillPercentage))
		if c.IsFull {
			b.WriteString(" [full]")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ArchiveListing uploads the announcement as a JSON snapshot and returns its URL.
func (s *PublishService) ArchiveListing(ctx context.Context, a *Announcement) (string, error) {
	if s.store == nil {
		return "", ErrStorageDisabled
	}
	body, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode listing: %w", err)
	}
	key := utils.ListingKey(a.GeneratedAt, a.Title)
	url, err := s.store.PutObject(ctx, key, body, "application/json")
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("listing upload failed")
		return "", err
	}
	s.log.WithField("url", url).Info("listing archived")
	return url, nil
}
