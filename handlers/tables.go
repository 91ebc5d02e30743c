package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"table-session-bot/middleware"
	"table-session-bot/models"
	"table-session-bot/services"
	"table-session-bot/utils"
)

type createTableRequest struct {
	Type        string  `json:"type"`
	Game        string  `json:"game"`
	Name        string  `json:"name"`
	MaxPlayers  int     `json:"max_players"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
	NumSessions *int    `json:"num_sessions"`
}

type updateTableRequest struct {
	Description *string `json:"description"`
	MaxPlayers  *int    `json:"max_players"`
}

type statusRequest struct {
	Active *bool `json:"active"`
}

// withCapacity fills Capacity on each table with one grouped count.
func (h *Handler) withCapacity(c *fiber.Ctx, tables []models.Table) ([]models.Table, error) {
	capacity, err := h.Registrations.GetCapacityForTables(c.UserContext(), tables)
	if err != nil {
		return nil, err
	}
	for i := range tables {
		info := capacity[tables[i].ID]
		tables[i].Capacity = &info
	}
	return tables, nil
}

func (h *Handler) respondTables(c *fiber.Ctx, tables []models.Table, err error) error {
	if err != nil {
		return err
	}
	if tables, err = h.withCapacity(c, tables); err != nil {
		return err
	}
	if tables == nil {
		tables = []models.Table{}
	}
	return c.JSON(fiber.Map{"tables": tables})
}

func (h *Handler) listActiveTables(c *fiber.Ctx) error {
	tables, err := h.Tables.GetActiveTables(c.UserContext())
	return h.respondTables(c, tables, err)
}

func (h *Handler) listAllTables(c *fiber.Ctx) error {
	tables, err := h.Tables.GetAllTables(c.UserContext())
	return h.respondTables(c, tables, err)
}

func (h *Handler) masterTables(c *fiber.Ctx) error {
	tables, err := h.Tables.GetTablesByMaster(c.UserContext(), middleware.CurrentUser(c).ID)
	return h.respondTables(c, tables, err)
}

// masterCampaigns lists the caller's campaigns; ?active=false lists the paused ones.
func (h *Handler) masterCampaigns(c *fiber.Ctx) error {
	userID := middleware.CurrentUser(c).ID
	if c.QueryBool("active", true) {
		tables, err := h.Tables.GetActiveCampaignsByMaster(c.UserContext(), userID)
		return h.respondTables(c, tables, err)
	}
	tables, err := h.Tables.GetInactiveCampaignsByMaster(c.UserContext(), userID)
	return h.respondTables(c, tables, err)
}

func (h *Handler) getTable(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	table, err := h.Tables.GetTableByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	info, err := h.Registrations.GetTableCapacityInfo(c.UserContext(), id)
	if err != nil {
		return err
	}
	table.Capacity = &info
	return c.JSON(table)
}

func (h *Handler) createTable(c *fiber.Ctx) error {
	var req createTableRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	kind, err := models.ParseTableKind(req.Type)
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrInvalidTableData, err)
	}

	draft := services.TableDraft{
		MasterID:    middleware.CurrentUser(c).ID,
		Kind:        kind,
		Game:        req.Game,
		Name:        req.Name,
		MaxPlayers:  req.MaxPlayers,
		Description: req.Description,
		NumSessions: req.NumSessions,
	}
	if req.Image != nil {
		draft.SetImage(*req.Image)
	}

	id, err := h.Tables.CreateTable(c.UserContext(), draft)
	if err != nil {
		return err
	}
	table, err := h.Tables.GetTableByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(table)
}

// ownedTable loads the table at :id and checks the caller may edit it.
func (h *Handler) ownedTable(c *fiber.Ctx) (*models.Table, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	table, err := h.Tables.GetTableByID(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	user := middleware.CurrentUser(c)
	if !table.IsOwnedBy(user.ID) && !user.IsAdmin {
		return nil, fiber.NewError(fiber.StatusForbidden, "only the table's master can change it")
	}
	return table, nil
}

func (h *Handler) updateTable(c *fiber.Ctx) error {
	table, err := h.ownedTable(c)
	if err != nil {
		return err
	}
	var req updateTableRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var ok bool
	switch {
	case req.Description != nil && req.MaxPlayers != nil:
		ok, err = h.Tables.UpdateTable(c.UserContext(), table.ID, *req.Description, *req.MaxPlayers)
	case req.Description != nil:
		ok, err = h.Tables.UpdateTableDescription(c.UserContext(), table.ID, *req.Description)
	case req.MaxPlayers != nil:
		ok, err = h.Tables.UpdateTableMaxPlayers(c.UserContext(), table.ID, *req.MaxPlayers)
	default:
		return fmt.Errorf("%w: nothing to update", services.ErrValidation)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("table %d: %w", table.ID, services.ErrNotFound)
	}
	updated, err := h.Tables.GetTableByID(c.UserContext(), table.ID)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

// updateTableStatus pauses or resumes a campaign.
func (h *Handler) updateTableStatus(c *fiber.Ctx) error {
	table, err := h.ownedTable(c)
	if err != nil {
		return err
	}
	if !table.IsCampaign() {
		return fmt.Errorf("%w: only campaigns can be paused or resumed", services.ErrValidation)
	}
	var req statusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Active == nil {
		return fmt.Errorf("%w: active is required", services.ErrValidation)
	}

	ok, err := h.Tables.UpdateTableStatus(c.UserContext(), table.ID, *req.Active)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("table %d: %w", table.ID, services.ErrNotFound)
	}
	return c.JSON(fiber.Map{"id": table.ID, "active": *req.Active})
}

func (h *Handler) uploadTableImage(c *fiber.Ctx) error {
	table, err := h.ownedTable(c)
	if err != nil {
		return err
	}
	if h.Store == nil {
		return services.ErrStorageDisabled
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return fmt.Errorf("%w: image file is required", services.ErrValidation)
	}
	if _, ok := utils.ImageContentType(fileHeader.Filename); !ok {
		return fmt.Errorf("%w: only jpg, png and webp images are accepted", services.ErrValidation)
	}
	key, err := utils.ImageKey(table.Name, fileHeader.Filename)
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrValidation, err)
	}

	url, err := utils.UploadFile(c.UserContext(), h.Store, fileHeader, key)
	if err != nil {
		h.log.WithError(err).WithField("table_id", table.ID).Error("image upload failed")
		return fiber.NewError(fiber.StatusBadGateway, "image upload failed")
	}
	if _, err := h.Tables.SetTableImage(c.UserContext(), table.ID, url); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": table.ID, "image": url})
}

func (h *Handler) deleteTable(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ok, err := h.Tables.DeleteTable(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("table %d: %w", id, services.ErrNotFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
