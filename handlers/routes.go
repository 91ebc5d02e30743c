package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"table-session-bot/logging"
	"table-session-bot/middleware"
	"table-session-bot/services"
	"table-session-bot/storage"
	"table-session-bot/utils"
)

// Handler exposes the catalog, ledger and directory to the bot front end.
type Handler struct {
	DB            *gorm.DB
	Users         *services.UserService
	Tables        *services.TableService
	Registrations *services.RegistrationService
	Publisher     *services.PublishService
	Store         utils.ObjectStore // nil when object storage is not configured

	log *logrus.Entry
}

func NewHandler(db *gorm.DB, users *services.UserService, tables *services.TableService,
	registrations *services.RegistrationService, publisher *services.PublishService,
	store utils.ObjectStore, log logrus.FieldLogger) *Handler {
	return &Handler{
		DB:            db,
		Users:         users,
		Tables:        tables,
		Registrations: registrations,
		Publisher:     publisher,
		Store:         store,
		log:           logging.Component(log, "http"),
	}
}

func SetupRoutes(app *fiber.App, h *Handler, serviceToken string) {
	app.Use(middleware.GatewayAuthMiddleware(serviceToken, h.log))
	app.Get("/health", h.health)

	// caller identity required from here on
	caller := app.Group("/", middleware.UserContextMiddleware())
	caller.Post("/users/start", h.start)

	// known accounts only
	known := caller.Group("/", middleware.LoadUser(h.Users, h.log))
	known.Patch("/users/me/mute", h.setMute)
	known.Get("/users/me/tables", h.myRegistrations)

	known.Get("/tables", h.listActiveTables)
	known.Get("/tables/:id", h.getTable)
	known.Get("/tables/:id/capacity", h.getCapacity)
	known.Get("/tables/:id/players", h.listPlayers)
	known.Post("/tables/:id/join", h.join)
	known.Post("/tables/:id/unjoin", h.unjoin)

	master := middleware.RequireMaster()
	known.Post("/tables", master, h.createTable)
	known.Patch("/tables/:id", master, h.updateTable)
	known.Patch("/tables/:id/status", master, h.updateTableStatus)
	known.Post("/tables/:id/image", master, h.uploadTableImage)
	known.Get("/masters/me/tables", master, h.masterTables)
	known.Get("/masters/me/campaigns", master, h.masterCampaigns)

	admin := known.Group("/admin", middleware.RequireAdmin())
	admin.Get("/tables", h.listAllTables)
	admin.Delete("/tables/:id", h.deleteTable)
	admin.Post("/publish", h.publish)
	admin.Put("/users/:external_id/roles/:role", h.grantRole)
	admin.Delete("/users/:external_id/roles/:role", h.revokeRole)
	admin.Delete("/users/:external_id", h.deleteUser)
}

func (h *Handler) health(c *fiber.Ctx) error {
	if missing := storage.MissingTables(h.DB.WithContext(c.UserContext())); len(missing) > 0 {
		h.log.WithField("missing", missing).Error("schema incomplete")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "schema incomplete",
			"missing": missing,
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
