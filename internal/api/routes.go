package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/telecare/internal/models"
)

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Use(handler.RequestMetrics)

	app.Get("/healthz", handler.Health)
	app.Get("/metrics", handler.Metrics())
	app.Get("/ws", handler.UpgradeRealtime, handler.Realtime())

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/login", handler.Login)
	auth.Get("/me", handler.AuthRequired, handler.Me)
	auth.Put("/password", handler.AuthRequired, handler.ChangePassword)

	medicOrAdmin := RequireRoles(models.RoleMedic, models.RoleAdmin)
	doctorOrAdmin := RequireRoles(models.RoleDoctor, models.RoleAdmin)
	adminOnly := RequireRoles(models.RoleAdmin)

	sessions := api.Group("/sessions", handler.AuthRequired)
	sessions.Post("/", medicOrAdmin, handler.CreateSession)
	sessions.Get("/", handler.ListSessions)
	sessions.Get("/:id", handler.GetSession)
	sessions.Put("/:id", handler.UpdateSession)
	sessions.Put("/:id/assign", doctorOrAdmin, handler.AssignSession)
	sessions.Delete("/:id", adminOnly, handler.DeleteSession)
	sessions.Put("/:id/medical-record", handler.UpdateMedicalRecord)
	sessions.Post("/:id/vitals", handler.AddVitalSign)
	sessions.Get("/:id/vitals", handler.ListVitalSigns)
	sessions.Post("/:id/notes", handler.AddNote)
	sessions.Get("/:id/notes", handler.ListNotes)
	sessions.Post("/:sessionId/treatment-template", handler.ApplySessionTemplate)
	sessions.Get("/:sessionId/treatment-template", handler.GetSessionTemplate)
	sessions.Put("/:sessionId/treatment-template", handler.UpdateSessionTemplate)
	sessions.Delete("/:sessionId/treatment-template", handler.RemoveSessionTemplate)
	sessions.Post("/:sessionId/treatment-evaluation", RequireRoles(models.RoleMedic), handler.EvaluateSessionTemplate)

	templates := api.Group("/treatment-templates", handler.AuthRequired)
	templates.Get("/", handler.ListTemplates)
	templates.Post("/", doctorOrAdmin, handler.CreateTemplate)
	templates.Get("/:id", handler.GetTemplate)
	templates.Put("/:id", doctorOrAdmin, handler.UpdateTemplate)
	templates.Delete("/:id", doctorOrAdmin, handler.DeleteTemplate)
	templates.Post("/:id/favorite", handler.AddFavorite)
	templates.Delete("/:id/favorite", handler.RemoveFavorite)

	plans := api.Group("/treatment-plans", handler.AuthRequired)
	plans.Post("/", doctorOrAdmin, handler.CreatePlan)
	plans.Get("/session/:sessionId", handler.GetSessionPlan)
	plans.Get("/:id", handler.GetPlan)
	plans.Put("/:id", doctorOrAdmin, handler.UpdatePlan)
	plans.Delete("/:id", doctorOrAdmin, handler.DeletePlan)
	plans.Post("/:id/steps", doctorOrAdmin, handler.AddPlanStep)
	plans.Put("/:id/steps/:stepId", doctorOrAdmin, handler.UpdatePlanStep)

	notifications := api.Group("/notifications", handler.AuthRequired)
	notifications.Get("/", handler.ListNotifications)
	notifications.Put("/read-all", handler.MarkAllNotificationsRead)
	notifications.Put("/:id/read", handler.MarkNotificationRead)

	admin := api.Group("/admin", handler.AuthRequired, adminOnly)
	admin.Get("/stats", handler.Stats)
	admin.Get("/stats/detailed", handler.DetailedStats)
	admin.Get("/logs", handler.AuditLogs)
	admin.Get("/users", handler.ListUsers)
	admin.Post("/users", handler.CreateUser)
	admin.Put("/users/:id", handler.UpdateUser)
	admin.Delete("/users/:id", handler.DeleteUser)
	admin.Post("/users/:id/reset-password", handler.ResetUserPassword)
}
