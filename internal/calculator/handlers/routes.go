package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Routes
// ============================================================

// Register вешает маршруты калькулятора на router (обычно группа /api/v1).
func Register(router fiber.Router, h *CalculatorHandler) {
	router.Get("/catalog", h.Catalog)

	router.Post("/sessions", h.CreateSession)
	router.Get("/sessions/:id", h.GetSession)
	router.Put("/sessions/:id/room", h.UpdateRoom)
	router.Put("/sessions/:id/material", h.SetMaterial)
	router.Put("/sessions/:id/laying", h.SetLayingMethod)
	router.Post("/sessions/:id/reset", h.Reset)

	router.Post("/sessions/:id/segments", h.AddSegment)
	router.Patch("/sessions/:id/segments/:segmentId", h.EditSegment)
	router.Delete("/sessions/:id/segments/:segmentId", h.RemoveSegment)
}
