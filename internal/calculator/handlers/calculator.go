package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"refloor/internal/calculator/catalog"
	"refloor/internal/calculator/models"
	"refloor/internal/calculator/service"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ============================================================
// Calculator Handler
// ============================================================

type CalculatorHandler struct {
	sessions *service.SessionManager
	log      *zap.Logger
}

func NewCalculatorHandler(sessions *service.SessionManager, log *zap.Logger) *CalculatorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CalculatorHandler{sessions: sessions, log: log}
}

type sessionResponse struct {
	SessionID string      `json:"sessionId"`
	View      models.View `json:"view"`
}

type segmentResponse struct {
	SegmentID string      `json:"segmentId"`
	View      models.View `json:"view"`
}

type roomRequest struct {
	Width  *models.InputValue `json:"width"`
	Length *models.InputValue `json:"length"`
}

type addSegmentRequest struct {
	Type models.SegmentKind `json:"type"`
}

type editSegmentRequest struct {
	Dimension models.Dimension  `json:"dimension"`
	Value     models.InputValue `json:"value"`
}

type materialRequest struct {
	MaterialType string `json:"materialType"`
}

type layingRequest struct {
	LayingMethod string `json:"layingMethod"`
}

type catalogResponse struct {
	Materials     []catalog.MaterialEntry `json:"materials"`
	LayingMethods []catalog.LayingEntry   `json:"layingMethods"`
}

// Catalog отдаёт справочники материалов и способов укладки.
func (h *CalculatorHandler) Catalog(c fiber.Ctx) error {
	return c.JSON(catalogResponse{
		Materials:     catalog.Materials(),
		LayingMethods: catalog.LayingMethods(),
	})
}

// CreateSession открывает новую сессию калькулятора.
func (h *CalculatorHandler) CreateSession(c fiber.Ctx) error {
	id, calc := h.sessions.Issue(context.Background())
	h.log.Info("session issued", zap.String("session", id))

	return c.Status(http.StatusCreated).JSON(sessionResponse{
		SessionID: id,
		View:      calc.View(),
	})
}

// GetSession возвращает состояние и расчёт сессии.
func (h *CalculatorHandler) GetSession(c fiber.Ctx) error {
	calc, err := h.resolve(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(calc.View())
}

// UpdateRoom меняет размеры основной комнаты.
func (h *CalculatorHandler) UpdateRoom(c fiber.Ctx) error {
	calc, err := h.resolve(c)
	if err != nil {
		return h.fail(c, err)
	}

	var req roomRequest
	if err := decode(c, &req); err != nil {
		return h.fail(c, err)
	}
	if req.Width == nil && req.Length == nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "width or length required"})
	}

	ctx := context.Background()
	view := calc.View()
	if req.Width != nil {
		if view, err = calc.SetRoomWidth(ctx, float64(*req.Width)); err != nil {
			return h.fail(c, err)
		}
	}
	if req.Length != nil {
		if view, err = calc.SetRoomLength(ctx, float64(*req.Length)); err != nil {
			return h.fail(c, err)
		}
	}
	return c.JSON(view)
}

// AddSegment добавляет сегмент типа add или subtract.
func (h *CalculatorHandler) AddSegment(c fiber.Ctx) error {
	calc, err := h.resolve(c)
	if err != nil {
		return h.fail(c, err)
	}

	var req addSegmentRequest
	if err := decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	id, view, err := calc.AddSegment(context.Background(), req.Type)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(segmentResponse{SegmentID: id, View: view})
}

// EditSegment меняет ширину или длину сегмента.
func (h *CalculatorHandler) EditSegment(c fiber.Ctx) error {
	calc, err := h.resolve(c)
	if err != nil {
		return h.fail(c, err)
	}

	var req editSegmentRequest
	if err := decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	view, err := calc.EditSegment(context.Background(), c.Params("segmentId"), req.Dimension, float64(req.Value))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

func (h *CalculatorHandler) RemoveSegment(c fiber.Ctx) error {
	calc, err := h.resolve(c)
	if err != nil {
		return h.fail(c, err)
	}

	view, err := calc.RemoveSegment(context.Background(), c.Params("segmentId"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

func (h *CalculatorHandler) SetMaterial(c fiber.Ctx) error {
	calc, err := h.resolve(c)
	if err != nil {
		return h.fail(c, err)
	}

	var req materialRequest
	if err := decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	view, err := calc.SetMaterial(context.Background(), req.MaterialType)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

func (h *CalculatorHandler) SetLayingMethod(c fiber.Ctx) error {
	calc, err := h.resolve(c)
	if err != nil {
		return h.fail(c, err)
	}

	var req layingRequest
	if err := decode(c, &req); err != nil {
		return h.fail(c, err)
	}

	view, err := calc.SetLayingMethod(context.Background(), req.LayingMethod)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

// Reset сбрасывает расчёт к значениям по умолчанию.
func (h *CalculatorHandler) Reset(c fiber.Ctx) error {
	calc, err := h.resolve(c)
	if err != nil {
		return h.fail(c, err)
	}

	view, err := calc.Reset(context.Background())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

// ============================================================
// Helpers
// ============================================================

var errInvalidJSON = errors.New("invalid json")

func (h *CalculatorHandler) resolve(c fiber.Ctx) (*service.Calculator, error) {
	return h.sessions.Resolve(context.Background(), c.Params("id"))
}

func decode(c fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return errInvalidJSON
	}
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		return errInvalidJSON
	}
	return nil
}

func (h *CalculatorHandler) fail(c fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errInvalidJSON),
		errors.Is(err, service.ErrInvalidSession),
		errors.Is(err, service.ErrUnknownMaterial),
		errors.Is(err, service.ErrUnknownLayingMethod),
		errors.Is(err, service.ErrUnknownKind),
		errors.Is(err, service.ErrUnknownDimension):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrSegmentNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		h.log.Error("calculator request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "failed to save calculator state"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
