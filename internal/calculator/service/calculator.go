package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"refloor/internal/calculator/catalog"
	"refloor/internal/calculator/metrics"
	"refloor/internal/calculator/models"
	"refloor/internal/calculator/pricing"
	"refloor/internal/calculator/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSegmentNotFound     = errors.New("segment not found")
	ErrUnknownMaterial     = errors.New("unknown material")
	ErrUnknownLayingMethod = errors.New("unknown laying method")
	ErrUnknownKind         = errors.New("unknown segment type")
	ErrUnknownDimension    = errors.New("unknown dimension")
)

// WarningSubtractTooLarge возвращается во View, когда вычет отклонён.
const WarningSubtractTooLarge = "subtracted area exceeds the available area"

// ============================================================
// Calculator
// ============================================================

// Calculator владеет состоянием одной сессии. Все изменения проходят через
// его методы, каждая команда сохраняет состояние до возврата.
type Calculator struct {
	mu      sync.Mutex
	state   *models.State
	store   *store.Store
	log     *zap.Logger
	metrics *metrics.Metrics
	newID   func() string
}

func NewCalculator(ctx context.Context, st *store.Store, log *zap.Logger, m *metrics.Metrics) *Calculator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Calculator{
		state:   st.Load(ctx),
		store:   st,
		log:     log,
		metrics: m,
		newID:   uuid.NewString,
	}
}

// View возвращает текущее состояние и расчёт.
func (c *Calculator) View() models.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pricing.BuildView(c.state)
}

// State возвращает копию состояния.
func (c *Calculator) State() *models.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

func (c *Calculator) SetRoomWidth(ctx context.Context, width float64) (models.View, error) {
	return c.apply(ctx, "set_room_width", func(s *models.State) (string, error) {
		s.Room.Width = models.CleanNumber(width)
		return "", nil
	})
}

func (c *Calculator) SetRoomLength(ctx context.Context, length float64) (models.View, error) {
	return c.apply(ctx, "set_room_length", func(s *models.State) (string, error) {
		s.Room.Length = models.CleanNumber(length)
		return "", nil
	})
}

// AddSegment добавляет пустой сегмент в конец списка и возвращает его id.
func (c *Calculator) AddSegment(ctx context.Context, kind models.SegmentKind) (string, models.View, error) {
	if !kind.Valid() {
		return "", models.View{}, fmt.Errorf("add segment %q: %w", kind, ErrUnknownKind)
	}

	var id string
	view, err := c.apply(ctx, "add_segment", func(s *models.State) (string, error) {
		id = c.newID()
		s.Segments = append(s.Segments, models.Segment{ID: id, Kind: kind})
		return "", nil
	})
	if err != nil {
		return "", view, err
	}
	return id, view, nil
}

func (c *Calculator) RemoveSegment(ctx context.Context, id string) (models.View, error) {
	return c.apply(ctx, "remove_segment", func(s *models.State) (string, error) {
		idx := s.FindSegment(id)
		if idx < 0 {
			return "", fmt.Errorf("remove segment %q: %w", id, ErrSegmentNotFound)
		}
		s.Segments = append(s.Segments[:idx], s.Segments[idx+1:]...)
		return "", nil
	})
}

// EditSegment меняет ширину или длину сегмента. Вычет, который больше площади
// остальных частей, обнуляется, а во View появляется предупреждение.
func (c *Calculator) EditSegment(ctx context.Context, id string, dim models.Dimension, value float64) (models.View, error) {
	if !dim.Valid() {
		return models.View{}, fmt.Errorf("edit segment %q: %w: %q", id, ErrUnknownDimension, dim)
	}
	value = models.CleanNumber(value)

	return c.apply(ctx, "edit_segment", func(s *models.State) (string, error) {
		idx := s.FindSegment(id)
		if idx < 0 {
			return "", fmt.Errorf("edit segment %q: %w", id, ErrSegmentNotFound)
		}
		seg := &s.Segments[idx]

		width, length := seg.Width, seg.Length
		if dim == models.DimensionWidth {
			width = value
		} else {
			length = value
		}

		if seg.Kind == models.SegmentSubtract && !pricing.SubtractFits(s, seg.ID, width, length) {
			c.log.Info("subtract segment rejected",
				zap.String("segment", seg.ID),
				zap.Float64("requested_area", width*length),
				zap.Float64("available_area", pricing.AvailableArea(s, seg.ID)))
			c.metrics.SubtractRejected()
			seg.Width, seg.Length = 0, 0
			return WarningSubtractTooLarge, nil
		}

		seg.Width, seg.Length = width, length
		return "", nil
	})
}

func (c *Calculator) SetMaterial(ctx context.Context, key string) (models.View, error) {
	if !catalog.HasMaterial(key) {
		return models.View{}, fmt.Errorf("set material %q: %w", key, ErrUnknownMaterial)
	}
	return c.apply(ctx, "set_material", func(s *models.State) (string, error) {
		s.Material = key
		return "", nil
	})
}

func (c *Calculator) SetLayingMethod(ctx context.Context, key string) (models.View, error) {
	if !catalog.HasLayingMethod(key) {
		return models.View{}, fmt.Errorf("set laying method %q: %w", key, ErrUnknownLayingMethod)
	}
	return c.apply(ctx, "set_laying_method", func(s *models.State) (string, error) {
		s.LayingMethod = key
		return "", nil
	})
}

// Reset возвращает состояние к значениям по умолчанию: старые данные удаляются,
// на их место записываются значения по умолчанию.
func (c *Calculator) Reset(ctx context.Context) (models.View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	store.ResetToDefaults(c.state)
	c.metrics.Command("reset")
	c.metrics.Reset("explicit")
	if err := c.store.Clear(ctx); err != nil {
		c.log.Error("clear calculator state", zap.Error(err))
		return pricing.BuildView(c.state), err
	}
	if err := c.store.Save(ctx, c.state); err != nil {
		c.log.Error("save calculator state", zap.String("command", "reset"), zap.Error(err))
		return pricing.BuildView(c.state), err
	}
	return pricing.BuildView(c.state), nil
}

// apply выполняет команду под блокировкой и сохраняет результат.
// При ошибке команды состояние не меняется.
func (c *Calculator) apply(ctx context.Context, name string, mutate func(s *models.State) (string, error)) (models.View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state.Clone()
	warning, err := mutate(next)
	if err != nil {
		return pricing.BuildView(c.state), err
	}
	*c.state = *next
	c.metrics.Command(name)

	view := pricing.BuildView(c.state)
	view.Warning = warning

	if err := c.store.Save(ctx, c.state); err != nil {
		c.log.Error("save calculator state", zap.String("command", name), zap.Error(err))
		return view, err
	}
	return view, nil
}
