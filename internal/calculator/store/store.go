package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"refloor/internal/calculator/catalog"
	"refloor/internal/calculator/models"

	"go.uber.org/zap"
)

// ============================================================
// Storage Contract
// ============================================================

// StorageKey - единственный ключ, под которым лежит состояние калькулятора.
const StorageKey = "refloor_calculator_state"

var ErrNotFound = errors.New("not found")

// Storage - хранилище непрозрачных байтов по ключу.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// ============================================================
// Defaults
// ============================================================

const (
	DefaultRoomWidth  = 3.0
	DefaultRoomLength = 4.0
)

// Defaults возвращает новую копию состояния по умолчанию.
func Defaults() *models.State {
	return &models.State{
		Room:         models.Room{Width: DefaultRoomWidth, Length: DefaultRoomLength},
		Segments:     []models.Segment{},
		Material:     catalog.DefaultMaterial,
		LayingMethod: catalog.DefaultLayingMethod,
	}
}

// ResetToDefaults перезаписывает содержимое state, не меняя сам указатель.
func ResetToDefaults(state *models.State) {
	*state = *Defaults()
}

// ============================================================
// State Store
// ============================================================

type Store struct {
	storage   Storage
	log       *zap.Logger
	onCorrupt func()
}

type Option func(*Store)

// OnCorrupt задаёт функцию, которая вызывается, когда Load отбрасывает
// повреждённые данные.
func OnCorrupt(fn func()) Option {
	return func(s *Store) {
		s.onCorrupt = fn
	}
}

func New(storage Storage, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{storage: storage, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load читает сохранённое состояние. Отсутствие данных даёт значения по умолчанию,
// повреждённые данные удаляются. Ошибка наружу не возвращается.
func (s *Store) Load(ctx context.Context) *models.State {
	data, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("read calculator state", zap.Error(err))
		}
		return Defaults()
	}

	state, err := Decode(data)
	if err != nil {
		s.log.Warn("corrupt calculator state, resetting to defaults", zap.Error(err))
		if s.onCorrupt != nil {
			s.onCorrupt()
		}
		if err := s.storage.Delete(ctx, StorageKey); err != nil {
			s.log.Warn("delete corrupt calculator state", zap.Error(err))
		}
		return Defaults()
	}
	return state
}

// Save сериализует состояние целиком и перезаписывает ключ.
func (s *Store) Save(ctx context.Context, state *models.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.storage.Set(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}

// ============================================================
// Decoding
// ============================================================

// Decode разбирает сохранённые байты и проверяет инварианты состояния.
// Отрицательные размеры приводятся к модулю.
func Decode(data []byte) (*models.State, error) {
	var raw struct {
		Room         *models.Room     `json:"mainRoom"`
		Segments     []models.Segment `json:"segments"`
		Material     string           `json:"materialType"`
		LayingMethod string           `json:"layingMethod"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if raw.Room == nil {
		return nil, errors.New("decode state: mainRoom missing")
	}
	if !catalog.HasMaterial(raw.Material) {
		return nil, fmt.Errorf("decode state: unknown material %q", raw.Material)
	}
	if !catalog.HasLayingMethod(raw.LayingMethod) {
		return nil, fmt.Errorf("decode state: unknown laying method %q", raw.LayingMethod)
	}

	state := &models.State{
		Room: models.Room{
			Width:  models.CleanNumber(raw.Room.Width),
			Length: models.CleanNumber(raw.Room.Length),
		},
		Segments:     make([]models.Segment, 0, len(raw.Segments)),
		Material:     raw.Material,
		LayingMethod: raw.LayingMethod,
	}

	seen := make(map[string]struct{}, len(raw.Segments))
	for _, seg := range raw.Segments {
		if seg.ID == "" {
			return nil, errors.New("decode state: segment without id")
		}
		if _, dup := seen[seg.ID]; dup {
			return nil, fmt.Errorf("decode state: duplicate segment id %q", seg.ID)
		}
		if !seg.Kind.Valid() {
			return nil, fmt.Errorf("decode state: segment %q has unknown type %q", seg.ID, seg.Kind)
		}
		seen[seg.ID] = struct{}{}
		seg.Width = models.CleanNumber(seg.Width)
		seg.Length = models.CleanNumber(seg.Length)
		state.Segments = append(state.Segments, seg)
	}
	return state, nil
}
