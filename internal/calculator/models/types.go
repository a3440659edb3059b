package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ============================================================
// Calculator State
// ============================================================

type SegmentKind string

const (
	SegmentAdd      SegmentKind = "add"
	SegmentSubtract SegmentKind = "subtract"
)

// Valid сообщает, известен ли тип сегмента.
func (k SegmentKind) Valid() bool {
	return k == SegmentAdd || k == SegmentSubtract
}

type Dimension string

const (
	DimensionWidth  Dimension = "width"
	DimensionLength Dimension = "length"
)

func (d Dimension) Valid() bool {
	return d == DimensionWidth || d == DimensionLength
}

type Room struct {
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
}

type Segment struct {
	ID     string      `json:"id"`
	Kind   SegmentKind `json:"type"`
	Width  float64     `json:"width"`
	Length float64     `json:"length"`
}

// State хранит всё, что вводит пользователь. Сериализуется целиком
// под одним ключом хранилища.
type State struct {
	Room         Room      `json:"mainRoom"`
	Segments     []Segment `json:"segments"`
	Material     string    `json:"materialType"`
	LayingMethod string    `json:"layingMethod"`
}

// Clone возвращает глубокую копию состояния.
func (s *State) Clone() *State {
	out := *s
	out.Segments = make([]Segment, len(s.Segments))
	copy(out.Segments, s.Segments)
	return &out
}

// FindSegment возвращает индекс сегмента по id или -1.
func (s *State) FindSegment(id string) int {
	for i := range s.Segments {
		if s.Segments[i].ID == id {
			return i
		}
	}
	return -1
}

// ============================================================
// Pricing Result
// ============================================================

type PricingResult struct {
	BaseArea             float64 `json:"baseArea"`
	WastePercent         float64 `json:"wastePercent"`
	WasteArea            float64 `json:"wasteArea"`
	AreaWithWaste        float64 `json:"areaWithWaste"`
	PurchaseArea         float64 `json:"purchaseArea"`
	TotalPrice           float64 `json:"totalPrice"`
	PacksNeeded          int     `json:"packsNeeded"`
	PackSizeSquareMeters float64 `json:"packSize"`
	PricePerSquareMeter  float64 `json:"pricePerMeter"`
}

// ============================================================
// Views
// ============================================================

// SegmentView - сегмент с производными полями для отрисовки.
type SegmentView struct {
	Segment
	Number int     `json:"number"`
	Area   float64 `json:"area"`
}

type View struct {
	Room         Room          `json:"mainRoom"`
	RoomArea     float64       `json:"mainRoomArea"`
	Segments     []SegmentView `json:"segments"`
	Material     string        `json:"materialType"`
	LayingMethod string        `json:"layingMethod"`
	Result       PricingResult `json:"result"`
	Warning      string        `json:"warning,omitempty"`
}

// ============================================================
// Input Values
// ============================================================

// InputValue - число из поля ввода. В JSON принимает как число, так и строку.
type InputValue float64

func (v *InputValue) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*v = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("input value: %w", err)
		}
		*v = InputValue(CleanValue(s))
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return fmt.Errorf("input value: %w", err)
	}
	// вне диапазона float64: ±Inf обнуляется, как и в строковом вводе
	*v = InputValue(CleanNumber(f))
	return nil
}

// CleanValue разбирает ввод так же, как поле type=number в браузере:
// берётся числовой префикс, нечисловое значение даёт 0, отрицательное - модуль.
func CleanValue(raw string) float64 {
	s := strings.TrimSpace(raw)
	end := numericPrefix(s)
	if end == 0 {
		return 0
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return CleanNumber(f)
}

// CleanNumber приводит число к допустимому размеру.
func CleanNumber(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Abs(f)
}

func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	// экспонента учитывается только если за ней есть цифры
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i
}
