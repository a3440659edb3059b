package pricing

import "refloor/internal/calculator/models"

// ============================================================
// Segment Rules
// ============================================================

// AvailableArea - площадь, которую дают комната и все сегменты, кроме excludeID.
// Результат может быть отрицательным, если вычеты уже превышают площадь.
func AvailableArea(state *models.State, excludeID string) float64 {
	available := RoomArea(state.Room)
	for _, s := range state.Segments {
		if s.ID == excludeID {
			continue
		}
		available += SignedArea(s)
	}
	return available
}

// SubtractFits проверяет, помещается ли вычет width x length с учётом
// текущих значений остальных сегментов.
func SubtractFits(state *models.State, segmentID string, width, length float64) bool {
	return width*length <= AvailableArea(state, segmentID)
}

// SegmentNumber - порядковый номер сегмента среди сегментов того же типа (с 1).
// Для неизвестного id возвращает 0.
func SegmentNumber(segments []models.Segment, id string) int {
	kind := models.SegmentKind("")
	for _, s := range segments {
		if s.ID == id {
			kind = s.Kind
			break
		}
	}
	count := 0
	for _, s := range segments {
		if s.Kind != kind {
			continue
		}
		count++
		if s.ID == id {
			return count
		}
	}
	return count
}

// BuildView собирает представление состояния с результатом расчёта.
func BuildView(state *models.State) models.View {
	segments := make([]models.SegmentView, 0, len(state.Segments))
	counters := map[models.SegmentKind]int{}
	for _, s := range state.Segments {
		counters[s.Kind]++
		segments = append(segments, models.SegmentView{
			Segment: s,
			Number:  counters[s.Kind],
			Area:    SegmentArea(s),
		})
	}

	return models.View{
		Room:         state.Room,
		RoomArea:     RoomArea(state.Room),
		Segments:     segments,
		Material:     state.Material,
		LayingMethod: state.LayingMethod,
		Result:       Calculate(state),
	}
}
