package pricing

import (
	"math"

	"refloor/internal/calculator/catalog"
	"refloor/internal/calculator/models"
)

// ============================================================
// Pricing Engine
// ============================================================

// packPrecision - число знаков, до которого округляется отношение площади
// к упаковке. Убирает шум деления (12.6/1.8 = 7.000000000000001), но не
// съедает реальный остаток, поэтому закупка не меньше площади с запасом.
const packPrecision = 1e12

func RoomArea(room models.Room) float64 {
	return room.Width * room.Length
}

func SegmentArea(s models.Segment) float64 {
	return s.Width * s.Length
}

// SignedArea - площадь сегмента со знаком его типа.
func SignedArea(s models.Segment) float64 {
	if s.Kind == models.SegmentAdd {
		return SegmentArea(s)
	}
	return -SegmentArea(s)
}

// BaseArea - площадь комнаты с учётом всех сегментов, не меньше нуля.
func BaseArea(state *models.State) float64 {
	total := RoomArea(state.Room)
	for _, s := range state.Segments {
		total += SignedArea(s)
	}
	return math.Max(0, total)
}

// Calculate считает площадь, запас, количество упаковок и стоимость.
// Состояние не изменяется.
func Calculate(state *models.State) models.PricingResult {
	baseArea := BaseArea(state)

	laying := catalog.LayingMethod(state.LayingMethod)
	wasteArea := baseArea * laying.WastePercent / 100
	areaWithWaste := baseArea + wasteArea

	material := catalog.Material(state.Material)
	packs := packsFor(areaWithWaste, material.PackSizeSquareMeters)
	if packs < 0 {
		packs = 0
	}
	purchaseArea := float64(packs) * material.PackSizeSquareMeters

	return models.PricingResult{
		BaseArea:             baseArea,
		WastePercent:         laying.WastePercent,
		WasteArea:            wasteArea,
		AreaWithWaste:        areaWithWaste,
		PurchaseArea:         purchaseArea,
		TotalPrice:           purchaseArea * material.PricePerSquareMeter,
		PacksNeeded:          packs,
		PackSizeSquareMeters: material.PackSizeSquareMeters,
		PricePerSquareMeter:  material.PricePerSquareMeter,
	}
}

func packsFor(area, packSize float64) int {
	ratio := math.Round(area/packSize*packPrecision) / packPrecision
	return int(math.Ceil(ratio))
}
