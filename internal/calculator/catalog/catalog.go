package catalog

import (
	"fmt"
	"sort"
)

// ============================================================
// Reference Data
// ============================================================

type MaterialSpec struct {
	Title                string  `json:"title"`
	PricePerSquareMeter  float64 `json:"price"`
	PackSizeSquareMeters float64 `json:"packSize"`
}

type LayingSpec struct {
	Title        string  `json:"title"`
	WastePercent float64 `json:"waste"`
}

const (
	DefaultMaterial     = "pvc"
	DefaultLayingMethod = "direct"
)

var materials = map[string]MaterialSpec{
	"pvc":            {Title: "ПВХ плитка", PricePerSquareMeter: 1200, PackSizeSquareMeters: 2.5},
	"spc-laminate":   {Title: "SPC ламинат", PricePerSquareMeter: 1800, PackSizeSquareMeters: 2.2},
	"quartz-parquet": {Title: "Кварцевый паркет", PricePerSquareMeter: 2500, PackSizeSquareMeters: 1.8},
}

var layingMethods = map[string]LayingSpec{
	"direct":      {Title: "Прямая", WastePercent: 5},
	"diagonal":    {Title: "Диагональная", WastePercent: 10},
	"herringbone": {Title: "Ёлочка", WastePercent: 15},
}

// Material возвращает параметры материала. Неизвестный ключ - ошибка
// программиста: ключи проверяются до попадания в состояние.
func Material(key string) MaterialSpec {
	spec, ok := materials[key]
	if !ok {
		panic(fmt.Sprintf("catalog: unknown material %q", key))
	}
	return spec
}

// LayingMethod возвращает параметры способа укладки.
func LayingMethod(key string) LayingSpec {
	spec, ok := layingMethods[key]
	if !ok {
		panic(fmt.Sprintf("catalog: unknown laying method %q", key))
	}
	return spec
}

func HasMaterial(key string) bool {
	_, ok := materials[key]
	return ok
}

func HasLayingMethod(key string) bool {
	_, ok := layingMethods[key]
	return ok
}

// ============================================================
// Listing
// ============================================================

type MaterialEntry struct {
	Key string `json:"key"`
	MaterialSpec
}

type LayingEntry struct {
	Key string `json:"key"`
	LayingSpec
}

// Materials отдаёт справочник материалов, отсортированный по ключу.
func Materials() []MaterialEntry {
	out := make([]MaterialEntry, 0, len(materials))
	for key, spec := range materials {
		out = append(out, MaterialEntry{Key: key, MaterialSpec: spec})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// LayingMethods отдаёт способы укладки по возрастанию запаса.
func LayingMethods() []LayingEntry {
	out := make([]LayingEntry, 0, len(layingMethods))
	for key, spec := range layingMethods {
		out = append(out, LayingEntry{Key: key, LayingSpec: spec})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WastePercent != out[j].WastePercent {
			return out[i].WastePercent < out[j].WastePercent
		}
		return out[i].Key < out[j].Key
	})
	return out
}
