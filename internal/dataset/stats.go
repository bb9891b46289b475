package dataset

import (
	"time"

	"solar-simulator/internal/models"
)

// Stats сводка по загруженным наборам данных
type Stats struct {
	TotalRecords   int            `json:"totalRecords"`
	RecordsPerFarm map[string]int `json:"recordsPerFarm"`
	AnomalyCounts  map[string]int `json:"anomalyCounts"`
	Start          time.Time      `json:"start"`
	End            time.Time      `json:"end"`
}

// Summarize считает записи и аномалии и находит диапазон дат
func Summarize(series map[string][]models.Record) Stats {
	stats := Stats{
		RecordsPerFarm: make(map[string]int, len(series)),
		AnomalyCounts:  make(map[string]int),
	}
	for farm, records := range series {
		stats.RecordsPerFarm[farm] = len(records)
		stats.TotalRecords += len(records)

		for _, r := range records {
			kind := string(r.AnomalyType)
			if kind == "" {
				kind = "UNKNOWN"
			}
			stats.AnomalyCounts[kind]++

			if r.Timestamp.IsZero() {
				continue
			}
			if stats.Start.IsZero() || r.Timestamp.Before(stats.Start) {
				stats.Start = r.Timestamp
			}
			if stats.End.IsZero() || r.Timestamp.After(stats.End) {
				stats.End = r.Timestamp
			}
		}
	}
	return stats
}
