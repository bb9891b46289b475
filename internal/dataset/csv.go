// Package dataset загружает записанные временные ряды станций для воспроизведения
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"solar-simulator/internal/models"
)

// MaxInverters максимальный номер инвертора в заголовке
const MaxInverters = 1024

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// LoadCSV читает файл набора данных станции
func LoadCSV(path string) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	records, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// ParseCSV разбирает набор данных с заголовком. Нечитаемые ячейки дают нулевые значения.
func ParseCSV(r io.Reader) ([]models.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, err
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if n, ok := inverterColumn(cols[i]); ok && n > MaxInverters {
			return nil, fmt.Errorf("column %q: inverter number above %d", cols[i], MaxInverters)
		}
	}

	var out []models.Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if isBlank(row) {
			continue
		}
		out = append(out, decodeRow(cols, row))
	}
	return out, nil
}

func decodeRow(cols, row []string) models.Record {
	var rec models.Record
	for i, col := range cols {
		if i >= len(row) {
			break
		}
		v := strings.TrimSpace(row[i])
		switch col {
		case "timestamp":
			rec.Timestamp = parseTime(v)
		case "farm_name":
			rec.FarmName = v
		case "hour":
			rec.Hour = parseInt(v)
		case "day_of_year":
			rec.DayOfYear = parseInt(v)
		case "irradiance_wm2":
			rec.IrradianceWm2 = parseFloat(v)
		case "ambient_temp_c":
			rec.AmbientTempC = parseFloat(v)
		case "panel_temp_c":
			rec.PanelTempC = parseFloat(v)
		case "power_production_kw":
			rec.PowerProductionKW = parseFloat(v)
		case "theoretical_power_kw":
			rec.TheoreticalPowerKW = parseFloat(v)
		case "efficiency_percent":
			rec.EfficiencyPercent = parseFloat(v)
		case "daily_revenue_eur":
			rec.DailyRevenueEUR = parseFloat(v)
		case "anomaly_type":
			rec.AnomalyType = models.AnomalyKind(v)
		case "anomaly_severity":
			rec.AnomalySeverity = models.Severity(v)
		default:
			if n, ok := inverterColumn(col); ok {
				rec.InverterStatus = setStatus(rec.InverterStatus, n, v)
			}
		}
	}
	return rec
}

// inverterColumn извлекает номер инвертора (с 1) из inverter_<n>_status
func inverterColumn(col string) (int, bool) {
	if !strings.HasPrefix(col, "inverter_") || !strings.HasSuffix(col, "_status") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(col, "inverter_"), "_status"))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// setStatus сохраняет статус в позицию n-1. Пропуски заполняются 1.
func setStatus(statuses []int, n int, v string) []int {
	for len(statuses) < n {
		statuses = append(statuses, 1)
	}
	if v != "" {
		statuses[n-1] = parseInt(v)
	}
	return statuses
}

func parseTime(v string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseInt(v string) int {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return int(parseFloat(v))
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// LoadAll загружает все станции каталога из dir.
// Станция с отсутствующим или битым файлом получает пустую последовательность.
func LoadAll(dir string, farms []models.FarmConfig, logger *zap.Logger) map[string][]models.Record {
	out := make(map[string][]models.Record, len(farms))
	for _, farm := range farms {
		path := filepath.Join(dir, farm.CSVFile)
		records, err := LoadCSV(path)
		if err != nil {
			logger.Error("dataset load failed", zap.String("farm", farm.Name), zap.String("path", path), zap.Error(err))
			out[farm.Name] = []models.Record{}
			continue
		}
		logger.Info("dataset loaded", zap.String("farm", farm.Name), zap.Int("records", len(records)))
		out[farm.Name] = records
	}
	return out
}
