// Package models содержит структуры данных движка воспроизведения, экспортера метрик и API
package models

import "time"

// AnomalyKind тип нештатного режима работы станции
type AnomalyKind string

// Известные типы аномалий в порядке экспозиции
const (
	AnomalyNormal       AnomalyKind = "NORMAL"
	AnomalyOverheat     AnomalyKind = "OVERHEAT"
	AnomalyInverterDown AnomalyKind = "INVERTER_DOWN"
	AnomalyDegradation  AnomalyKind = "DEGRADATION"
	AnomalyShading      AnomalyKind = "SHADING"
	AnomalySensorFail   AnomalyKind = "SENSOR_FAIL"
)

// AnomalyKinds фиксированный набор типов аномалий для каждой станции
var AnomalyKinds = []AnomalyKind{
	AnomalyNormal,
	AnomalyOverheat,
	AnomalyInverterDown,
	AnomalyDegradation,
	AnomalyShading,
	AnomalySensorFail,
}

// Severity уровень серьезности аномалии
type Severity string

// Известные уровни серьезности
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// FarmConfig статическое описание солнечной станции
type FarmConfig struct {
	Name        string  `json:"name" yaml:"name"`
	Location    string  `json:"location" yaml:"location"`
	Latitude    float64 `json:"latitude" yaml:"latitude"`
	Panels      int     `json:"panels" yaml:"panels"`
	CapacityMW  float64 `json:"capacity_mw" yaml:"capacity_mw"`
	Inverters   int     `json:"inverters" yaml:"inverters"`
	PanelPowerW float64 `json:"panel_power_w" yaml:"panel_power_w"`
	CSVFile     string  `json:"csv_file" yaml:"csv_file"`
}

// Record одна строка набора данных станции.
// InverterStatus позиционный: индекс 0 соответствует инвертору 1.
type Record struct {
	FarmName           string      `json:"farm_name"`
	Timestamp          time.Time   `json:"timestamp"`
	Hour               int         `json:"hour"`
	DayOfYear          int         `json:"day_of_year"`
	IrradianceWm2      float64     `json:"irradiance_wm2"`
	AmbientTempC       float64     `json:"ambient_temp_c"`
	PanelTempC         float64     `json:"panel_temp_c"`
	PowerProductionKW  float64     `json:"power_production_kw"`
	TheoreticalPowerKW float64     `json:"theoretical_power_kw"`
	EfficiencyPercent  float64     `json:"efficiency_percent"`
	InverterStatus     []int       `json:"inverter_status"`
	DailyRevenueEUR    float64     `json:"daily_revenue_eur"`
	AnomalyType        AnomalyKind `json:"anomaly_type"`
	AnomalySeverity    Severity    `json:"anomaly_severity"`
}

// DefaultRecord возвращает запись для станции без данных
func DefaultRecord(farm string, inverters int) Record {
	statuses := make([]int, inverters)
	for i := range statuses {
		statuses[i] = 1
	}
	return Record{
		FarmName:        farm,
		InverterStatus:  statuses,
		AnomalyType:     AnomalyNormal,
		AnomalySeverity: SeverityLow,
	}
}

// Clone возвращает копию с отдельным срезом инверторов
func (r Record) Clone() Record {
	if r.InverterStatus != nil {
		r.InverterStatus = append([]int(nil), r.InverterStatus...)
	}
	return r
}

// ReplayStatus состояние движка воспроизведения
type ReplayStatus struct {
	Playing      bool           `json:"isPlaying"`
	LastUpdate   time.Time      `json:"lastUpdate"`
	Indices      map[string]int `json:"indices"`
	TotalRecords map[string]int `json:"totalRecords"`
	Ticks        uint64         `json:"ticks"`
}
