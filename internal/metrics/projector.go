package metrics

import (
	"math"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"solar-simulator/internal/models"
)

// Observation одно значение семейства с метками
type Observation struct {
	Name   string
	Labels prometheus.Labels
	Value  float64
}

// ObservationSet проекция одной записи станции
type ObservationSet []Observation

// Value возвращает значение по имени и меткам
func (s ObservationSet) Value(name string, labels prometheus.Labels) (float64, bool) {
	for _, o := range s {
		if o.Name != name || len(o.Labels) != len(labels) {
			continue
		}
		match := true
		for k, v := range labels {
			if o.Labels[k] != v {
				match = false
				break
			}
		}
		if match {
			return o.Value, true
		}
	}
	return 0, false
}

var severityLevels = map[models.Severity]float64{
	models.SeverityLow:    0,
	models.SeverityMedium: 1,
	models.SeverityHigh:   2,
}

// Project отображает запись станции в набор наблюдений. Не возвращает ошибок и не меняет состояние.
// Время последнего обновления проставляет экспортер, а не проекция.
func Project(farm models.FarmConfig, rec models.Record) ObservationSet {
	name := farm.Name
	set := make(ObservationSet, 0, 16+farm.Inverters+len(models.AnomalyKinds))
	add := func(metric string, value float64, extra ...string) {
		labels := prometheus.Labels{LabelFarm: name}
		for i := 0; i+1 < len(extra); i += 2 {
			labels[extra[i]] = extra[i+1]
		}
		set = append(set, Observation{Name: metric, Labels: labels, Value: finite(value)})
	}

	add(PowerProduction, rec.PowerProductionKW)
	add(TheoreticalPower, rec.TheoreticalPowerKW)
	add(Irradiance, rec.IrradianceWm2)
	add(PanelTemperature, rec.PanelTempC)
	add(AmbientTemperature, rec.AmbientTempC)

	for i := 0; i < farm.Inverters; i++ {
		add(InverterStatus, float64(inverterStatus(rec, i)), LabelInverter, strconv.Itoa(i+1))
	}

	add(Efficiency, rec.EfficiencyPercent)
	add(DailyRevenue, rec.DailyRevenueEUR)
	add(Availability, ComputeAvailability(farm.Inverters, rec.InverterStatus))

	active := rec.AnomalyType
	if active == "" {
		active = models.AnomalyNormal
	}
	for _, kind := range models.AnomalyKinds {
		v := 0.0
		if kind == active {
			v = 1
		}
		add(AnomalyActive, v, LabelType, string(kind))
	}
	add(AnomalySeverity, SeverityLevel(rec.AnomalySeverity))

	add(PanelCount, float64(farm.Panels))
	add(Capacity, farm.CapacityMW)
	add(SimulatedHour, float64(rec.Hour))
	add(SimulatedDay, float64(rec.DayOfYear))
	return set
}

// ComputeAvailability возвращает долю работающих инверторов в процентах.
// Отсутствующий статус считается рабочим.
func ComputeAvailability(inverters int, statuses []int) float64 {
	if inverters <= 0 {
		return 0
	}
	active := 0
	for i := 0; i < inverters; i++ {
		if i >= len(statuses) || statuses[i] != 0 {
			active++
		}
	}
	return float64(active) / float64(inverters) * 100
}

// SeverityLevel отображает low, medium и high в 0, 1 и 2. Остальное дает 0.
func SeverityLevel(s models.Severity) float64 {
	return severityLevels[s]
}

func inverterStatus(rec models.Record, i int) int {
	if i < len(rec.InverterStatus) {
		return rec.InverterStatus[i]
	}
	return 1
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
