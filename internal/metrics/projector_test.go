package metrics

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar-simulator/internal/models"
)

var provence = models.FarmConfig{Name: "provence", Location: "Marseille", Panels: 5000, CapacityMW: 2.0, Inverters: 4, PanelPowerW: 400}

func farmLabels(extra ...string) prometheus.Labels {
	l := prometheus.Labels{LabelFarm: "provence"}
	for i := 0; i+1 < len(extra); i += 2 {
		l[extra[i]] = extra[i+1]
	}
	return l
}

func mustValue(t *testing.T, set ObservationSet, name string, labels prometheus.Labels) float64 {
	t.Helper()
	v, ok := set.Value(name, labels)
	require.True(t, ok, "missing %s %v", name, labels)
	return v
}

func TestComputeAvailability(t *testing.T) {
	tests := []struct {
		name      string
		inverters int
		statuses  []int
		want      float64
	}{
		{"one down", 4, []int{1, 1, 0, 1}, 75},
		{"all up", 3, []int{1, 1, 1}, 100},
		{"all down", 2, []int{0, 0}, 0},
		{"missing counts as active", 4, []int{0}, 75},
		{"no statuses", 4, nil, 100},
		{"extra statuses ignored", 2, []int{1, 0, 0, 0}, 50},
		{"non-zero is active", 2, []int{2, -1}, 100},
		{"no inverters", 0, []int{1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ComputeAvailability(tt.inverters, tt.statuses), 1e-9)
		})
	}
}

func TestSeverityLevel(t *testing.T) {
	assert.Equal(t, 0.0, SeverityLevel(models.SeverityLow))
	assert.Equal(t, 1.0, SeverityLevel(models.SeverityMedium))
	assert.Equal(t, 2.0, SeverityLevel(models.SeverityHigh))
	assert.Equal(t, 0.0, SeverityLevel("critical"))
	assert.Equal(t, 0.0, SeverityLevel(""))
}

func TestProject_FullRecord(t *testing.T) {
	rec := models.Record{
		FarmName:           "provence",
		Hour:               14,
		DayOfYear:          165,
		IrradianceWm2:      850,
		AmbientTempC:       28,
		PanelTempC:         45,
		PowerProductionKW:  1500,
		TheoreticalPowerKW: 1700,
		EfficiencyPercent:  88.2,
		InverterStatus:     []int{1, 1, 0, 1},
		DailyRevenueEUR:    1250.5,
		AnomalyType:        models.AnomalyInverterDown,
		AnomalySeverity:    models.SeverityHigh,
	}
	set := Project(provence, rec)

	assert.Equal(t, 1500.0, mustValue(t, set, PowerProduction, farmLabels()))
	assert.Equal(t, 1700.0, mustValue(t, set, TheoreticalPower, farmLabels()))
	assert.Equal(t, 850.0, mustValue(t, set, Irradiance, farmLabels()))
	assert.Equal(t, 45.0, mustValue(t, set, PanelTemperature, farmLabels()))
	assert.Equal(t, 28.0, mustValue(t, set, AmbientTemperature, farmLabels()))
	assert.Equal(t, 88.2, mustValue(t, set, Efficiency, farmLabels()))
	assert.Equal(t, 1250.5, mustValue(t, set, DailyRevenue, farmLabels()))
	assert.Equal(t, 75.0, mustValue(t, set, Availability, farmLabels()))
	assert.Equal(t, 2.0, mustValue(t, set, AnomalySeverity, farmLabels()))
	assert.Equal(t, 5000.0, mustValue(t, set, PanelCount, farmLabels()))
	assert.Equal(t, 2.0, mustValue(t, set, Capacity, farmLabels()))
	assert.Equal(t, 14.0, mustValue(t, set, SimulatedHour, farmLabels()))
	assert.Equal(t, 165.0, mustValue(t, set, SimulatedDay, farmLabels()))

	assert.Equal(t, 0.0, mustValue(t, set, InverterStatus, farmLabels(LabelInverter, "3")))
	assert.Equal(t, 1.0, mustValue(t, set, InverterStatus, farmLabels(LabelInverter, "4")))

	_, ok := set.Value(LastUpdate, farmLabels())
	assert.False(t, ok, "timestamp is stamped by the exporter")
}

func TestProject_AnomalyOneHot(t *testing.T) {
	set := Project(provence, models.Record{AnomalyType: models.AnomalyOverheat})

	want := map[models.AnomalyKind]float64{
		models.AnomalyNormal:       0,
		models.AnomalyOverheat:     1,
		models.AnomalyInverterDown: 0,
		models.AnomalyDegradation:  0,
		models.AnomalyShading:      0,
		models.AnomalySensorFail:   0,
	}
	for kind, v := range want {
		assert.Equal(t, v, mustValue(t, set, AnomalyActive, farmLabels(LabelType, string(kind))), string(kind))
	}
}

func TestProject_UnknownAnomalyIsAllZero(t *testing.T) {
	set := Project(provence, models.Record{AnomalyType: "METEOR_STRIKE"})

	count := 0
	for _, o := range set {
		if o.Name == AnomalyActive {
			count++
			assert.Zero(t, o.Value, o.Labels[LabelType])
		}
	}
	assert.Equal(t, len(models.AnomalyKinds), count)
}

func TestProject_MissingFields(t *testing.T) {
	set := Project(provence, models.Record{})

	assert.Equal(t, 0.0, mustValue(t, set, PowerProduction, farmLabels()))
	assert.Equal(t, 1.0, mustValue(t, set, AnomalyActive, farmLabels(LabelType, "NORMAL")))
	assert.Equal(t, 0.0, mustValue(t, set, AnomalySeverity, farmLabels()))
	assert.Equal(t, 100.0, mustValue(t, set, Availability, farmLabels()))
	for i := 1; i <= 4; i++ {
		assert.Equal(t, 1.0, mustValue(t, set, InverterStatus, farmLabels(LabelInverter, string(rune('0'+i)))))
	}
}

func TestProject_InverterCountFromConfig(t *testing.T) {
	farm := models.FarmConfig{Name: "provence", Inverters: 2}
	set := Project(farm, models.Record{InverterStatus: []int{1, 0, 0, 0, 0}})

	count := 0
	for _, o := range set {
		if o.Name == InverterStatus {
			count++
		}
	}
	assert.Equal(t, 2, count)
	assert.Equal(t, 50.0, mustValue(t, set, Availability, farmLabels()))
}

func TestProject_NonFiniteValues(t *testing.T) {
	set := Project(provence, models.Record{PowerProductionKW: math.NaN(), IrradianceWm2: math.Inf(1)})

	assert.Equal(t, 0.0, mustValue(t, set, PowerProduction, farmLabels()))
	assert.Equal(t, 0.0, mustValue(t, set, Irradiance, farmLabels()))
}

func BenchmarkProject(b *testing.B) {
	rec := models.Record{
		PowerProductionKW: 1500,
		InverterStatus:    []int{1, 1, 0, 1},
		AnomalyType:       models.AnomalyShading,
		AnomalySeverity:   models.SeverityMedium,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Project(provence, rec)
	}
}
