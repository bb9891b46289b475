package metrics

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"solar-simulator/internal/models"
	"solar-simulator/internal/replay"
)

type fakeSource struct {
	records map[string]models.Record
	status  models.ReplayStatus
}

func (f *fakeSource) Snapshot() (map[string]models.Record, models.ReplayStatus) {
	return f.records, f.status
}

func TestExporter_Refresh(t *testing.T) {
	farms := []models.FarmConfig{
		provence,
		{Name: "occitanie", Panels: 3500, CapacityMW: 1.4, Inverters: 3},
	}
	src := &fakeSource{
		records: map[string]models.Record{
			"provence": {PowerProductionKW: 1200, InverterStatus: []int{1, 0, 1, 1}, AnomalyType: models.AnomalyShading},
		},
		status: models.ReplayStatus{
			Playing:      true,
			Indices:      map[string]int{"provence": 7, "occitanie": 0},
			TotalRecords: map[string]int{"provence": 24, "occitanie": 0},
		},
	}
	mock := clock.NewMock()
	mock.Set(time.Unix(1718280000, 0))

	reg := NewRegistry(WithoutRuntimeCollectors())
	NewExporter(reg, farms, src, mock, zaptest.NewLogger(t)).Refresh()

	assert.Equal(t, 1200.0, testutil.ToFloat64(reg.Gauge(PowerProduction).WithLabelValues("provence")))
	assert.Equal(t, 75.0, testutil.ToFloat64(reg.Gauge(Availability).WithLabelValues("provence")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Gauge(AnomalyActive).WithLabelValues("provence", "SHADING")))
	assert.Equal(t, 1718280000.0, testutil.ToFloat64(reg.Gauge(LastUpdate).WithLabelValues("provence")))

	// farm missing from the source falls back to the default record
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.Gauge(PowerProduction).WithLabelValues("occitanie")))
	assert.Equal(t, 100.0, testutil.ToFloat64(reg.Gauge(Availability).WithLabelValues("occitanie")))
	assert.Equal(t, 3500.0, testutil.ToFloat64(reg.Gauge(PanelCount).WithLabelValues("occitanie")))

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ReplayPlaying))
	assert.Equal(t, 7.0, testutil.ToFloat64(reg.ReplayCursor.WithLabelValues("provence")))
	assert.Equal(t, 24.0, testutil.ToFloat64(reg.ReplayRecords.WithLabelValues("provence")))
}

func TestExporter_AnomalySwitches(t *testing.T) {
	src := &fakeSource{
		records: map[string]models.Record{"provence": {AnomalyType: models.AnomalyOverheat}},
		status:  models.ReplayStatus{},
	}
	reg := NewRegistry(WithoutRuntimeCollectors())
	exp := NewExporter(reg, []models.FarmConfig{provence}, src, clock.NewMock(), nil)

	exp.Refresh()
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Gauge(AnomalyActive).WithLabelValues("provence", "OVERHEAT")))

	src.records["provence"] = models.Record{AnomalyType: models.AnomalyNormal}
	exp.Refresh()
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.Gauge(AnomalyActive).WithLabelValues("provence", "OVERHEAT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Gauge(AnomalyActive).WithLabelValues("provence", "NORMAL")))
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.ReplayPlaying))
}

func TestExporter_RollingProduction(t *testing.T) {
	src := &fakeSource{
		records: map[string]models.Record{},
		status:  models.ReplayStatus{Indices: map[string]int{}},
	}
	reg := NewRegistry(WithoutRuntimeCollectors())
	exp := NewExporter(reg, []models.FarmConfig{provence}, src, clock.NewMock(), zaptest.NewLogger(t))

	for i := 0; i < 10; i++ {
		src.records["provence"] = models.Record{PowerProductionKW: 1000 + float64(i%2*20)}
		src.status.Indices["provence"] = i
		exp.Refresh()
		// refreshing twice on the same record does not feed the window again
		exp.Refresh()
	}
	assert.InDelta(t, 1010.0, testutil.ToFloat64(reg.PowerRollingAvg.WithLabelValues("provence")), 0.001)
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.ProductionDeviations.WithLabelValues("provence")))

	src.records["provence"] = models.Record{PowerProductionKW: 50}
	src.status.Indices["provence"] = 10
	exp.Refresh()
	exp.Refresh()

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ProductionDeviations.WithLabelValues("provence")))
	assert.Less(t, testutil.ToFloat64(reg.PowerZScore.WithLabelValues("provence")), -2.0)
}

// movingSource lets the engine move right after each read, as a tick would
type movingSource struct {
	engine *replay.Engine
	next   int
}

func (m *movingSource) Snapshot() (map[string]models.Record, models.ReplayStatus) {
	records, status := m.engine.Snapshot()
	m.next++
	m.engine.JumpToIndex(m.next)
	return records, status
}

func TestExporter_RecordsMatchCursor(t *testing.T) {
	engine := replay.New([]models.FarmConfig{provence}, map[string][]models.Record{
		"provence": {
			{FarmName: "provence", PowerProductionKW: 100},
			{FarmName: "provence", PowerProductionKW: 900},
		},
	}, replay.Options{Clock: clock.NewMock()})

	reg := NewRegistry(WithoutRuntimeCollectors())
	exp := NewExporter(reg, []models.FarmConfig{provence}, &movingSource{engine: engine}, clock.NewMock(), zaptest.NewLogger(t))

	exp.Refresh()
	assert.Equal(t, 100.0, testutil.ToFloat64(reg.Gauge(PowerProduction).WithLabelValues("provence")))
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.ReplayCursor.WithLabelValues("provence")))

	exp.Refresh()
	assert.Equal(t, 900.0, testutil.ToFloat64(reg.Gauge(PowerProduction).WithLabelValues("provence")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ReplayCursor.WithLabelValues("provence")))
	assert.InDelta(t, 500.0, testutil.ToFloat64(reg.PowerRollingAvg.WithLabelValues("provence")), 0.001)
}
