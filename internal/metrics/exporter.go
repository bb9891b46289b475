package metrics

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"solar-simulator/internal/analytics"
	"solar-simulator/internal/models"
)

// Source отдает текущие записи вместе с состоянием воспроизведения, к которому они относятся
type Source interface {
	Snapshot() (map[string]models.Record, models.ReplayStatus)
}

// Exporter пересчитывает реестр по данным движка воспроизведения
type Exporter struct {
	registry *Registry
	farms    []models.FarmConfig
	source   Source
	tracker  *analytics.Tracker
	clock    clock.Clock
	logger   *zap.Logger
}

// NewExporter создает экспортер для заданных станций
func NewExporter(registry *Registry, farms []models.FarmConfig, source Source, clk clock.Clock, logger *zap.Logger) *Exporter {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		registry: registry,
		farms:    farms,
		source:   source,
		tracker:  analytics.NewTracker(analytics.WindowSize),
		clock:    clk,
		logger:   logger,
	}
}

// Refresh проецирует текущую запись каждой станции в реестр
func (e *Exporter) Refresh() {
	records, status := e.source.Snapshot()
	now := float64(e.clock.Now().UnixMilli()) / 1000

	for _, farm := range e.farms {
		rec, ok := records[farm.Name]
		if !ok {
			rec = models.DefaultRecord(farm.Name, farm.Inverters)
		}
		if err := e.registry.Apply(Project(farm, rec)); err != nil {
			e.logger.Error("metrics projection failed", zap.String("farm", farm.Name), zap.Error(err))
			continue
		}
		e.registry.Gauge(LastUpdate).WithLabelValues(farm.Name).Set(now)
		e.observe(farm.Name, status.Indices[farm.Name], rec)

		e.registry.ReplayCursor.WithLabelValues(farm.Name).Set(float64(status.Indices[farm.Name]))
		e.registry.ReplayRecords.WithLabelValues(farm.Name).Set(float64(status.TotalRecords[farm.Name]))
	}

	playing := 0.0
	if status.Playing {
		playing = 1
	}
	e.registry.ReplayPlaying.Set(playing)
	e.logger.Debug("metrics refreshed", zap.Int("farms", len(e.farms)), zap.Uint64("ticks", status.Ticks))
}

// observe добавляет выработку новой записи в скользящую статистику
func (e *Exporter) observe(farm string, cursor int, rec models.Record) {
	res, fresh := e.tracker.Observe(farm, cursor, finite(rec.PowerProductionKW))
	e.registry.PowerRollingAvg.WithLabelValues(farm).Set(res.RollingAvg)
	e.registry.PowerZScore.WithLabelValues(farm).Set(finite(res.ZScore))
	if !fresh || !res.Deviation {
		return
	}
	e.registry.ProductionDeviations.WithLabelValues(farm).Inc()
	e.logger.Info("production deviation detected",
		zap.String("farm", farm),
		zap.Int("cursor", cursor),
		zap.Float64("power_kw", rec.PowerProductionKW),
		zap.Float64("zscore", res.ZScore),
	)
}
