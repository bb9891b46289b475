// Package metrics проецирует записи станций в метрики Prometheus и формирует текст экспозиции
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Family описывает семейство метрик станции
type Family struct {
	Name   string
	Help   string
	Labels []string
}

// Имена семейств метрик станций
const (
	PowerProduction    = "solar_power_production_kw"
	TheoreticalPower   = "solar_power_theoretical_kw"
	Irradiance         = "solar_irradiance_wm2"
	PanelTemperature   = "solar_panel_temperature_celsius"
	AmbientTemperature = "solar_ambient_temperature_celsius"
	InverterStatus     = "solar_inverter_status"
	Efficiency         = "solar_efficiency_percent"
	DailyRevenue       = "solar_daily_revenue_euros"
	Availability       = "solar_availability_percent"
	AnomalyActive      = "solar_anomaly_active"
	AnomalySeverity    = "solar_anomaly_severity"
	PanelCount         = "solar_panel_count"
	Capacity           = "solar_capacity_mw"
	LastUpdate         = "solar_last_update_timestamp"
	SimulatedHour      = "solar_simulated_hour"
	SimulatedDay       = "solar_simulated_day"
)

// Имена меток
const (
	LabelFarm     = "farm"
	LabelInverter = "inverter_id"
	LabelType     = "type"
)

// FarmFamilies метрики станций в порядке регистрации
var FarmFamilies = []Family{
	{PowerProduction, "Instantaneous power production in kW", []string{LabelFarm}},
	{TheoreticalPower, "Theoretical power production in kW", []string{LabelFarm}},
	{Irradiance, "Measured solar irradiance in W/m2", []string{LabelFarm}},
	{PanelTemperature, "Average panel temperature in Celsius", []string{LabelFarm}},
	{AmbientTemperature, "Ambient temperature in Celsius", []string{LabelFarm}},
	{InverterStatus, "Inverter status (1=OK, 0=KO)", []string{LabelFarm, LabelInverter}},
	{Efficiency, "Overall efficiency in percent", []string{LabelFarm}},
	{DailyRevenue, "Cumulative daily revenue in euros", []string{LabelFarm}},
	{Availability, "Availability rate in percent", []string{LabelFarm}},
	{AnomalyActive, "Active anomaly indicator (1=active, 0=inactive)", []string{LabelFarm, LabelType}},
	{AnomalySeverity, "Anomaly severity (0=low, 1=medium, 2=high)", []string{LabelFarm}},
	{PanelCount, "Total number of panels in the farm", []string{LabelFarm}},
	{Capacity, "Installed capacity in MW", []string{LabelFarm}},
	{LastUpdate, "Timestamp of the last data update", []string{LabelFarm}},
	{SimulatedHour, "Simulated hour (0-23)", []string{LabelFarm}},
	{SimulatedDay, "Simulated day of year (1-366)", []string{LabelFarm}},
}

// Registry владеет реестром Prometheus симулятора и запоминает порядок регистрации
type Registry struct {
	reg   *prometheus.Registry
	order []string

	gauges map[string]*prometheus.GaugeVec

	// PowerRollingAvg скользящее среднее выработки по станциям
	PowerRollingAvg *prometheus.GaugeVec
	// PowerZScore z-score последней выработки по станциям
	PowerZScore *prometheus.GaugeVec
	// ProductionDeviations счетчик записей за порогом z-score
	ProductionDeviations *prometheus.CounterVec

	// ReplayPlaying равен 1, пока идет воспроизведение
	ReplayPlaying prometheus.Gauge
	// ReplayCursor курсор каждой станции
	ReplayCursor *prometheus.GaugeVec
	// ReplayRecords размер набора данных каждой станции
	ReplayRecords *prometheus.GaugeVec

	// RequestsTotal счетчик HTTP запросов
	RequestsTotal *prometheus.CounterVec
	// RequestDuration время обработки HTTP запросов
	RequestDuration *prometheus.HistogramVec
}

// Option настраивает Registry
type Option func(*registryOptions)

type registryOptions struct {
	runtime bool
}

// WithoutRuntimeCollectors отключает коллекторы Go и процесса
func WithoutRuntimeCollectors() Option {
	return func(o *registryOptions) { o.runtime = false }
}

// NewRegistry регистрирует метрики станций, затем аналитики, воспроизведения и HTTP, затем коллекторы рантайма
func NewRegistry(opts ...Option) *Registry {
	o := registryOptions{runtime: true}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{
		reg:    prometheus.NewRegistry(),
		gauges: make(map[string]*prometheus.GaugeVec, len(FarmFamilies)),
	}

	for _, f := range FarmFamilies {
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: f.Name, Help: f.Help}, f.Labels)
		r.mustRegister(f.Name, vec)
		r.gauges[f.Name] = vec
	}

	r.PowerRollingAvg = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "solar_power_rolling_avg_kw",
		Help: "Rolling average of power production over the last simulated day",
	}, []string{LabelFarm})
	r.mustRegister("solar_power_rolling_avg_kw", r.PowerRollingAvg)

	r.PowerZScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "solar_power_zscore",
		Help: "Z-score of the current power production against the rolling window",
	}, []string{LabelFarm})
	r.mustRegister("solar_power_zscore", r.PowerZScore)

	r.ProductionDeviations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solar_production_deviations_total",
		Help: "Records whose production deviates by more than 2 sigma",
	}, []string{LabelFarm})
	r.mustRegister("solar_production_deviations_total", r.ProductionDeviations)

	r.ReplayPlaying = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "solar_replay_playing",
		Help: "Replay state (1=playing, 0=paused)",
	})
	r.mustRegister("solar_replay_playing", r.ReplayPlaying)

	r.ReplayCursor = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "solar_replay_cursor_index",
		Help: "Current replay cursor per farm",
	}, []string{LabelFarm})
	r.mustRegister("solar_replay_cursor_index", r.ReplayCursor)

	r.ReplayRecords = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "solar_replay_dataset_records",
		Help: "Number of records in the dataset of each farm",
	}, []string{LabelFarm})
	r.mustRegister("solar_replay_dataset_records", r.ReplayRecords)

	r.RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solar_http_requests_total",
		Help: "Total number of HTTP requests processed",
	}, []string{"endpoint", "method", "status"})
	r.mustRegister("solar_http_requests_total", r.RequestsTotal)

	r.RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solar_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"endpoint", "method"})
	r.mustRegister("solar_http_request_duration_seconds", r.RequestDuration)

	if o.runtime {
		r.reg.MustRegister(collectors.NewGoCollector())
		r.reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return r
}

func (r *Registry) mustRegister(name string, c prometheus.Collector) {
	r.reg.MustRegister(c)
	r.order = append(r.order, name)
}

// Apply записывает набор наблюдений в метрики станций
func (r *Registry) Apply(set ObservationSet) error {
	for _, o := range set {
		vec, ok := r.gauges[o.Name]
		if !ok {
			return fmt.Errorf("unknown metric family %q", o.Name)
		}
		g, err := vec.GetMetricWith(o.Labels)
		if err != nil {
			return fmt.Errorf("metric %s: %w", o.Name, err)
		}
		g.Set(o.Value)
	}
	return nil
}

// Gauge возвращает вектор семейства станции или nil
func (r *Registry) Gauge(name string) *prometheus.GaugeVec {
	return r.gauges[name]
}

// Order возвращает имена семейств в порядке регистрации
func (r *Registry) Order() []string {
	return append([]string(nil), r.order...)
}

// Gatherer возвращает нижележащий реестр
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
