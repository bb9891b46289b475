// Package replay воспроизводит наборы данных станций по кругу.
// У каждой станции свой курсор, все курсоры сдвигаются вместе на каждом тике.
package replay

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"solar-simulator/internal/models"
)

// DefaultInterval используется, если Options.Interval не положителен
const DefaultInterval = 30 * time.Second

// Options параметры Engine
type Options struct {
	// Интервал между тиками
	Interval time.Duration
	Clock    clock.Clock
	Logger   *zap.Logger
}

// Engine владеет курсорами воспроизведения и единственный изменяет их состояние.
type Engine struct {
	mu       sync.RWMutex
	clock    clock.Clock
	logger   *zap.Logger
	interval time.Duration

	farms     []string
	inverters map[string]int
	series    map[string][]models.Record
	cursor    map[string]int
	current   map[string]models.Record

	playing     bool
	lastAdvance time.Time
	ticks       uint64

	// stopChan идентифицирует текущую сессию воспроизведения
	stopChan chan struct{}
	done     chan struct{}
}

// New создает остановленный движок для заданных станций.
// Данные ненастроенных станций игнорируются.
func New(farms []models.FarmConfig, series map[string][]models.Record, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	e := &Engine{
		clock:     opts.Clock,
		logger:    opts.Logger,
		interval:  opts.Interval,
		farms:     make([]string, 0, len(farms)),
		inverters: make(map[string]int, len(farms)),
		series:    make(map[string][]models.Record, len(farms)),
		cursor:    make(map[string]int, len(farms)),
		current:   make(map[string]models.Record, len(farms)),
	}
	for _, f := range farms {
		e.farms = append(e.farms, f.Name)
		e.inverters[f.Name] = f.Inverters
		e.series[f.Name] = series[f.Name]
		e.cursor[f.Name] = 0
	}
	e.lastAdvance = e.clock.Now()
	e.materialize()
	return e
}

// Start запускает периодическое продвижение. Повторный вызов ничего не делает.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.playing {
		return
	}
	e.playing = true
	e.materialize()

	stop := make(chan struct{})
	done := make(chan struct{})
	e.stopChan = stop
	e.done = done

	ticker := e.clock.Ticker(e.interval)
	go e.run(ticker, stop, done)

	e.logger.Info("replay started", zap.Duration("interval", e.interval))
}

// Stop останавливает тикер и ждет завершения горутины.
// После возврата из Stop тиков не будет.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.playing {
		e.mu.Unlock()
		return
	}
	e.playing = false
	close(e.stopChan)
	done := e.done
	e.mu.Unlock()

	<-done
	e.logger.Info("replay stopped")
}

func (e *Engine) run(ticker *clock.Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.tick(stop)
		case <-stop:
			return
		}
	}
}

// tick продвигает курсоры, если его сессия не была остановлена
func (e *Engine) tick(session chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.playing || e.stopChan != session {
		return
	}
	e.advance()
}

// advance сдвигает каждый непустой курсор на одну запись, по кругу.
// Вызывающий должен держать блокировку на запись.
func (e *Engine) advance() {
	for _, farm := range e.farms {
		n := len(e.series[farm])
		if n == 0 {
			continue
		}
		e.cursor[farm] = (e.cursor[farm] + 1) % n
	}
	e.materialize()
	e.lastAdvance = e.clock.Now()
	e.ticks++
}

// JumpToIndex переводит каждый непустой курсор на index в пределах набора данных.
// Метрики не пересчитываются, это делает вызывающий.
func (e *Engine) JumpToIndex(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, farm := range e.farms {
		n := len(e.series[farm])
		if n == 0 {
			continue
		}
		e.cursor[farm] = clamp(index, 0, n-1)
	}
	e.materialize()
	e.logger.Debug("replay jump", zap.Int("index", index))
}

// materialize обновляет текущую запись каждой станции. Вызывающий должен держать блокировку на запись.
func (e *Engine) materialize() {
	for _, farm := range e.farms {
		data := e.series[farm]
		if len(data) == 0 {
			e.current[farm] = models.DefaultRecord(farm, e.inverters[farm])
			continue
		}
		e.current[farm] = data[e.cursor[farm]]
	}
}

// Current возвращает текущую запись станции или запись по умолчанию для неизвестной
func (e *Engine) Current(farm string) models.Record {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if rec, ok := e.current[farm]; ok {
		return rec.Clone()
	}
	return models.DefaultRecord(farm, 0)
}

// All возвращает текущие записи всех настроенных станций
func (e *Engine) All() map[string]models.Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.records()
}

// Status возвращает копию состояния воспроизведения
func (e *Engine) Status() models.ReplayStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status()
}

// Snapshot возвращает текущие записи и состояние под одной блокировкой,
// поэтому записи всегда соответствуют курсорам
func (e *Engine) Snapshot() (map[string]models.Record, models.ReplayStatus) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.records(), e.status()
}

func (e *Engine) records() map[string]models.Record {
	out := make(map[string]models.Record, len(e.farms))
	for _, farm := range e.farms {
		out[farm] = e.current[farm].Clone()
	}
	return out
}

func (e *Engine) status() models.ReplayStatus {
	status := models.ReplayStatus{
		Playing:      e.playing,
		LastUpdate:   e.lastAdvance,
		Indices:      make(map[string]int, len(e.farms)),
		TotalRecords: make(map[string]int, len(e.farms)),
		Ticks:        e.ticks,
	}
	for _, farm := range e.farms {
		status.Indices[farm] = e.cursor[farm]
		status.TotalRecords[farm] = len(e.series[farm])
	}
	return status
}

// Playing сообщает, работает ли тикер
func (e *Engine) Playing() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.playing
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
