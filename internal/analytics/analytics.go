// Package analytics ведет скользящую статистику выработки по станциям.
// Вычисляет rolling average и z-score выработки, чтобы
// отмечать записи, отклоняющиеся от недавнего поведения станции.
package analytics

import (
	"math"
	"sync"
)

const (
	// WindowSize один симулированный день почасовых записей
	WindowSize = 24
	// ZScoreThreshold порог отклонения (> 2σ)
	ZScoreThreshold = 2.0
	// MinSamples минимальное заполнение окна для детекции отклонений
	MinSamples = 6
)

// SlidingWindow хранит последние size значений и их суммы
type SlidingWindow struct {
	values []float64
	size   int
	index  int
	count  int
	sum    float64
	sumSq  float64
}

// NewSlidingWindow создает окно заданного размера
func NewSlidingWindow(size int) *SlidingWindow {
	if size < 1 {
		size = 1
	}
	return &SlidingWindow{values: make([]float64, size), size: size}
}

// Add добавляет значение, вытесняя самое старое при заполненном окне
func (sw *SlidingWindow) Add(value float64) {
	if sw.count >= sw.size {
		old := sw.values[sw.index]
		sw.sum -= old
		sw.sumSq -= old * old
	} else {
		sw.count++
	}

	sw.values[sw.index] = value
	sw.sum += value
	sw.sumSq += value * value
	sw.index = (sw.index + 1) % sw.size
}

// Mean возвращает среднее значение (rolling average)
func (sw *SlidingWindow) Mean() float64 {
	if sw.count == 0 {
		return 0
	}
	return sw.sum / float64(sw.count)
}

// StdDev возвращает выборочное стандартное отклонение
func (sw *SlidingWindow) StdDev() float64 {
	if sw.count < 2 {
		return 0
	}
	n := float64(sw.count)
	variance := (sw.sumSq - (sw.sum*sw.sum)/n) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// ZScore вычисляет z-score значения, 0 при нулевом разбросе
func (sw *SlidingWindow) ZScore(value float64) float64 {
	std := sw.StdDev()
	if std == 0 {
		return 0
	}
	return (value - sw.Mean()) / std
}

// Count возвращает количество элементов в окне
func (sw *SlidingWindow) Count() int {
	return sw.count
}

// Result состояние станции после наблюдения
type Result struct {
	RollingAvg float64
	ZScore     float64
	Deviation  bool
}

type farmState struct {
	window *SlidingWindow
	cursor int
	seen   bool
	last   Result
}

// Tracker хранит окно выработки для каждой станции
type Tracker struct {
	mu    sync.Mutex
	size  int
	farms map[string]*farmState
}

// NewTracker создает трекер с окнами заданного размера
func NewTracker(size int) *Tracker {
	return &Tracker{size: size, farms: make(map[string]*farmState)}
}

// Observe добавляет выработку записи на позиции cursor.
// Для уже учтенного курсора возвращается прежний результат и false,
// поэтому частые обновления не искажают окно.
func (t *Tracker) Observe(farm string, cursor int, production float64) (Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.farms[farm]
	if !ok {
		st = &farmState{window: NewSlidingWindow(t.size)}
		t.farms[farm] = st
	}
	if st.seen && st.cursor == cursor {
		return st.last, false
	}

	// z-score считаем до добавления в окно
	z := st.window.ZScore(production)
	warm := st.window.Count() >= MinSamples
	st.window.Add(production)

	st.cursor = cursor
	st.seen = true
	st.last = Result{
		RollingAvg: st.window.Mean(),
		ZScore:     z,
		Deviation:  warm && math.Abs(z) > ZScoreThreshold,
	}
	return st.last, true
}
