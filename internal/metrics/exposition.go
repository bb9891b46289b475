package metrics

import (
	"bufio"
	"fmt"
	"io"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// ContentType текстовый формат экспозиции Prometheus
var ContentType = string(expfmt.NewFormat(expfmt.TypeTextPlain))

// Formatter выводит реестр в текстовом формате экспозиции.
// Семейства идут в порядке регистрации, за ними коллекторы рантайма.
type Formatter struct {
	registry *Registry
}

// NewFormatter создает форматтер для реестра
func NewFormatter(registry *Registry) *Formatter {
	return &Formatter{registry: registry}
}

// Write собирает реестр и пишет все семейства в w
func (f *Formatter) Write(w io.Writer) error {
	families, err := f.registry.Gatherer().Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	buf := bufio.NewWriter(w)
	written := make(map[string]bool, len(families))
	for _, name := range f.registry.Order() {
		mf, ok := byName[name]
		if !ok {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(buf, mf); err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		written[name] = true
	}
	for _, mf := range families {
		if written[mf.GetName()] {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(buf, mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.Flush()
}
