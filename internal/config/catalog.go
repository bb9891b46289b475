package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"solar-simulator/internal/models"
)

// Catalog упорядоченный список настроенных станций
type Catalog struct {
	Farms []models.FarmConfig `yaml:"farms"`
}

// DefaultCatalog возвращает три эталонные станции
func DefaultCatalog() Catalog {
	return Catalog{Farms: []models.FarmConfig{
		{Name: "provence", Location: "Marseille", Latitude: 43.3, Panels: 5000, CapacityMW: 2.0, Inverters: 4, PanelPowerW: 400, CSVFile: "provence_data.csv"},
		{Name: "occitanie", Location: "Montpellier", Latitude: 43.6, Panels: 3500, CapacityMW: 1.4, Inverters: 3, PanelPowerW: 400, CSVFile: "occitanie_data.csv"},
		{Name: "aquitaine", Location: "Bordeaux", Latitude: 44.8, Panels: 4200, CapacityMW: 1.68, Inverters: 4, PanelPowerW: 400, CSVFile: "aquitaine_data.csv"},
	}}
}

// LoadCatalog читает каталог из YAML. Пустой путь дает каталог по умолчанию.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read farms file: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse farms file: %w", err)
	}
	for i := range c.Farms {
		if c.Farms[i].CSVFile == "" {
			c.Farms[i].CSVFile = c.Farms[i].Name + "_data.csv"
		}
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate отклоняет пустой каталог, повторяющиеся имена и станции без инверторов
func (c Catalog) Validate() error {
	if len(c.Farms) == 0 {
		return errors.New("catalog has no farms")
	}
	seen := make(map[string]struct{}, len(c.Farms))
	for i, f := range c.Farms {
		if f.Name == "" {
			return fmt.Errorf("farm %d: name is required", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("farm %q: duplicate name", f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Inverters <= 0 {
			return fmt.Errorf("farm %q: inverters must be positive", f.Name)
		}
		if f.Panels < 0 || f.CapacityMW < 0 {
			return fmt.Errorf("farm %q: panels and capacity must not be negative", f.Name)
		}
	}
	return nil
}

// Names возвращает имена станций в порядке каталога
func (c Catalog) Names() []string {
	names := make([]string, len(c.Farms))
	for i, f := range c.Farms {
		names[i] = f.Name
	}
	return names
}

// Get ищет станцию по имени
func (c Catalog) Get(name string) (models.FarmConfig, bool) {
	for _, f := range c.Farms {
		if f.Name == name {
			return f, true
		}
	}
	return models.FarmConfig{}, false
}
