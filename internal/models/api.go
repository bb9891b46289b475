package models

import "time"

// HealthStatus тело ответа проверок liveness и readiness
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    int64     `json:"uptime,omitempty"`
}

// StatusResponse тело ответа GET /status
type StatusResponse struct {
	ReplayStatus
	Uptime int64        `json:"uptime"`
	Config StatusConfig `json:"config"`
	Cache  CacheStatus  `json:"cache"`
}

// CacheStatus состояние зеркала снимка
type CacheStatus struct {
	Status    string `json:"status"`
	Refreshes int64  `json:"refreshes"`
}

// StatusConfig статическая конфигурация воспроизведения
type StatusConfig struct {
	UpdateInterval int64    `json:"updateInterval"`
	Farms          []string `json:"farms"`
	Mode           string   `json:"mode"`
	SpeedFactor    float64  `json:"speedFactor"`
}

// JumpRequest тело запроса POST /control/jump
type JumpRequest struct {
	Index interface{} `json:"index"`
}

// JumpResponse ответ после перехода
type JumpResponse struct {
	Message     string            `json:"message"`
	NewIndex    int               `json:"newIndex"`
	CurrentData map[string]Record `json:"currentData"`
}

// ControlResponse ответ паузы и возобновления
type ControlResponse struct {
	Message string       `json:"message"`
	Status  ReplayStatus `json:"status"`
}

// FarmNotFound тело ответа 404 для неизвестной станции
type FarmNotFound struct {
	Error                  string   `json:"error"`
	AvailableInstallations []string `json:"availableInstallations"`
}
