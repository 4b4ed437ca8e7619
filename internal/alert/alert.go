// Package alert delivers fire-and-forget notifications about trading
// activity. Delivery failures are logged and never surface to the trading
// path.
package alert

import (
	"context"
	"sync"
	"time"

	"trade_bot/internal/core"
	"trade_bot/pkg/concurrency"
)

type AlertLevel string

const (
	Info     AlertLevel = "INFO"
	Warning  AlertLevel = "WARNING"
	Error    AlertLevel = "ERROR"
	Critical AlertLevel = "CRITICAL"
)

type AlertPayload struct {
	Level     AlertLevel
	Title     string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

type AlertChannel interface {
	Send(ctx context.Context, alert AlertPayload) error
	Name() string
}

// AlertManager fans alerts out to all registered channels through a worker
// pool so delivery never blocks the trading cycle.
type AlertManager struct {
	channels []AlertChannel
	logger   core.ILogger
	pool     *concurrency.WorkerPool
	mu       sync.RWMutex
}

func NewAlertManager(logger core.ILogger) *AlertManager {
	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "alerts",
		MaxWorkers:  2,
		MaxCapacity: 128,
		NonBlocking: true,
	}, logger)

	return &AlertManager{
		channels: make([]AlertChannel, 0),
		logger:   logger.WithField("component", "alert_manager"),
		pool:     pool,
	}
}

func (am *AlertManager) AddChannel(ch AlertChannel) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.channels = append(am.channels, ch)
	am.logger.Info("Added alert channel", "name", ch.Name())
}

// Alert dispatches a payload to every channel asynchronously. If the pool's
// queue is full the alert is dropped; trading activity is never held back
// waiting on a webhook.
func (am *AlertManager) Alert(ctx context.Context, title, message string, level AlertLevel, fields map[string]string) {
	payload := AlertPayload{
		Level:     level,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
		Fields:    fields,
	}

	am.mu.RLock()
	channels := make([]AlertChannel, len(am.channels))
	copy(channels, am.channels)
	am.mu.RUnlock()

	for _, ch := range channels {
		c := ch
		err := am.pool.Submit(func() {
			timeoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := c.Send(timeoutCtx, payload); err != nil {
				am.logger.Error("Failed to send alert", "channel", c.Name(), "error", err)
			}
		})
		if err != nil {
			am.logger.Warn("Alert dropped, queue full", "channel", c.Name(), "title", title)
		}
	}
}

// Close drains pending alerts and stops the dispatch pool.
func (am *AlertManager) Close() {
	am.pool.Stop()
}
