package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricCyclesTotal        = "trade_bot_cycles_total"
	MetricOrdersPlacedTotal  = "trade_bot_orders_placed_total"
	MetricOrdersBlockedTotal = "trade_bot_orders_blocked_total"
	MetricSymbolsSkipped     = "trade_bot_symbols_skipped_total"
	MetricRetriesExhausted   = "trade_bot_retries_exhausted_total"
	MetricCycleDuration      = "trade_bot_cycle_duration_seconds"
	MetricWalletCash         = "trade_bot_wallet_cash"
	MetricPositionShares     = "trade_bot_position_shares"
)

// MetricsHolder holds initialized instruments
type MetricsHolder struct {
	CyclesTotal        metric.Int64Counter
	OrdersPlacedTotal  metric.Int64Counter
	OrdersBlockedTotal metric.Int64Counter
	SymbolsSkipped     metric.Int64Counter
	RetriesExhausted   metric.Int64Counter
	CycleDuration      metric.Float64Histogram
	WalletCash         metric.Float64ObservableGauge
	PositionShares     metric.Float64ObservableGauge

	// State for observable gauges
	mu             sync.RWMutex
	walletCash     float64
	positionShares map[string]float64
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{
			positionShares: make(map[string]float64),
		}
		// Initialization of instruments happens in InitMetrics
	})
	return globalMetrics
}

// InitMetrics initializes instruments using the meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	m.CyclesTotal, err = meter.Int64Counter(MetricCyclesTotal, metric.WithDescription("Total trading cycles executed"))
	if err != nil {
		return err
	}

	m.OrdersPlacedTotal, err = meter.Int64Counter(MetricOrdersPlacedTotal, metric.WithDescription("Total orders submitted to the brokerage"))
	if err != nil {
		return err
	}

	m.OrdersBlockedTotal, err = meter.Int64Counter(MetricOrdersBlockedTotal, metric.WithDescription("Total orders blocked by risk or fund checks"))
	if err != nil {
		return err
	}

	m.SymbolsSkipped, err = meter.Int64Counter(MetricSymbolsSkipped, metric.WithDescription("Total per-symbol cycles skipped due to collaborator errors"))
	if err != nil {
		return err
	}

	m.RetriesExhausted, err = meter.Int64Counter(MetricRetriesExhausted, metric.WithDescription("Total operations that exhausted their retry budget"))
	if err != nil {
		return err
	}

	m.CycleDuration, err = meter.Float64Histogram(MetricCycleDuration, metric.WithDescription("Duration of one full symbol cycle"), metric.WithUnit("s"))
	if err != nil {
		return err
	}

	// Observables
	m.WalletCash, err = meter.Float64ObservableGauge(MetricWalletCash, metric.WithDescription("Cash balance from the latest portfolio snapshot"),
		metric.WithFloat64Callback(func(ctx context.Context, obs metric.Float64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			obs.Observe(m.walletCash)
			return nil
		}))
	if err != nil {
		return err
	}

	m.PositionShares, err = meter.Float64ObservableGauge(MetricPositionShares, metric.WithDescription("Shares owned per symbol from the latest snapshot"),
		metric.WithFloat64Callback(func(ctx context.Context, obs metric.Float64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for sym, val := range m.positionShares {
				obs.Observe(val, metric.WithAttributes(attribute.String("symbol", sym)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	return nil
}

// SetWalletCash records the latest observed cash balance.
func (m *MetricsHolder) SetWalletCash(cash float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.walletCash = cash
}

// SetPositionShares records the latest observed position size for a symbol.
func (m *MetricsHolder) SetPositionShares(symbol string, shares float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positionShares[symbol] = shares
}
