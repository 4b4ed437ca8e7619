package logging

import (
	"context"
	"testing"
	"time"

	"trade_bot/pkg/telemetry"
)

func TestZapLogger_OTelBridge(t *testing.T) {
	tel, err := telemetry.Setup("test-logger")
	if err != nil {
		t.Fatalf("OTel setup failed: %v", err)
	}
	defer func() {
		_ = tel.Shutdown(context.Background())
	}()

	logger, err := NewZapLogger("DEBUG")
	if err != nil {
		t.Fatalf("Zap logger creation failed: %v", err)
	}

	logger.Info("Test OTel bridging", "key", "value")

	// Wait a bit for OTel batching (if any)
	time.Sleep(500 * time.Millisecond)

	logger.Debug("Debug message", "status", "testing")

	_ = logger.Sync() // Some writers don't support sync (like stdout in some envs), ignore error
}

func TestZapLogger_WithFields(t *testing.T) {
	logger, err := NewZapLogger("INFO")
	if err != nil {
		t.Fatalf("Zap logger creation failed: %v", err)
	}

	child := logger.WithField("symbol", "AAPL").WithFields(map[string]interface{}{
		"cycle": 1,
	})
	child.Info("scoped logger works")
}
