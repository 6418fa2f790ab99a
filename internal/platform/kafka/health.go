package kafka

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// HealthChecker dials the configured brokers over TCP.
type HealthChecker struct {
	brokers string
	timeout time.Duration
}

func NewHealthChecker(brokers string) *HealthChecker {
	return &HealthChecker{brokers: brokers, timeout: 2 * time.Second}
}

// Check succeeds when at least one broker accepts a TCP connection.
func (h *HealthChecker) Check(ctx context.Context) error {
	var lastErr error
	dialer := net.Dialer{Timeout: h.timeout}
	for _, broker := range strings.Split(h.brokers, ",") {
		broker = strings.TrimSpace(broker)
		if broker == "" {
			continue
		}
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("no kafka brokers reachable: %w", lastErr)
	}
	return fmt.Errorf("kafka brokers not configured")
}
