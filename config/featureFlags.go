package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// RecurringSchedulerEnabled gates the in-process recurring-invoice ticker.
// Disable when running the standalone runner (cmd/recurring-invoice-runner)
// so two processes don't both tick against the same database.
//
// Set via env:
// - RECURRING_SCHEDULER_ENABLED=true
func RecurringSchedulerEnabled() bool {
	return envBool("RECURRING_SCHEDULER_ENABLED")
}

// RecurringSchedulerTickInterval returns the scheduler tick cadence.
//
// Set via env:
// - RECURRING_SCHEDULER_TICK_SECONDS (default 60)
func RecurringSchedulerTickInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("RECURRING_SCHEDULER_TICK_SECONDS"))
	if v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Minute
}

// OutboxDispatcherEnabled gates the notification outbox poller.
//
// Set via env:
// - OUTBOX_DISPATCHER_ENABLED=true
func OutboxDispatcherEnabled() bool {
	return envBool("OUTBOX_DISPATCHER_ENABLED")
}
