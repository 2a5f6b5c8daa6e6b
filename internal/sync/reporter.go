package sync

import (
	"log/slog"
	"time"
)

// Event is one observable moment of a connector run.
type Event struct {
	ConnectorID   string
	ConnectorName string
	Stage         string
	Message       string
	Records       int
	Degraded      int
	Err           error
	Done          bool
	At            time.Time
}

// Reporter receives run events. Implementations must be safe for concurrent
// use: connectors run in parallel.
type Reporter interface {
	Report(e Event)
}

// LogReporter logs run events through slog.
type LogReporter struct {
	Logger *slog.Logger
}

func (r *LogReporter) Report(e Event) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{"connector_id", e.ConnectorID}
	if e.ConnectorName != "" {
		attrs = append(attrs, "connector_name", e.ConnectorName)
	}
	if e.Stage != "" {
		attrs = append(attrs, "stage", e.Stage)
	}
	if e.Records != 0 || e.Degraded != 0 {
		attrs = append(attrs, "records", e.Records, "degraded", e.Degraded)
	}

	message := e.Message
	if e.Err != nil {
		if message == "" {
			message = "connector sync failed"
		}
		attrs = append(attrs, "err", e.Err)
		logger.Error(message, attrs...)
		return
	}
	if message == "" {
		if !e.Done {
			return
		}
		message = "connector sync complete"
	}
	logger.Info(message, attrs...)
}
