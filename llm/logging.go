package llm

import (
	"log/slog"
	"time"
)

var auditLevelRank = map[string]int{
	"minimal":  0,
	"standard": 1,
	"verbose":  2,
}

// RequestLogger writes request/response events for the guarded adapter.
// An event is written when its level is at or below the configured level.
type RequestLogger struct {
	logger     *slog.Logger
	auditLevel string
}

// NewRequestLogger creates a new request logger
func NewRequestLogger(logger *slog.Logger, auditLevel string) *RequestLogger {
	if logger == nil {
		logger = slog.Default()
	}
	if _, ok := auditLevelRank[auditLevel]; !ok {
		auditLevel = "standard"
	}
	return &RequestLogger{
		logger:     logger,
		auditLevel: auditLevel,
	}
}

func (l *RequestLogger) enabled(level string) bool {
	rank, ok := auditLevelRank[level]
	if !ok {
		rank = auditLevelRank["standard"]
	}
	return rank <= auditLevelRank[l.auditLevel]
}

// LogRequest logs request details according to audit level
func (l *RequestLogger) LogRequest(requestID string, request map[string]interface{}, level string) {
	if !l.enabled(level) {
		return
	}

	// credentials never reach the log
	safeCopy := make(map[string]interface{}, len(request))
	for k, v := range request {
		switch k {
		case "api_key", "auth_token", "password":
			safeCopy[k] = "[REDACTED]"
		default:
			safeCopy[k] = v
		}
	}

	l.logger.Info("Guarded request",
		"request_id", requestID,
		"level", level,
		"data", safeCopy)
}

// LogResponse logs response details according to audit level
func (l *RequestLogger) LogResponse(requestID string, response interface{}, duration time.Duration, level string) {
	if !l.enabled(level) {
		return
	}

	l.logger.Info("Guarded response",
		"request_id", requestID,
		"level", level,
		"duration_ms", duration.Milliseconds(),
		"data", response)
}
