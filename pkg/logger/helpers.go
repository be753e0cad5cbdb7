package logger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// LogDownload logs the outcome of a single media download
func LogDownload(username, name, mediaType string, success bool, err error) {
	fields := map[string]interface{}{
		"username":   username,
		"media":      name,
		"media_type": mediaType,
		"success":    success,
	}

	log := GetLogger().WithFields(fields)

	if err != nil {
		log.WithError(err).Error("Download failed")
	} else if success {
		log.Info("Download completed")
	} else {
		log.Warn("Download skipped")
	}
}

// LogRateLimit logs rate limiting events
func LogRateLimit(endpoint string, retryAfter int) {
	GetLogger().WithFields(map[string]interface{}{
		"endpoint":    endpoint,
		"retry_after": retryAfter,
		"action":      "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogAnalysisProgress logs vision analysis progress
func LogAnalysisProgress(username string, analyzed, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(analyzed) / float64(total) * 100
	}

	GetLogger().WithFields(map[string]interface{}{
		"username":   username,
		"analyzed":   analyzed,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Info("Analysis progress")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
