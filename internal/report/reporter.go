// Package report carries progress events from the crawl and enumeration
// loops to whoever is watching, instead of having components write to a
// shared console directly.
package report

import "log/slog"

// Reporter receives progress events. Implementations must be safe for
// concurrent use.
type Reporter interface {
	PageFetched(url string, status int)
	PageFailed(url string, err error)
	RecordStored(collection, url string)
	ItemSkipped(url, reason string)
	CandidateResolved(host, ip string)
	CandidateUnresolved(host string)
}

// LogReporter emits every event through a slog logger.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter wraps a logger as a Reporter.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) PageFetched(url string, status int) {
	r.logger.Info("page fetched", "url", url, "status", status)
}

func (r *LogReporter) PageFailed(url string, err error) {
	r.logger.Warn("page failed", "url", url, "error", err)
}

func (r *LogReporter) RecordStored(collection, url string) {
	r.logger.Debug("record stored", "collection", collection, "url", url)
}

func (r *LogReporter) ItemSkipped(url, reason string) {
	r.logger.Warn("item skipped", "url", url, "reason", reason)
}

func (r *LogReporter) CandidateResolved(host, ip string) {
	r.logger.Info("resolved", "host", host, "ip", ip)
}

func (r *LogReporter) CandidateUnresolved(host string) {
	r.logger.Debug("unresolved", "host", host)
}

// Nop discards every event. Useful in tests.
type Nop struct{}

func (Nop) PageFetched(string, int)          {}
func (Nop) PageFailed(string, error)         {}
func (Nop) RecordStored(string, string)      {}
func (Nop) ItemSkipped(string, string)       {}
func (Nop) CandidateResolved(string, string) {}
func (Nop) CandidateUnresolved(string)       {}
