//go:build go1.25

package logging

import "log/slog"

func recordSource(record slog.Record) *slog.Source {
	return record.Source()
}
