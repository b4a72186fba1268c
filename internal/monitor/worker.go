package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"speed-monitor/internal/models"
)

// performCycle obtains one record and appends it to every store
func (m *Monitor) performCycle(ctx context.Context) error {
	record, err := m.retrier.Run(ctx)
	if err != nil {
		return err
	}

	for _, store := range m.stores {
		if err := store.Append(record); err != nil {
			return fmt.Errorf("persist record: %w", err)
		}
	}

	m.observer.ObserveCycle(record)
	m.logger.Debug("cycle complete",
		zap.String("outcome", string(record.Outcome())),
		zap.String("server", record.ServerName))
	m.report(record)
	return nil
}

// report writes a human-readable summary of record to the progress sink
func (m *Monitor) report(record models.MeasurementRecord) {
	if _, err := fmt.Fprintln(m.progress, progressLine(record)); err != nil {
		m.logger.Debug("progress write failed", zap.Error(err))
	}
}

func progressLine(r models.MeasurementRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ping=%s ms  dl=%s Mbps  ul=%s Mbps  server=%s %s",
		r.TimestampLocal.Format(models.TimeLayout),
		formatValue(r.PingMs),
		formatValue(r.DownloadMbps),
		formatValue(r.UploadMbps),
		r.ServerName,
		r.ServerCountry)
	if r.Error != "" {
		fmt.Fprintf(&b, "  error=%s", r.Error)
	}
	return b.String()
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
