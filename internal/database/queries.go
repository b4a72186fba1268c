package database

import (
	"database/sql"
	"fmt"
	"time"

	"speed-monitor/internal/models"
)

// Append saves a measurement record
func (db *DB) Append(record models.MeasurementRecord) error {
	query := `
        INSERT INTO measurements (
            run_id, timestamp_utc, timestamp_local,
            server_id, server_name, server_country, server_sponsor,
            ping_ms, download_mbps, upload_mbps, bytes_received, bytes_sent, error
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := db.Exec(query,
		db.runID,
		record.TimestampUTC.Format(models.TimeLayout),
		record.TimestampLocal.Format(models.TimeLayout),
		record.ServerID,
		record.ServerName,
		record.ServerCountry,
		record.ServerSponsor,
		record.PingMs,
		record.DownloadMbps,
		record.UploadMbps,
		record.BytesReceived,
		record.BytesSent,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	return nil
}

// GetRecent retrieves the most recent records, newest first
func (db *DB) GetRecent(limit int) ([]models.MeasurementRecord, error) {
	query := `
        SELECT timestamp_utc, timestamp_local, server_id, server_name, server_country,
               server_sponsor, ping_ms, download_mbps, upload_mbps, bytes_received,
               bytes_sent, error
        FROM measurements
        ORDER BY id DESC
        LIMIT ?
    `

	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.MeasurementRecord
	for rows.Next() {
		var (
			r              models.MeasurementRecord
			utc, local     string
			ping, down, up sql.NullFloat64
			received, sent sql.NullInt64
		)
		err := rows.Scan(&utc, &local, &r.ServerID, &r.ServerName, &r.ServerCountry,
			&r.ServerSponsor, &ping, &down, &up, &received, &sent, &r.Error)
		if err != nil {
			return nil, err
		}
		if r.TimestampUTC, err = time.Parse(models.TimeLayout, utc); err != nil {
			return nil, fmt.Errorf("timestamp_utc: %w", err)
		}
		if r.TimestampLocal, err = time.Parse(models.TimeLayout, local); err != nil {
			return nil, fmt.Errorf("timestamp_local: %w", err)
		}
		r.PingMs = nullFloat(ping)
		r.DownloadMbps = nullFloat(down)
		r.UploadMbps = nullFloat(up)
		r.BytesReceived = nullInt(received)
		r.BytesSent = nullInt(sent)
		records = append(records, r)
	}

	return records, rows.Err()
}

// Count returns the number of mirrored records, optionally limited to one run
func (db *DB) Count(runID string) (int, error) {
	var n int
	var err error
	if runID == "" {
		err = db.QueryRow(`SELECT COUNT(*) FROM measurements`).Scan(&n)
	} else {
		err = db.QueryRow(`SELECT COUNT(*) FROM measurements WHERE run_id = ?`, runID).Scan(&n)
	}
	return n, err
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
