package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the timestamp format used in the log, RFC 3339 with microseconds
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// FatalPrefix marks records of cycles where every attempt failed
const FatalPrefix = "fatal:"

// Columns is the fixed header of the measurement log
var Columns = []string{
	"timestamp_utc",
	"timestamp_local",
	"server_id",
	"server_name",
	"server_country",
	"server_sponsor",
	"ping_ms",
	"download_Mbps",
	"upload_Mbps",
	"bytes_received",
	"bytes_sent",
	"error",
}

// Outcome classifies a completed cycle
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFatal   Outcome = "fatal"
)

// Result is what the measurement collaborator returns for a completed attempt.
// A non-empty Error means the server was reached but a later step failed.
type Result struct {
	ServerID      string
	ServerName    string
	ServerCountry string
	ServerSponsor string
	PingMs        *float64
	DownloadMbps  *float64
	UploadMbps    *float64
	BytesReceived *int64
	BytesSent     *int64
	Error         string
}

// MeasurementRecord is one row of the measurement log
type MeasurementRecord struct {
	TimestampUTC   time.Time `json:"timestamp_utc"`
	TimestampLocal time.Time `json:"timestamp_local"`
	ServerID       string    `json:"server_id"`
	ServerName     string    `json:"server_name"`
	ServerCountry  string    `json:"server_country"`
	ServerSponsor  string    `json:"server_sponsor"`
	PingMs         *float64  `json:"ping_ms"`
	DownloadMbps   *float64  `json:"download_mbps"`
	UploadMbps     *float64  `json:"upload_mbps"`
	BytesReceived  *int64    `json:"bytes_received"`
	BytesSent      *int64    `json:"bytes_sent"`
	Error          string    `json:"error"`
}

// Timestamps returns the UTC and local capture instants for now, truncated to
// the precision of TimeLayout.
func Timestamps(now time.Time) (utc, local time.Time) {
	now = now.Truncate(time.Microsecond)
	return now.UTC(), now.Local()
}

// NewRecord builds a record from a completed attempt
func NewRecord(utc, local time.Time, res Result) MeasurementRecord {
	return MeasurementRecord{
		TimestampUTC:   utc,
		TimestampLocal: local,
		ServerID:       res.ServerID,
		ServerName:     res.ServerName,
		ServerCountry:  res.ServerCountry,
		ServerSponsor:  res.ServerSponsor,
		PingMs:         res.PingMs,
		DownloadMbps:   roundMbps(res.DownloadMbps),
		UploadMbps:     roundMbps(res.UploadMbps),
		BytesReceived:  res.BytesReceived,
		BytesSent:      res.BytesSent,
		Error:          res.Error,
	}
}

// NewFatalRecord builds the record of a cycle whose attempts all failed
func NewFatalRecord(utc, local time.Time, cause string) MeasurementRecord {
	return MeasurementRecord{
		TimestampUTC:   utc,
		TimestampLocal: local,
		Error:          FatalPrefix + cause,
	}
}

// Outcome reports how the cycle that produced r ended
func (r MeasurementRecord) Outcome() Outcome {
	switch {
	case r.Error == "":
		return OutcomeSuccess
	case strings.HasPrefix(r.Error, FatalPrefix):
		return OutcomeFatal
	default:
		return OutcomePartial
	}
}

// Row serializes r in Columns order
func (r MeasurementRecord) Row() []string {
	return []string{
		r.TimestampUTC.Format(TimeLayout),
		r.TimestampLocal.Format(TimeLayout),
		r.ServerID,
		r.ServerName,
		r.ServerCountry,
		r.ServerSponsor,
		formatFloat(r.PingMs),
		formatFloat(r.DownloadMbps),
		formatFloat(r.UploadMbps),
		formatInt(r.BytesReceived),
		formatInt(r.BytesSent),
		r.Error,
	}
}

// ParseRow is the inverse of Row
func ParseRow(row []string) (MeasurementRecord, error) {
	if len(row) != len(Columns) {
		return MeasurementRecord{}, fmt.Errorf("expected %d fields, got %d", len(Columns), len(row))
	}

	var (
		r   MeasurementRecord
		err error
	)
	if r.TimestampUTC, err = time.Parse(TimeLayout, row[0]); err != nil {
		return r, fmt.Errorf("timestamp_utc: %w", err)
	}
	if r.TimestampLocal, err = time.Parse(TimeLayout, row[1]); err != nil {
		return r, fmt.Errorf("timestamp_local: %w", err)
	}
	r.ServerID, r.ServerName, r.ServerCountry, r.ServerSponsor = row[2], row[3], row[4], row[5]
	if r.PingMs, err = parseFloat(row[6]); err != nil {
		return r, fmt.Errorf("ping_ms: %w", err)
	}
	if r.DownloadMbps, err = parseFloat(row[7]); err != nil {
		return r, fmt.Errorf("download_Mbps: %w", err)
	}
	if r.UploadMbps, err = parseFloat(row[8]); err != nil {
		return r, fmt.Errorf("upload_Mbps: %w", err)
	}
	if r.BytesReceived, err = parseInt(row[9]); err != nil {
		return r, fmt.Errorf("bytes_received: %w", err)
	}
	if r.BytesSent, err = parseInt(row[10]); err != nil {
		return r, fmt.Errorf("bytes_sent: %w", err)
	}
	r.Error = row[11]
	return r, nil
}

func roundMbps(v *float64) *float64 {
	if v == nil {
		return nil
	}
	rounded := math.Round(*v*1000) / 1000
	return &rounded
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func parseFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseInt(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
