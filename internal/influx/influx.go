// Package influx publishes one metrics point per run to InfluxDB. When the
// server is unreachable the point goes to a gzipped line-protocol backup
// file instead, so runs on a disconnected box still leave a trail.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/JYF/edmap/internal/model"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Measurement is the measurement name for run summary points.
const Measurement = "edmap_run"

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPIBlocking
	BackupWriter *gzip.Writer
	backupFile   *os.File
	IsValid      bool
	Logger       zerolog.Logger
	BackupPath   string
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		IsValid:    false,
		Logger:     log,
		BackupPath: backupPath,
	}
}

// Connect establishes a connection to InfluxDB.
func (m *Manager) Connect(ctx context.Context) error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClient(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)

	if err != nil || !running {
		m.IsValid = false
		// create backup writer
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to reach InfluxDB, writing to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %v", err)
			}
			m.backupFile = file
			m.BackupWriter = gzip.NewWriter(file)
		}
	} else {
		m.IsValid = true
		m.Writer = m.Client.WriteAPIBlocking(
			viper.GetString("influx.org"),
			viper.GetString("influx.bucket"),
		)
		m.Logger.Info().Msg("InfluxDB client initialized")
	}

	return nil
}

// WriteSummary writes the run summary point to InfluxDB or the backup file.
func (m *Manager) WriteSummary(ctx context.Context, sum model.Summary) error {
	point := SummaryPoint(sum, time.Now())

	if m.IsValid {
		if err := m.Writer.WritePoint(ctx, point); err != nil {
			return fmt.Errorf("error sending run summary to InfluxDB: %w", err)
		}
		return nil
	}

	if m.BackupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %s", err)
	}
	return nil
}

// Close flushes the backup writer and releases the client.
func (m *Manager) Close() error {
	var err error
	if m.BackupWriter != nil {
		err = m.BackupWriter.Close()
		if cerr := m.backupFile.Close(); err == nil {
			err = cerr
		}
	}
	if m.Client != nil {
		m.Client.Close()
	}
	return err
}

// SummaryPoint converts a run summary to an InfluxDB point.
func SummaryPoint(sum model.Summary, at time.Time) *influxdb2_write.Point {
	return influxdb2.NewPointWithMeasurement(Measurement).
		AddTag("rebuilt", fmt.Sprintf("%t", sum.Rebuilt)).
		AddField("systems", sum.Systems).
		AddField("skipped", sum.Skipped).
		AddField("total", sum.Total).
		AddField("matched", sum.Matched).
		AddField("unmatched", sum.Unmatched).
		AddField("build_ms", sum.BuildDuration.Milliseconds()).
		AddField("join_ms", sum.JoinDuration.Milliseconds()).
		SetTime(at)
}
