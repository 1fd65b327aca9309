package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"rectmon/internal/models"
)

// ErrNoData indicates the store holds no readings yet.
var ErrNoData = errors.New("repository: no data")

// Query limits. Limits requested above the cap are clamped server-side.
const (
	DefaultListLimit  = 100
	MaxListLimit      = 1000
	DefaultChartLimit = 50
	MaxChartLimit     = 200
)

// ReadingRepository persists rectifier readings in insertion order. The id
// column is the sequence id: unique, strictly increasing, and the only
// ordering key trusted for "most recent" semantics.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository returns repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

const readingColumns = `
	id, timestamp, site_name, project_id, ladder, sla,
	status_realtime, status_ladder, latitude, longitude,
	door_cabinet, battery_stolen, temperature, humidity,
	vac_input_l1, vac_input_l2, vac_input_l3, vdc_output, battery_current,
	iac_input_l1, iac_input_l2, iac_input_l3,
	load_current, load_power, pac_load_l1, pac_load_l2, pac_load_l3,
	rectifier_current, total_power,
	battery_bank_1_voltage, battery_bank_1_current, battery_bank_1_soc, battery_bank_1_soh,
	battery_bank_2_voltage, battery_bank_2_current, battery_bank_2_soc, battery_bank_2_soh,
	battery_bank_3_voltage, battery_bank_3_current, battery_bank_3_soc, battery_bank_3_soh,
	backup_duration, time_remaining, battery_status, start_backup, soc_avg,
	modules_status, created_at`

// Insert stores a new reading and assigns its sequence id and creation time.
// The write is a single statement: it either persists fully or fails.
func (r *ReadingRepository) Insert(ctx context.Context, rec *models.ReadingRecord) error {
	modules, err := json.Marshal(rec.ModulesStatus)
	if err != nil {
		return fmt.Errorf("repository: encode modules: %w", err)
	}

	const query = `
		INSERT INTO readings (
			timestamp, site_name, project_id, ladder, sla,
			status_realtime, status_ladder, latitude, longitude,
			door_cabinet, battery_stolen, temperature, humidity,
			vac_input_l1, vac_input_l2, vac_input_l3, vdc_output, battery_current,
			iac_input_l1, iac_input_l2, iac_input_l3,
			load_current, load_power, pac_load_l1, pac_load_l2, pac_load_l3,
			rectifier_current, total_power,
			battery_bank_1_voltage, battery_bank_1_current, battery_bank_1_soc, battery_bank_1_soh,
			battery_bank_2_voltage, battery_bank_2_current, battery_bank_2_soc, battery_bank_2_soh,
			battery_bank_3_voltage, battery_bank_3_current, battery_bank_3_soc, battery_bank_3_soh,
			backup_duration, time_remaining, battery_status, start_backup, soc_avg,
			modules_status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, $34, $35, $36, $37, $38, $39, $40,
			$41, $42, $43, $44, $45, $46, NOW()
		)
		RETURNING id, created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		rec.Timestamp, rec.SiteName, rec.ProjectID, rec.Ladder, rec.SLA,
		rec.StatusRealtime, rec.StatusLadder, rec.Latitude, rec.Longitude,
		rec.DoorCabinet, rec.BatteryStolen, rec.Temperature, rec.Humidity,
		rec.VacInputL1, rec.VacInputL2, rec.VacInputL3, rec.VdcOutput, rec.BatteryCurrent,
		rec.IacInputL1, rec.IacInputL2, rec.IacInputL3,
		rec.LoadCurrent, rec.LoadPower, rec.PacLoadL1, rec.PacLoadL2, rec.PacLoadL3,
		rec.RectifierCurrent, rec.TotalPower,
		rec.BatteryBanks[0].Voltage, rec.BatteryBanks[0].Current, rec.BatteryBanks[0].SOC, rec.BatteryBanks[0].SOH,
		rec.BatteryBanks[1].Voltage, rec.BatteryBanks[1].Current, rec.BatteryBanks[1].SOC, rec.BatteryBanks[1].SOH,
		rec.BatteryBanks[2].Voltage, rec.BatteryBanks[2].Current, rec.BatteryBanks[2].SOC, rec.BatteryBanks[2].SOH,
		rec.BackupDuration, rec.TimeRemaining, rec.BatteryStatus, rec.StartBackup, rec.SocAvg,
		modules,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: insert reading: %w", err)
	}
	return nil
}

// Latest returns the most recent reading by sequence id.
func (r *ReadingRepository) Latest(ctx context.Context) (*models.ReadingRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM readings ORDER BY id DESC LIMIT 1`, readingColumns)
	rec, err := scanReading(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("repository: latest reading: %w", err)
	}
	return rec, nil
}

// LatestN returns up to limit readings, most recent first. The limit is
// clamped to MaxListLimit; non-positive values fall back to the default.
func (r *ReadingRepository) LatestN(ctx context.Context, limit int) ([]models.ReadingRecord, error) {
	return r.list(ctx, clamp(limit, DefaultListLimit, MaxListLimit))
}

// ChartRange returns up to limit readings for charting, most recent first.
// The limit is clamped to MaxChartLimit.
func (r *ReadingRepository) ChartRange(ctx context.Context, limit int) ([]models.ReadingRecord, error) {
	return r.list(ctx, clamp(limit, DefaultChartLimit, MaxChartLimit))
}

func (r *ReadingRepository) list(ctx context.Context, limit int) ([]models.ReadingRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM readings ORDER BY id DESC LIMIT $1`, readingColumns)
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: list readings: %w", err)
	}
	defer rows.Close()

	readings := make([]models.ReadingRecord, 0, limit)
	for rows.Next() {
		rec, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: scan reading: %w", err)
		}
		readings = append(readings, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: list readings: %w", err)
	}
	return readings, nil
}

// Aggregate computes avg/max/min statistics over the entire stored history.
func (r *ReadingRepository) Aggregate(ctx context.Context) (*models.Stats, error) {
	const query = `
		SELECT
			COUNT(id),
			COALESCE(AVG(vdc_output), 0), COALESCE(MAX(vdc_output), 0), COALESCE(MIN(vdc_output), 0),
			COALESCE(AVG(load_current), 0), COALESCE(MAX(load_current), 0),
			COALESCE(AVG(temperature), 0), COALESCE(AVG(humidity), 0)
		FROM readings
	`
	var (
		count int64
		stats models.Stats
	)
	err := r.db.QueryRowContext(ctx, query).Scan(
		&count,
		&stats.AvgVdcOutput, &stats.MaxVdcOutput, &stats.MinVdcOutput,
		&stats.AvgLoadCurrent, &stats.MaxLoadCurrent,
		&stats.AvgTemperature, &stats.AvgHumidity,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: aggregate readings: %w", err)
	}
	if count == 0 {
		return nil, ErrNoData
	}
	return &stats, nil
}

func clamp(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (*models.ReadingRecord, error) {
	var (
		rec     models.ReadingRecord
		modules []byte
	)
	err := row.Scan(
		&rec.ID, &rec.Timestamp, &rec.SiteName, &rec.ProjectID, &rec.Ladder, &rec.SLA,
		&rec.StatusRealtime, &rec.StatusLadder, &rec.Latitude, &rec.Longitude,
		&rec.DoorCabinet, &rec.BatteryStolen, &rec.Temperature, &rec.Humidity,
		&rec.VacInputL1, &rec.VacInputL2, &rec.VacInputL3, &rec.VdcOutput, &rec.BatteryCurrent,
		&rec.IacInputL1, &rec.IacInputL2, &rec.IacInputL3,
		&rec.LoadCurrent, &rec.LoadPower, &rec.PacLoadL1, &rec.PacLoadL2, &rec.PacLoadL3,
		&rec.RectifierCurrent, &rec.TotalPower,
		&rec.BatteryBanks[0].Voltage, &rec.BatteryBanks[0].Current, &rec.BatteryBanks[0].SOC, &rec.BatteryBanks[0].SOH,
		&rec.BatteryBanks[1].Voltage, &rec.BatteryBanks[1].Current, &rec.BatteryBanks[1].SOC, &rec.BatteryBanks[1].SOH,
		&rec.BatteryBanks[2].Voltage, &rec.BatteryBanks[2].Current, &rec.BatteryBanks[2].SOC, &rec.BatteryBanks[2].SOH,
		&rec.BackupDuration, &rec.TimeRemaining, &rec.BatteryStatus, &rec.StartBackup, &rec.SocAvg,
		&modules, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(modules) > 0 {
		if err := json.Unmarshal(modules, &rec.ModulesStatus); err != nil {
			return nil, fmt.Errorf("decode modules: %w", err)
		}
	}
	if rec.ModulesStatus == nil {
		rec.ModulesStatus = []models.ModuleStatus{}
	}
	return &rec, nil
}
