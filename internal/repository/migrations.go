package repository

import (
	"context"
	"database/sql"
	"fmt"
)

const migrationCreateReadings = `
CREATE TABLE IF NOT EXISTS readings (
	id BIGSERIAL PRIMARY KEY,
	timestamp BIGINT NOT NULL DEFAULT 0,
	site_name TEXT NOT NULL DEFAULT '',
	project_id TEXT NOT NULL DEFAULT '',
	ladder TEXT NOT NULL DEFAULT '',
	sla TEXT NOT NULL DEFAULT '',
	status_realtime TEXT NOT NULL DEFAULT 'Normal',
	status_ladder TEXT NOT NULL DEFAULT 'Normal',
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	door_cabinet TEXT NOT NULL DEFAULT 'Close',
	battery_stolen TEXT NOT NULL DEFAULT 'Close',
	temperature DOUBLE PRECISION NOT NULL DEFAULT 0,
	humidity DOUBLE PRECISION NOT NULL DEFAULT 0,
	vac_input_l1 DOUBLE PRECISION NOT NULL DEFAULT 0,
	vac_input_l2 DOUBLE PRECISION NOT NULL DEFAULT 0,
	vac_input_l3 DOUBLE PRECISION,
	vdc_output DOUBLE PRECISION NOT NULL DEFAULT 0,
	battery_current DOUBLE PRECISION NOT NULL DEFAULT 0,
	iac_input_l1 DOUBLE PRECISION,
	iac_input_l2 DOUBLE PRECISION,
	iac_input_l3 DOUBLE PRECISION,
	load_current DOUBLE PRECISION NOT NULL DEFAULT 0,
	load_power DOUBLE PRECISION NOT NULL DEFAULT 0,
	pac_load_l1 DOUBLE PRECISION NOT NULL DEFAULT 0,
	pac_load_l2 DOUBLE PRECISION NOT NULL DEFAULT 0,
	pac_load_l3 DOUBLE PRECISION NOT NULL DEFAULT 0,
	rectifier_current DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_power DOUBLE PRECISION NOT NULL DEFAULT 0,
	battery_bank_1_voltage DOUBLE PRECISION NOT NULL DEFAULT 0,
	battery_bank_1_current DOUBLE PRECISION NOT NULL DEFAULT 0,
	battery_bank_1_soc DOUBLE PRECISION NOT NULL DEFAULT 100,
	battery_bank_1_soh DOUBLE PRECISION NOT NULL DEFAULT 100,
	battery_bank_2_voltage DOUBLE PRECISION NOT NULL DEFAULT 0,
	battery_bank_2_current DOUBLE PRECISION NOT NULL DEFAULT 0,
	battery_bank_2_soc DOUBLE PRECISION NOT NULL DEFAULT 100,
	battery_bank_2_soh DOUBLE PRECISION NOT NULL DEFAULT 100,
	battery_bank_3_voltage DOUBLE PRECISION NOT NULL DEFAULT 0,
	battery_bank_3_current DOUBLE PRECISION NOT NULL DEFAULT 0,
	battery_bank_3_soc DOUBLE PRECISION NOT NULL DEFAULT 100,
	battery_bank_3_soh DOUBLE PRECISION NOT NULL DEFAULT 100,
	backup_duration INTEGER,
	time_remaining INTEGER,
	battery_status TEXT NOT NULL DEFAULT 'Standby',
	start_backup TEXT NOT NULL DEFAULT 'No data',
	soc_avg DOUBLE PRECISION NOT NULL DEFAULT 100,
	modules_status JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const migrationCreateReadingsIndexes = `
CREATE INDEX IF NOT EXISTS idx_readings_id_desc ON readings (id DESC);
CREATE INDEX IF NOT EXISTS idx_readings_timestamp_desc ON readings (timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_readings_created_at_desc ON readings (created_at DESC)`

// Migrate creates the readings schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	migrations := []string{
		migrationCreateReadings,
		migrationCreateReadingsIndexes,
	}
	for _, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("repository: migrate: %w", err)
		}
	}
	return nil
}
