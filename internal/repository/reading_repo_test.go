package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rectmon/internal/models"
)

var readingColumnNames = []string{
	"id", "timestamp", "site_name", "project_id", "ladder", "sla",
	"status_realtime", "status_ladder", "latitude", "longitude",
	"door_cabinet", "battery_stolen", "temperature", "humidity",
	"vac_input_l1", "vac_input_l2", "vac_input_l3", "vdc_output", "battery_current",
	"iac_input_l1", "iac_input_l2", "iac_input_l3",
	"load_current", "load_power", "pac_load_l1", "pac_load_l2", "pac_load_l3",
	"rectifier_current", "total_power",
	"battery_bank_1_voltage", "battery_bank_1_current", "battery_bank_1_soc", "battery_bank_1_soh",
	"battery_bank_2_voltage", "battery_bank_2_current", "battery_bank_2_soc", "battery_bank_2_soh",
	"battery_bank_3_voltage", "battery_bank_3_current", "battery_bank_3_soc", "battery_bank_3_soh",
	"backup_duration", "time_remaining", "battery_status", "start_backup", "soc_avg",
	"modules_status", "created_at",
}

func newMockRepo(t *testing.T) (*ReadingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewReadingRepository(db), mock
}

func fullRow(createdAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(readingColumnNames).AddRow(
		int64(42), int64(1717000000000), "BTS-014", "P-77", "L2", "Gold",
		"Alarm", "Degraded", -6.2, 106.8,
		"Open", "Close", 31.5, 70.2,
		220.1, 219.8, nil, 53.9, -3.1,
		9.8, nil, nil,
		28.4, 1531.2, 510.4, 0.0, 0.0,
		30.2, 1650.8,
		53.8, -1.2, 97.5, 92.0,
		0.0, 0.0, 100.0, 100.0,
		0.0, 0.0, 100.0, 100.0,
		240, nil, "Discharging", "2024-05-29 17:00:00", 96.4,
		[]byte(`[{"id":1,"status":"Fault","value":"LK23290"}]`), createdAt,
	)
}

func TestInsertAssignsSequenceIDAndCreationTime(t *testing.T) {
	repo, mock := newMockRepo(t)

	created := time.Date(2024, 5, 29, 17, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO readings").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	rec := &models.ReadingRecord{Timestamp: 1000, SiteName: "A", ModulesStatus: []models.ModuleStatus{}}
	require.NoError(t, repo.Insert(context.Background(), rec))

	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, created, rec.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertWrapsDatabaseError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO readings").
		WillReturnError(sql.ErrConnDone)

	err := repo.Insert(context.Background(), &models.ReadingRecord{SiteName: "A"})
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "insert reading")
}

func TestLatestReturnsFullRecord(t *testing.T) {
	repo, mock := newMockRepo(t)

	created := time.Date(2024, 5, 29, 17, 0, 1, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM readings ORDER BY id DESC LIMIT 1").
		WillReturnRows(fullRow(created))

	rec, err := repo.Latest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(42), rec.ID)
	assert.Equal(t, int64(1717000000000), rec.Timestamp)
	assert.Equal(t, "BTS-014", rec.SiteName)
	assert.Equal(t, "Alarm", rec.StatusRealtime)
	require.NotNil(t, rec.Latitude)
	assert.Equal(t, -6.2, *rec.Latitude)
	assert.Nil(t, rec.VacInputL3, "database NULL must stay nil")
	require.NotNil(t, rec.IacInputL1)
	assert.Equal(t, 9.8, *rec.IacInputL1)
	assert.Nil(t, rec.IacInputL2)
	assert.Equal(t, 53.8, rec.BatteryBanks[0].Voltage)
	assert.Equal(t, 100.0, rec.BatteryBanks[2].SOH)
	require.NotNil(t, rec.BackupDuration)
	assert.Equal(t, 240, *rec.BackupDuration)
	assert.Nil(t, rec.TimeRemaining)
	assert.Equal(t, created, rec.CreatedAt)

	require.Len(t, rec.ModulesStatus, 1)
	assert.Equal(t, models.ModuleStatus{ID: 1, Status: "Fault", Value: "LK23290"}, rec.ModulesStatus[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestEmptyStoreReturnsErrNoData(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM readings ORDER BY id DESC LIMIT 1").
		WillReturnError(sql.ErrNoRows)

	rec, err := repo.Latest(context.Background())
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestLatestNilModulesScansToEmptySlice(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM readings ORDER BY id DESC LIMIT 1").
		WillReturnRows(sqlmock.NewRows(readingColumnNames).AddRow(
			int64(1), int64(1), "A", "", "", "",
			"Normal", "Normal", nil, nil,
			"Close", "Close", 0.0, 0.0,
			0.0, 0.0, nil, 0.0, 0.0,
			nil, nil, nil,
			0.0, 0.0, 0.0, 0.0, 0.0,
			0.0, 0.0,
			0.0, 0.0, 100.0, 100.0,
			0.0, 0.0, 100.0, 100.0,
			0.0, 0.0, 100.0, 100.0,
			nil, nil, "Standby", "No data", 100.0,
			nil, time.Now(),
		))

	rec, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rec.ModulesStatus)
	assert.Empty(t, rec.ModulesStatus)
}

func TestLatestNClampsOversizedLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM readings ORDER BY id DESC LIMIT \\$1").
		WithArgs(MaxListLimit).
		WillReturnRows(sqlmock.NewRows(readingColumnNames))

	readings, err := repo.LatestN(context.Background(), 5000)
	require.NoError(t, err)
	assert.Empty(t, readings)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestNDefaultsNonPositiveLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM readings ORDER BY id DESC LIMIT \\$1").
		WithArgs(DefaultListLimit).
		WillReturnRows(sqlmock.NewRows(readingColumnNames))

	_, err := repo.LatestN(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChartRangeClampsToChartMax(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM readings ORDER BY id DESC LIMIT \\$1").
		WithArgs(MaxChartLimit).
		WillReturnRows(sqlmock.NewRows(readingColumnNames))

	_, err := repo.ChartRange(context.Background(), 999)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateEmptyStoreReturnsErrNoData(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{
			"count", "avg_vdc", "max_vdc", "min_vdc",
			"avg_load", "max_load", "avg_temp", "avg_hum",
		}).AddRow(int64(0), 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0))

	stats, err := repo.Aggregate(context.Background())
	assert.Nil(t, stats)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestAggregateReturnsStatistics(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{
			"count", "avg_vdc", "max_vdc", "min_vdc",
			"avg_load", "max_load", "avg_temp", "avg_hum",
		}).AddRow(int64(12), 53.7, 54.6, 52.1, 21.4, 30.2, 29.8, 64.5))

	stats, err := repo.Aggregate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 53.7, stats.AvgVdcOutput)
	assert.Equal(t, 54.6, stats.MaxVdcOutput)
	assert.Equal(t, 52.1, stats.MinVdcOutput)
	assert.Equal(t, 21.4, stats.AvgLoadCurrent)
	assert.Equal(t, 30.2, stats.MaxLoadCurrent)
	assert.Equal(t, 29.8, stats.AvgTemperature)
	assert.Equal(t, 64.5, stats.AvgHumidity)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, DefaultListLimit, clamp(0, DefaultListLimit, MaxListLimit))
	assert.Equal(t, DefaultListLimit, clamp(-3, DefaultListLimit, MaxListLimit))
	assert.Equal(t, 250, clamp(250, DefaultListLimit, MaxListLimit))
	assert.Equal(t, MaxListLimit, clamp(MaxListLimit+1, DefaultListLimit, MaxListLimit))
}
