package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryProjection(t *testing.T) {
	rec := &ReadingRecord{
		ID:             12,
		Timestamp:      1717000000000,
		SiteName:       "BTS-014",
		VdcOutput:      54.2,
		LoadCurrent:    21.3,
		Temperature:    30.1,
		StatusRealtime: "Alarm",
		Humidity:       64.0,
	}

	summary := rec.Summary()

	assert.Equal(t, ReadingSummary{
		Timestamp:      1717000000000,
		SiteName:       "BTS-014",
		VdcOutput:      54.2,
		LoadCurrent:    21.3,
		Temperature:    30.1,
		StatusRealtime: "Alarm",
	}, summary)
}

func TestDashboardProjection(t *testing.T) {
	lat, lng := -6.2, 106.8
	backup := 240
	rec := &ReadingRecord{
		SiteName:       "BTS-014",
		ProjectID:      "P-77",
		StatusRealtime: "Normal",
		Latitude:       &lat,
		Longitude:      &lng,
		DoorCabinet:    "Open",
		Temperature:    31.5,
		VdcOutput:      53.9,
		BackupDuration: &backup,
		BatteryStatus:  "Discharging",
		SocAvg:         96.4,
		CreatedAt:      time.Date(2024, 5, 29, 17, 0, 0, 0, time.UTC),
		ModulesStatus: []ModuleStatus{
			{ID: 1, Status: "Fault", Value: "LK23290"},
		},
		BatteryBanks: [3]BatteryBank{
			{Voltage: 53.8, Current: -1.2, SOC: 97.5, SOH: 92.0},
			{Voltage: 0, SOC: 100, SOH: 100},
			{Voltage: 52.9, SOC: 95.0, SOH: 90.0},
		},
	}

	view := rec.Dashboard()

	assert.Equal(t, "BTS-014", view.SiteInfo.SiteName)
	assert.Equal(t, "2024-05-29 17:00:00", view.SiteInfo.LastData)
	assert.Equal(t, -6.2, view.SiteInfo.Location.Lat)
	assert.Equal(t, 106.8, view.SiteInfo.Location.Lng)
	assert.Equal(t, "Open", view.Environment.DoorCabinet)
	assert.Equal(t, 53.9, view.Rectifier.VdcOutput)
	assert.Equal(t, "Discharging", view.Battery.Status)
	require.NotNil(t, view.Battery.BackupDuration)
	assert.Equal(t, 240, *view.Battery.BackupDuration)

	// Bank 2 has no voltage and is omitted; ids stay positional.
	require.Len(t, view.Battery.Banks, 2)
	assert.Equal(t, 1, view.Battery.Banks[0].ID)
	assert.Equal(t, 53.8, view.Battery.Banks[0].Voltage)
	assert.Equal(t, 3, view.Battery.Banks[1].ID)

	require.Len(t, view.Modules, 1)
	assert.Equal(t, "Fault", view.Modules[0].Status)
}

func TestDashboardProjectionWithAbsentOptionals(t *testing.T) {
	rec := &ReadingRecord{SiteName: "A"}

	view := rec.Dashboard()

	assert.Zero(t, view.SiteInfo.Location.Lat, "missing latitude renders as zero")
	assert.Zero(t, view.SiteInfo.Location.Lng)
	assert.Nil(t, view.Battery.BackupDuration)
	assert.NotNil(t, view.Modules)
	assert.Empty(t, view.Modules)
	assert.Empty(t, view.Battery.Banks)
}
