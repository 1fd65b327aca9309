package models

import "time"

// ModuleStatus describes one discrete rectifier module reported by the site.
// The number of modules and their ids are producer-defined.
type ModuleStatus struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
	Value  string `json:"value"`
}

// BatteryBank holds telemetry for a single battery string.
type BatteryBank struct {
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	SOC     float64 `json:"soc"`
	SOH     float64 `json:"soh"`
}

// ReadingRecord represents a single normalized rectifier telemetry sample.
// ID is the storage-assigned sequence id; Timestamp is producer-supplied
// epoch milliseconds and is not trusted for ordering.
type ReadingRecord struct {
	ID        int64 `json:"id"`
	Timestamp int64 `json:"timestamp"`

	// Site info
	SiteName       string   `json:"site_name"`
	ProjectID      string   `json:"project_id"`
	Ladder         string   `json:"ladder"`
	SLA            string   `json:"sla"`
	StatusRealtime string   `json:"status_realtime"`
	StatusLadder   string   `json:"status_ladder"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`

	// Environment
	DoorCabinet   string  `json:"door_cabinet"`
	BatteryStolen string  `json:"battery_stolen"`
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`

	// Rectifier electrical telemetry
	VacInputL1       float64  `json:"vac_input_l1"`
	VacInputL2       float64  `json:"vac_input_l2"`
	VacInputL3       *float64 `json:"vac_input_l3"`
	VdcOutput        float64  `json:"vdc_output"`
	BatteryCurrent   float64  `json:"battery_current"`
	IacInputL1       *float64 `json:"iac_input_l1"`
	IacInputL2       *float64 `json:"iac_input_l2"`
	IacInputL3       *float64 `json:"iac_input_l3"`
	LoadCurrent      float64  `json:"load_current"`
	LoadPower        float64  `json:"load_power"`
	PacLoadL1        float64  `json:"pac_load_l1"`
	PacLoadL2        float64  `json:"pac_load_l2"`
	PacLoadL3        float64  `json:"pac_load_l3"`
	RectifierCurrent float64  `json:"rectifier_current"`
	TotalPower       float64  `json:"total_power"`

	// Battery banks 1..3
	BatteryBanks [3]BatteryBank `json:"battery_banks"`

	// Battery summary
	BackupDuration *int    `json:"backup_duration"`
	TimeRemaining  *int    `json:"time_remaining"`
	BatteryStatus  string  `json:"battery_status"`
	StartBackup    string  `json:"start_backup"`
	SocAvg         float64 `json:"soc_avg"`

	ModulesStatus []ModuleStatus `json:"modules_status"`

	CreatedAt time.Time `json:"created_at"`
}

// Summary returns the reduced live-ticker projection broadcast to sessions.
func (r *ReadingRecord) Summary() ReadingSummary {
	return ReadingSummary{
		Timestamp:      r.Timestamp,
		SiteName:       r.SiteName,
		VdcOutput:      r.VdcOutput,
		LoadCurrent:    r.LoadCurrent,
		Temperature:    r.Temperature,
		StatusRealtime: r.StatusRealtime,
	}
}

// ReadingSummary is the reduced projection fanned out to live subscribers.
type ReadingSummary struct {
	Timestamp      int64   `json:"timestamp"`
	SiteName       string  `json:"site_name"`
	VdcOutput      float64 `json:"vdc_output"`
	LoadCurrent    float64 `json:"load_current"`
	Temperature    float64 `json:"temperature"`
	StatusRealtime string  `json:"status_realtime"`
}

// Stats aggregates numeric fields over the entire stored history.
type Stats struct {
	AvgVdcOutput   float64 `json:"avg_vdc_output"`
	MaxVdcOutput   float64 `json:"max_vdc_output"`
	MinVdcOutput   float64 `json:"min_vdc_output"`
	AvgLoadCurrent float64 `json:"avg_load_current"`
	MaxLoadCurrent float64 `json:"max_load_current"`
	AvgTemperature float64 `json:"avg_temperature"`
	AvgHumidity    float64 `json:"avg_humidity"`
}

// ChartSeries holds parallel arrays in ascending time order for charting.
type ChartSeries struct {
	Timestamps  []int64   `json:"timestamps"`
	VdcOutput   []float64 `json:"vdc_output"`
	LoadCurrent []float64 `json:"load_current"`
	Temperature []float64 `json:"temperature"`
	Humidity    []float64 `json:"humidity"`
}
