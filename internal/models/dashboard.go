package models

// DashboardView is the nested projection consumed by the dashboard frontend.
type DashboardView struct {
	SiteInfo    DashboardSiteInfo    `json:"siteInfo"`
	Environment DashboardEnvironment `json:"environment"`
	Modules     []ModuleStatus       `json:"modules"`
	Rectifier   DashboardRectifier   `json:"rectifier"`
	Battery     DashboardBattery     `json:"battery"`
}

// DashboardSiteInfo carries site identity and location.
type DashboardSiteInfo struct {
	SiteName       string            `json:"siteName"`
	ProjectID      string            `json:"projectId"`
	Ladder         string            `json:"ladder"`
	SLA            string            `json:"sla"`
	StatusRealtime string            `json:"statusRealtime"`
	StatusLadder   string            `json:"statusLadder"`
	LastData       string            `json:"lastData"`
	Location       DashboardLocation `json:"location"`
}

// DashboardLocation renders absent coordinates as zero.
type DashboardLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DashboardEnvironment carries cabinet sensor state.
type DashboardEnvironment struct {
	DoorCabinet   string  `json:"doorCabinet"`
	BatteryStolen string  `json:"batteryStolen"`
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
}

// DashboardRectifier carries the electrical telemetry block.
type DashboardRectifier struct {
	VacInputL1       float64  `json:"vacInputL1"`
	VacInputL2       float64  `json:"vacInputL2"`
	VacInputL3       *float64 `json:"vacInputL3"`
	VdcOutput        float64  `json:"vdcOutput"`
	BatteryCurrent   float64  `json:"batteryCurrent"`
	IacInputL1       *float64 `json:"iacInputL1"`
	IacInputL2       *float64 `json:"iacInputL2"`
	IacInputL3       *float64 `json:"iacInputL3"`
	LoadCurrent      float64  `json:"loadCurrent"`
	LoadPower        float64  `json:"loadPower"`
	PacLoadL1        float64  `json:"pacLoadL1"`
	PacLoadL2        float64  `json:"pacLoadL2"`
	PacLoadL3        float64  `json:"pacLoadL3"`
	RectifierCurrent float64  `json:"rectifierCurrent"`
	TotalPower       float64  `json:"totalPower"`
}

// DashboardBatteryBank is a battery bank with its positional id.
type DashboardBatteryBank struct {
	ID      int     `json:"id"`
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	SOC     float64 `json:"soc"`
	SOH     float64 `json:"soh"`
}

// DashboardBattery summarizes the battery subsystem. Banks without a
// reported voltage are omitted.
type DashboardBattery struct {
	Banks          []DashboardBatteryBank `json:"banks"`
	BackupDuration *int                   `json:"backupDuration"`
	TimeRemaining  *int                   `json:"timeRemaining"`
	Status         string                 `json:"status"`
	StartBackup    string                 `json:"startBackup"`
	SocAvg         float64                `json:"socAvg"`
}

// Dashboard projects the record into the nested frontend shape.
func (r *ReadingRecord) Dashboard() DashboardView {
	view := DashboardView{
		SiteInfo: DashboardSiteInfo{
			SiteName:       r.SiteName,
			ProjectID:      r.ProjectID,
			Ladder:         r.Ladder,
			SLA:            r.SLA,
			StatusRealtime: r.StatusRealtime,
			StatusLadder:   r.StatusLadder,
			LastData:       r.CreatedAt.Format("2006-01-02 15:04:05"),
		},
		Environment: DashboardEnvironment{
			DoorCabinet:   r.DoorCabinet,
			BatteryStolen: r.BatteryStolen,
			Temperature:   r.Temperature,
			Humidity:      r.Humidity,
		},
		Modules: r.ModulesStatus,
		Rectifier: DashboardRectifier{
			VacInputL1:       r.VacInputL1,
			VacInputL2:       r.VacInputL2,
			VacInputL3:       r.VacInputL3,
			VdcOutput:        r.VdcOutput,
			BatteryCurrent:   r.BatteryCurrent,
			IacInputL1:       r.IacInputL1,
			IacInputL2:       r.IacInputL2,
			IacInputL3:       r.IacInputL3,
			LoadCurrent:      r.LoadCurrent,
			LoadPower:        r.LoadPower,
			PacLoadL1:        r.PacLoadL1,
			PacLoadL2:        r.PacLoadL2,
			PacLoadL3:        r.PacLoadL3,
			RectifierCurrent: r.RectifierCurrent,
			TotalPower:       r.TotalPower,
		},
		Battery: DashboardBattery{
			Banks:          []DashboardBatteryBank{},
			BackupDuration: r.BackupDuration,
			TimeRemaining:  r.TimeRemaining,
			Status:         r.BatteryStatus,
			StartBackup:    r.StartBackup,
			SocAvg:         r.SocAvg,
		},
	}

	if r.ModulesStatus == nil {
		view.Modules = []ModuleStatus{}
	}
	if r.Latitude != nil {
		view.SiteInfo.Location.Lat = *r.Latitude
	}
	if r.Longitude != nil {
		view.SiteInfo.Location.Lng = *r.Longitude
	}
	for i, bank := range r.BatteryBanks {
		if bank.Voltage <= 0 {
			continue
		}
		view.Battery.Banks = append(view.Battery.Banks, DashboardBatteryBank{
			ID:      i + 1,
			Voltage: bank.Voltage,
			Current: bank.Current,
			SOC:     bank.SOC,
			SOH:     bank.SOH,
		})
	}
	return view
}
