// Package normalize coerces untyped rectifier telemetry payloads into typed
// reading records. The policy is lenient: a value that cannot be coerced
// falls back to the field default and the problem is reported to the caller
// instead of dropping the reading.
package normalize

import (
	"fmt"
	"strconv"

	"rectmon/internal/models"
)

// FieldError describes a payload field that failed coercion and was replaced
// by its default.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// Normalize shapes a decoded JSON object into a ReadingRecord, filling
// declared defaults for absent fields. It is a pure function: coercion
// problems are returned, never logged here.
func Normalize(raw map[string]any) (*models.ReadingRecord, []FieldError) {
	d := &decoder{raw: raw}

	rec := &models.ReadingRecord{
		Timestamp: d.timestamp("ts"),

		SiteName:       d.str("site_name", ""),
		ProjectID:      d.str("project_id", ""),
		Ladder:         d.str("ladder", ""),
		SLA:            d.str("sla", ""),
		StatusRealtime: d.str("status_realtime", "Normal"),
		StatusLadder:   d.str("status_ladder", "Normal"),
		Latitude:       d.floatPtr("latitude"),
		Longitude:      d.floatPtr("longitude"),

		DoorCabinet:   d.str("door_cabinet", "Close"),
		BatteryStolen: d.str("battery_stolen", "Close"),
		Temperature:   d.float("temperature", 0),
		Humidity:      d.float("humidity", 0),

		VacInputL1:       d.float("vac_input_l1", 0),
		VacInputL2:       d.float("vac_input_l2", 0),
		VacInputL3:       d.floatPtr("vac_input_l3"),
		VdcOutput:        d.float("vdc_output", 0),
		BatteryCurrent:   d.float("battery_current", 0),
		IacInputL1:       d.floatPtr("iac_input_l1"),
		IacInputL2:       d.floatPtr("iac_input_l2"),
		IacInputL3:       d.floatPtr("iac_input_l3"),
		LoadCurrent:      d.float("load_current", 0),
		LoadPower:        d.float("load_power", 0),
		PacLoadL1:        d.float("pac_load_l1", 0),
		PacLoadL2:        d.float("pac_load_l2", 0),
		PacLoadL3:        d.float("pac_load_l3", 0),
		RectifierCurrent: d.float("rectifier_current", 0),
		TotalPower:       d.float("total_power", 0),

		BackupDuration: d.intPtr("backup_duration"),
		TimeRemaining:  d.intPtr("time_remaining"),
		BatteryStatus:  d.str("battery_status", "Standby"),
		StartBackup:    d.str("start_backup", "No data"),
		SocAvg:         d.float("soc_avg", 100),

		ModulesStatus: d.modules("modules_status"),
	}

	for i := 0; i < 3; i++ {
		prefix := fmt.Sprintf("battery_bank_%d_", i+1)
		rec.BatteryBanks[i] = models.BatteryBank{
			Voltage: d.float(prefix+"voltage", 0),
			Current: d.float(prefix+"current", 0),
			SOC:     d.float(prefix+"soc", 100),
			SOH:     d.float(prefix+"soh", 100),
		}
	}

	return rec, d.issues
}

type decoder struct {
	raw    map[string]any
	issues []FieldError
}

func (d *decoder) fail(field, reason string) {
	d.issues = append(d.issues, FieldError{Field: field, Reason: reason})
}

// coerceFloat accepts JSON numbers and numeric strings.
func coerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func (d *decoder) float(key string, def float64) float64 {
	v, ok := d.raw[key]
	if !ok || v == nil {
		return def
	}
	f, ok := coerceFloat(v)
	if !ok {
		d.fail(key, fmt.Sprintf("cannot coerce %T to float", v))
		return def
	}
	return f
}

func (d *decoder) floatPtr(key string) *float64 {
	v, ok := d.raw[key]
	if !ok || v == nil {
		return nil
	}
	f, ok := coerceFloat(v)
	if !ok {
		d.fail(key, fmt.Sprintf("cannot coerce %T to float", v))
		return nil
	}
	return &f
}

func (d *decoder) intPtr(key string) *int {
	v, ok := d.raw[key]
	if !ok || v == nil {
		return nil
	}
	f, ok := coerceFloat(v)
	if !ok {
		d.fail(key, fmt.Sprintf("cannot coerce %T to int", v))
		return nil
	}
	n := int(f)
	return &n
}

func (d *decoder) str(key, def string) string {
	v, ok := d.raw[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		d.fail(key, fmt.Sprintf("cannot coerce %T to string", v))
		return def
	}
	return s
}

// timestamp has no default: a missing or bad ts yields the zero sentinel so
// one malformed field cannot drop an otherwise valid reading.
func (d *decoder) timestamp(key string) int64 {
	v, ok := d.raw[key]
	if !ok || v == nil {
		return 0
	}
	f, ok := coerceFloat(v)
	if !ok {
		d.fail(key, fmt.Sprintf("cannot coerce %T to timestamp", v))
		return 0
	}
	return int64(f)
}

func (d *decoder) modules(key string) []models.ModuleStatus {
	v, ok := d.raw[key]
	if !ok || v == nil {
		return []models.ModuleStatus{}
	}
	items, ok := v.([]any)
	if !ok {
		d.fail(key, fmt.Sprintf("cannot coerce %T to module list", v))
		return []models.ModuleStatus{}
	}

	modules := make([]models.ModuleStatus, 0, len(items))
	for i, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			d.fail(fmt.Sprintf("%s[%d]", key, i), "module entry is not an object")
			continue
		}
		module := models.ModuleStatus{}
		if id, ok := coerceFloat(entry["id"]); ok {
			module.ID = int(id)
		} else {
			module.ID = i + 1
		}
		if status, ok := entry["status"].(string); ok {
			module.Status = status
		}
		if value, ok := entry["value"].(string); ok {
			module.Value = value
		}
		modules = append(modules, module)
	}
	return modules
}
