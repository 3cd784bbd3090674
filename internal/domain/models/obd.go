package models

// OBDSample is one timestamped reading of the target PID.
type OBDSample struct {
	Timestamp float64 `json:"timestamp"`
	Value     float64 `json:"value"`
}

// PID describes an OBD-II mode-01 parameter used as a correlation target.
type PID struct {
	Code string `json:"code"` // two hex digits, e.g. "0C"
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// Mode-01 PIDs commonly used as discovery targets. Not exhaustive; the
// engine accepts any code, this table only feeds display and the CLI.
var KnownPIDs = []PID{
	{Code: "04", Name: "Engine load", Unit: "%"},
	{Code: "05", Name: "Coolant temperature", Unit: "degC"},
	{Code: "0B", Name: "Intake manifold pressure", Unit: "kPa"},
	{Code: "0C", Name: "Engine RPM", Unit: "rpm"},
	{Code: "0D", Name: "Vehicle speed", Unit: "km/h"},
	{Code: "0F", Name: "Intake air temperature", Unit: "degC"},
	{Code: "10", Name: "MAF air flow rate", Unit: "g/s"},
	{Code: "11", Name: "Throttle position", Unit: "%"},
	{Code: "2F", Name: "Fuel level", Unit: "%"},
	{Code: "42", Name: "Control module voltage", Unit: "V"},
	{Code: "46", Name: "Ambient air temperature", Unit: "degC"},
	{Code: "5C", Name: "Engine oil temperature", Unit: "degC"},
}

// LookupPID returns the catalog entry for a code, if known.
func LookupPID(code string) (PID, bool) {
	code = NormalizeCANID(code)
	for _, p := range KnownPIDs {
		if p.Code == code {
			return p, true
		}
	}
	return PID{}, false
}
