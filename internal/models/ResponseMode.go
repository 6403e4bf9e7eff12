package models

import "fmt"

// ResponseMode selects how the upstream payload is shaped before it is
// returned. It is fixed for the lifetime of the process.
type ResponseMode string

const (
	// ResponseModeRaw passes the upstream body through unchanged.
	ResponseModeRaw ResponseMode = "raw"
	// ResponseModeCurrent returns latitude, longitude and the current block.
	ResponseModeCurrent ResponseMode = "current"
	// ResponseModeSummary returns temperature, windspeed, winddirection and weathercode.
	ResponseModeSummary ResponseMode = "summary"
)

func ParseResponseMode(s string) (ResponseMode, error) {
	switch m := ResponseMode(s); m {
	case ResponseModeRaw, ResponseModeCurrent, ResponseModeSummary:
		return m, nil
	case "":
		return ResponseModeRaw, nil
	default:
		return "", fmt.Errorf("unknown response mode %q", s)
	}
}

// NeedsCurrentWeather reports whether the projection reads the upstream
// current_weather block.
func (m ResponseMode) NeedsCurrentWeather() bool {
	return m == ResponseModeSummary
}
