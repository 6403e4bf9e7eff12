package forecast

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"weather-proxy/internal/models"
)

// CurrentResponse is the ResponseModeCurrent shape.
type CurrentResponse struct {
	Latitude       json.RawMessage `json:"latitude" swaggertype:"number" example:"52.52"`
	Longitude      json.RawMessage `json:"longitude" swaggertype:"number" example:"13.419998"`
	CurrentWeather json.RawMessage `json:"current_weather" swaggertype:"object"`
}

// SummaryResponse is the ResponseModeSummary shape.
type SummaryResponse struct {
	Temperature   json.RawMessage `json:"temperature" swaggertype:"number" example:"17.3"`
	Windspeed     json.RawMessage `json:"windspeed" swaggertype:"number" example:"9.4"`
	Winddirection json.RawMessage `json:"winddirection" swaggertype:"number" example:"253"`
	Weathercode   json.RawMessage `json:"weathercode" swaggertype:"integer" example:"3"`
}

type upstreamBody struct {
	Latitude       json.RawMessage `json:"latitude"`
	Longitude      json.RawMessage `json:"longitude"`
	Current        json.RawMessage `json:"current"`
	CurrentWeather json.RawMessage `json:"current_weather"`
}

// Project shapes an upstream body. Values are copied as raw JSON so numbers
// keep the exact formatting upstream used.
func Project(mode models.ResponseMode, body json.RawMessage) (json.RawMessage, error) {
	switch mode {
	case models.ResponseModeRaw, "":
		return body, nil
	case models.ResponseModeCurrent:
		return projectCurrent(body)
	case models.ResponseModeSummary:
		return projectSummary(body)
	default:
		return nil, fmt.Errorf("unknown response mode %q", mode)
	}
}

func projectCurrent(body json.RawMessage) (json.RawMessage, error) {
	var up upstreamBody
	if err := json.Unmarshal(body, &up); err != nil {
		return nil, protocolError(errors.Wrap(err, "decode upstream body"))
	}

	current := up.Current
	if isAbsent(current) {
		current = up.CurrentWeather
	}
	if isAbsent(current) {
		return nil, protocolError(errors.New("upstream body has no current conditions"))
	}

	return marshal(CurrentResponse{
		Latitude:       orNull(up.Latitude),
		Longitude:      orNull(up.Longitude),
		CurrentWeather: current,
	})
}

func projectSummary(body json.RawMessage) (json.RawMessage, error) {
	var up upstreamBody
	if err := json.Unmarshal(body, &up); err != nil {
		return nil, protocolError(errors.Wrap(err, "decode upstream body"))
	}
	if isAbsent(up.CurrentWeather) {
		return nil, protocolError(errors.New("upstream body has no current_weather"))
	}

	var cw struct {
		Temperature   json.RawMessage `json:"temperature"`
		Windspeed     json.RawMessage `json:"windspeed"`
		Winddirection json.RawMessage `json:"winddirection"`
		Weathercode   json.RawMessage `json:"weathercode"`
	}
	if err := json.Unmarshal(up.CurrentWeather, &cw); err != nil {
		return nil, protocolError(errors.Wrap(err, "decode current_weather"))
	}

	return marshal(SummaryResponse{
		Temperature:   orNull(cw.Temperature),
		Windspeed:     orNull(cw.Windspeed),
		Winddirection: orNull(cw.Winddirection),
		Weathercode:   orNull(cw.Weathercode),
	})
}

func marshal(v any) (json.RawMessage, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, protocolError(errors.Wrap(err, "encode projection"))
	}
	return out, nil
}

func protocolError(err error) error {
	return &models.UpstreamProtocolError{Err: err}
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// orNull keeps a missing field as an explicit null instead of an invalid
// empty RawMessage.
func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
