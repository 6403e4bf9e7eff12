package models

import "fmt"

// Query is a validated forecast request. It is built once per inbound
// request and never shared.
type Query struct {
	Latitude  float64  `json:"latitude" example:"52.52"`
	Longitude float64  `json:"longitude" example:"13.41"`
	StartDate string   `json:"start_date,omitempty" example:"2024-06-01"`
	EndDate   string   `json:"end_date,omitempty" example:"2024-06-03"`
	Hourly    []string `json:"hourly,omitempty"`
	Current   []string `json:"current,omitempty"`
}

// HasDateRange reports whether either bound of the date range was given.
func (q Query) HasDateRange() bool {
	return q.StartDate != "" || q.EndDate != ""
}

func (q Query) RequestParams() string {
	return fmt.Sprintf("lat: %.4f lon: %.4f start: %q end: %q hourly: %d current: %d",
		q.Latitude, q.Longitude, q.StartDate, q.EndDate, len(q.Hourly), len(q.Current))
}
