package types

import "time"

// DateLayout is the textual form of Measurement.Date in CSV input and in the store.
const DateLayout = "2006-01-02"

type Station struct {
	ID        int64   `json:"id"`
	Code      string  `json:"station"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	State     *string `json:"state,omitempty"`
}

// Measurement is one daily observation. StationCode refers to Station.Code.
type Measurement struct {
	ID          int64     `json:"id"`
	StationCode string    `json:"station"`
	Date        time.Time `json:"date"`
	Precip      float64   `json:"precip"`
	Tobs        float64   `json:"tobs"`
}
