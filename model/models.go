package model

import (
	"fmt"
	"strconv"
)

// Reading is one sampled snapshot of the monitored metrics. A nil field means
// the value could not be obtained this cycle.
type Reading struct {
	Timestamp      int64    `json:"timestamp"`
	LightIntensity *int     `json:"lightIntensity"`
	SoilMoisture   *int     `json:"soilMoisture"`
	AirHumidity    *float64 `json:"airHumidity"`
	Temperature    *float64 `json:"temperature"`
}

func (r Reading) String() string {
	return fmt.Sprintf("timestamp=%d light_intensity=%s soil_moisture=%s air_humidity=%s temperature=%s",
		r.Timestamp,
		intString(r.LightIntensity),
		intString(r.SoilMoisture),
		floatString(r.AirHumidity),
		floatString(r.Temperature))
}

// Record is a stored row of the pms table.
type Record struct {
	ID             uint64   `json:"id" gorm:"primaryKey;autoIncrement"`
	Timestamp      string   `json:"timestamp"`
	LightIntensity *float64 `json:"lightIntensity"`
	SoilMoisture   *float64 `json:"soilMoisture"`
	AirHumidity    *float64 `json:"airHumidity"`
	Temperature    *float64 `json:"temperature"`
}

func (Record) TableName() string {
	return "pms"
}

func NewRecord(r Reading) Record {
	return Record{
		Timestamp:      strconv.FormatInt(r.Timestamp, 10),
		LightIntensity: intToFloat(r.LightIntensity),
		SoilMoisture:   intToFloat(r.SoilMoisture),
		AirHumidity:    r.AirHumidity,
		Temperature:    r.Temperature,
	}
}

func intToFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

func intString(v *int) string {
	if v == nil {
		return "none"
	}
	return strconv.Itoa(*v)
}

func floatString(v *float64) string {
	if v == nil {
		return "none"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}
