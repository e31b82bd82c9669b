package sensors

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ZamarianPatrick/pms/model"
)

type Sensor interface {
	Name() string
	ReadValue() (int, error)
}

// Probe is a combined humidity/temperature sensor whose driver owns the retry
// policy.
type Probe interface {
	ReadRetry(maxRetries int) (humidity, temperature float64, err error)
}

// Station samples the analog sensors and the probe of one plant.
type Station struct {
	light   Sensor
	soil    Sensor
	probe   Probe
	retries int
	logger  *slog.Logger
	now     func() time.Time
}

func NewStation(light, soil Sensor, probe Probe, retries int, logger *slog.Logger) *Station {
	return &Station{
		light:   light,
		soil:    soil,
		probe:   probe,
		retries: retries,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Station) ReadLightIntensity() *int {
	return s.read(s.light)
}

func (s *Station) ReadSoilMoisture() *int {
	return s.read(s.soil)
}

func (s *Station) read(sensor Sensor) *int {
	val, err := sensor.ReadValue()
	if err != nil {
		if errors.Is(err, ErrInvalidChannel) {
			s.logger.Error("not a valid adc channel", "sensor", sensor.Name(), "error", err)
		} else {
			s.logger.Error("failed to read sensor", "sensor", sensor.Name(), "error", err)
		}
		return nil
	}
	return &val
}

// ReadEnvironment runs one probe transaction. Both values are nil when the
// probe gave up.
func (s *Station) ReadEnvironment() (humidity, temperature *float64) {
	h, t, err := s.probe.ReadRetry(s.retries)
	if err != nil {
		s.logger.Error("failed to read humidity and temperature", "error", err)
		return nil, nil
	}
	return &h, &t
}

func (s *Station) ReadHumidity() *float64 {
	humidity, _ := s.ReadEnvironment()
	return humidity
}

func (s *Station) ReadTemperature() *float64 {
	_, temperature := s.ReadEnvironment()
	return temperature
}

// Sample reads every sensor once. Fields of failed sensors are left nil.
func (s *Station) Sample() model.Reading {
	r := model.Reading{
		Timestamp:      s.now().Unix(),
		LightIntensity: s.ReadLightIntensity(),
		SoilMoisture:   s.ReadSoilMoisture(),
	}
	r.AirHumidity, r.Temperature = s.ReadEnvironment()
	return r
}
