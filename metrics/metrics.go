package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ZamarianPatrick/pms/model"
)

const namespace = "pms"

// Metrics describes the acquisition loop.
type Metrics struct {
	SamplesTotal      prometheus.Counter
	SensorErrorsTotal *prometheus.CounterVec
	InsertsTotal      *prometheus.CounterVec
	LastValue         *prometheus.GaugeVec
	LastSampleTime    prometheus.Gauge
	SampleDuration    prometheus.Histogram
}

// New creates the loop metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SamplesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "samples_total",
				Help:      "Total number of sampled readings",
			},
		),
		SensorErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sensor_errors_total",
				Help:      "Total number of readings with a missing value",
			},
			[]string{"metric"},
		),
		InsertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "inserts_total",
				Help:      "Total number of insert attempts",
			},
			[]string{"status"}, // status: success, error
		),
		LastValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_value",
				Help:      "Last valid value of each metric",
			},
			[]string{"metric"},
		),
		LastSampleTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_sample_timestamp_seconds",
				Help:      "Timestamp of the last sampled reading",
			},
		),
		SampleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sample_duration_seconds",
				Help:      "Time spent reading all sensors once",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
	}

	reg.MustRegister(
		m.SamplesTotal,
		m.SensorErrorsTotal,
		m.InsertsTotal,
		m.LastValue,
		m.LastSampleTime,
		m.SampleDuration,
	)

	return m
}

// ObserveSample records a reading and how long it took to sample.
func (m *Metrics) ObserveSample(r model.Reading, took time.Duration) {
	m.SamplesTotal.Inc()
	m.SampleDuration.Observe(took.Seconds())
	m.LastSampleTime.Set(float64(r.Timestamp))

	m.observeInt("light_intensity", r.LightIntensity)
	m.observeInt("soil_moisture", r.SoilMoisture)
	m.observeFloat("air_humidity", r.AirHumidity)
	m.observeFloat("temperature", r.Temperature)
}

func (m *Metrics) ObserveInsert(err error) {
	if err != nil {
		m.InsertsTotal.WithLabelValues("error").Inc()
		return
	}
	m.InsertsTotal.WithLabelValues("success").Inc()
}

func (m *Metrics) observeInt(metric string, v *int) {
	if v == nil {
		m.SensorErrorsTotal.WithLabelValues(metric).Inc()
		return
	}
	m.LastValue.WithLabelValues(metric).Set(float64(*v))
}

func (m *Metrics) observeFloat(metric string, v *float64) {
	if v == nil {
		m.SensorErrorsTotal.WithLabelValues(metric).Inc()
		return
	}
	m.LastValue.WithLabelValues(metric).Set(*v)
}
