// Package monitor runs the acquisition loop: sample, store, sleep, repeat.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ZamarianPatrick/pms/metrics"
	"github.com/ZamarianPatrick/pms/model"
)

type Sampler interface {
	Sample() model.Reading
}

type Recorder interface {
	EnsureSchema() error
	Insert(r model.Reading) error
}

type Monitor struct {
	station  Sampler
	store    Recorder
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mutex           sync.RWMutex
	readingChannels map[string]chan model.Reading
}

func New(station Sampler, store Recorder, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Monitor {
	return &Monitor{
		station:         station,
		store:           store,
		interval:        interval,
		logger:          logger,
		metrics:         m,
		readingChannels: make(map[string]chan model.Reading),
	}
}

// Run prepares the store and then samples every interval until ctx is done.
// Store failures never stop the loop.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.store.EnsureSchema(); err != nil {
		m.logger.Warn("database not ready, readings will not be stored", "error", err)
	}

	for {
		m.RunOnce()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.interval):
		}
	}
}

// RunOnce samples all sensors, stores the reading and hands it to the
// subscribers.
func (m *Monitor) RunOnce() model.Reading {
	start := time.Now()
	r := m.station.Sample()
	m.metrics.ObserveSample(r, time.Since(start))
	m.logger.Info("sampled", "reading", r.String())

	err := m.store.Insert(r)
	m.metrics.ObserveInsert(err)

	m.publish(r)
	return r
}

func (m *Monitor) publish(r model.Reading) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for id, out := range m.readingChannels {
		select {
		case out <- r:
		default:
			m.logger.Debug("subscriber busy, reading dropped", "subscriber", id)
		}
	}
}

// ReadingChannel returns a channel receiving every new reading until ctx is
// done, then it is closed. Readings are dropped for a receiver that is not
// ready, the loop never waits.
func (m *Monitor) ReadingChannel(ctx context.Context) <-chan model.Reading {
	ch := make(chan model.Reading, 1)
	id := uuid.NewString()

	m.mutex.Lock()
	m.readingChannels[id] = ch
	m.mutex.Unlock()

	go func() {
		<-ctx.Done()
		m.mutex.Lock()
		delete(m.readingChannels, id)
		close(ch)
		m.mutex.Unlock()

		m.logger.Debug("subscriber closed", "subscriber", id)
	}()

	return ch
}

func (m *Monitor) Subscribers() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.readingChannels)
}
