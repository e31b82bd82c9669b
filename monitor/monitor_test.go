package monitor_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/ZamarianPatrick/pms/config"
	"github.com/ZamarianPatrick/pms/metrics"
	"github.com/ZamarianPatrick/pms/model"
	"github.com/ZamarianPatrick/pms/monitor"
	"github.com/ZamarianPatrick/pms/sensors"
	"github.com/ZamarianPatrick/pms/store"
)

type failingRecorder struct {
	inserts int
}

func (f *failingRecorder) EnsureSchema() error {
	return errors.New("read-only file system")
}

func (f *failingRecorder) Insert(model.Reading) error {
	f.inserts++
	return errors.New("read-only file system")
}

var _ = Describe("Monitor", func() {
	var (
		logger *slog.Logger
		cfg    config.Config
		m      *metrics.Metrics
		probe  *sensors.ProbeFake
		db     *store.Store
	)

	// adcFor plays back one zero sample per configured channel and sample.
	adcFor := func(samples int) (*sensors.MCP3008, *spitest.Playback) {
		var ops []conntest.IO
		for i := 0; i < samples; i++ {
			for _, channel := range []int{cfg.ADCChannel.LightIntensity, cfg.ADCChannel.SoilMoisture} {
				ops = append(ops, conntest.IO{W: []byte{0x01, byte(8+channel) << 4, 0x00}, R: []byte{0, 0, 0}})
			}
		}
		pb := &spitest.Playback{Playback: conntest.Playback{Ops: ops, DontPanic: true}}
		adc, err := sensors.NewMCP3008(pb, physic.MegaHertz)
		Expect(err).NotTo(HaveOccurred())
		return adc, pb
	}

	stationFor := func(adc *sensors.MCP3008) *sensors.Station {
		return sensors.NewStation(
			sensors.NewAnalog(adc, sensors.LightIntensity, cfg.ADCChannel.LightIntensity),
			sensors.NewAnalog(adc, sensors.SoilMoisture, cfg.ADCChannel.SoilMoisture),
			probe,
			cfg.Probe.Retries,
			logger,
		)
	}

	BeforeEach(func() {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError + 1,
		}))

		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "pms.json")
		Expect(os.WriteFile(path, []byte(`{"sleep": 0, "adc_channel": {"soil_moisture": 1, "light_intensity": 0}}`), 0o644)).To(Succeed())

		var err error
		cfg, err = config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		cfg.DatabaseName = filepath.Join(dir, cfg.DatabaseName)

		m = metrics.New(prometheus.NewRegistry())
		probe = sensors.NewProbeFake(55.0, 21.5)
		db = store.New(cfg.DatabaseName, logger)
		Expect(db.EnsureSchema()).To(Succeed())
	})

	Describe("RunOnce", func() {
		It("should store exactly one row per iteration", func() {
			adc, pb := adcFor(1)
			mon := monitor.New(stationFor(adc), db, cfg.Interval(), logger, m)

			r := mon.RunOnce()
			Expect(*r.LightIntensity).To(Equal(100))
			Expect(*r.SoilMoisture).To(Equal(100))
			Expect(*r.AirHumidity).To(Equal(55.0))
			Expect(*r.Temperature).To(Equal(21.5))
			Expect(pb.Close()).To(Succeed())

			records, err := db.Latest(10)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(*records[0].LightIntensity).To(Equal(100.0))
			Expect(*records[0].SoilMoisture).To(Equal(100.0))
			Expect(*records[0].AirHumidity).To(Equal(55.0))
			Expect(*records[0].Temperature).To(Equal(21.5))

			Expect(testutil.ToFloat64(m.InsertsTotal.WithLabelValues("success"))).To(Equal(1.0))
		})

		It("should still store the row when the probe gives up", func() {
			adc, _ := adcFor(1)
			probe.SetFailing(true)
			mon := monitor.New(stationFor(adc), db, cfg.Interval(), logger, m)

			r := mon.RunOnce()
			Expect(r.LightIntensity).NotTo(BeNil())
			Expect(r.SoilMoisture).NotTo(BeNil())
			Expect(r.AirHumidity).To(BeNil())
			Expect(r.Temperature).To(BeNil())

			records, err := db.Latest(10)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(*records[0].LightIntensity).To(Equal(100.0))
			Expect(records[0].AirHumidity).To(BeNil())
			Expect(records[0].Temperature).To(BeNil())

			Expect(testutil.ToFloat64(m.SensorErrorsTotal.WithLabelValues("temperature"))).To(Equal(1.0))
		})

		It("should keep going when the insert fails", func() {
			adc, _ := adcFor(2)
			recorder := &failingRecorder{}
			mon := monitor.New(stationFor(adc), recorder, cfg.Interval(), logger, m)

			mon.RunOnce()
			mon.RunOnce()
			Expect(recorder.inserts).To(Equal(2))
			Expect(testutil.ToFloat64(m.InsertsTotal.WithLabelValues("error"))).To(Equal(2.0))
		})
	})

	Describe("ReadingChannel", func() {
		It("should deliver readings until the subscriber leaves", func() {
			adc, _ := adcFor(1)
			mon := monitor.New(stationFor(adc), db, cfg.Interval(), logger, m)

			ctx, cancel := context.WithCancel(context.Background())
			ch := mon.ReadingChannel(ctx)
			Expect(mon.Subscribers()).To(Equal(1))

			r := mon.RunOnce()
			Eventually(ch).Should(Receive(Equal(r)))

			cancel()
			Eventually(ch).Should(BeClosed())
			Expect(mon.Subscribers()).To(BeZero())
		})

		It("should not block on a subscriber that does not read", func() {
			adc, _ := adcFor(3)
			mon := monitor.New(stationFor(adc), db, cfg.Interval(), logger, m)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			_ = mon.ReadingChannel(ctx)

			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				mon.RunOnce()
				mon.RunOnce()
				mon.RunOnce()
				close(done)
			}()
			Eventually(done).Should(BeClosed())
		})
	})

	Describe("Run", func() {
		It("should loop until the context is done", func() {
			station := sensors.NewStation(
				sensors.NewAnalogFake(sensors.LightIntensity, 60),
				sensors.NewAnalogFake(sensors.SoilMoisture, 30),
				probe,
				cfg.Probe.Retries,
				logger,
			)
			fresh := store.New(filepath.Join(GinkgoT().TempDir(), "fresh.db"), logger)
			mon := monitor.New(station, fresh, 10*time.Millisecond, logger, m)

			ctx, cancel := context.WithCancel(context.Background())
			ch := mon.ReadingChannel(ctx)

			errs := make(chan error, 1)
			go func() {
				errs <- mon.Run(ctx)
			}()

			for i := 0; i < 3; i++ {
				Eventually(ch).Should(Receive())
			}
			cancel()
			Eventually(errs).Should(Receive(MatchError(context.Canceled)))

			count, err := fresh.Count()
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeNumerically(">=", 3))
		})

		It("should warn when the database cannot be prepared", func() {
			var logs bytes.Buffer
			warnings := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}))
			station := sensors.NewStation(
				sensors.NewAnalogFake(sensors.LightIntensity, 60),
				sensors.NewAnalogFake(sensors.SoilMoisture, 30),
				probe,
				cfg.Probe.Retries,
				warnings,
			)
			recorder := &failingRecorder{}
			mon := monitor.New(station, recorder, time.Hour, warnings, m)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			Expect(mon.Run(ctx)).To(MatchError(context.Canceled))

			Expect(logs.String()).To(ContainSubstring("database not ready"))
			Expect(logs.String()).To(ContainSubstring("read-only file system"))
			Expect(recorder.inserts).To(Equal(1))
		})
	})
})
