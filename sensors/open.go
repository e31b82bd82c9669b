package sensors

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/ZamarianPatrick/pms/config"
	"github.com/ZamarianPatrick/pms/dht"
)

// Open connects to the ADC and the probe described by cfg. The SPI port stays
// open for the lifetime of the process. With cfg.FakeSensors no hardware is
// touched.
func Open(cfg config.Config, logger *slog.Logger) (_ *Station, err error) {
	if cfg.FakeSensors {
		logger.Info("using fake sensors")
		return NewStation(
			NewAnalogFake(LightIntensity, 100),
			NewAnalogFake(SoilMoisture, 100),
			NewProbeFake(55.0, 21.5),
			cfg.Probe.Retries,
			logger,
		), nil
	}

	sensorType, err := dht.ParseType(cfg.Probe.Type)
	if err != nil {
		return nil, err
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}

	logger.Info("opening spi port for adc mcp3008", "port", cfg.SPIPort)
	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("failed to open spi port %s: %w", cfg.SPIPort, err)
	}
	defer func() {
		if err != nil {
			port.Close()
		}
	}()

	adc, err := NewMCP3008(port, physic.Frequency(cfg.SPISpeedHz)*physic.Hertz)
	if err != nil {
		return nil, err
	}

	pin, err := GetGPIO(cfg.Probe.Pin)
	if err != nil {
		return nil, err
	}

	probe, err := dht.New(pin, sensorType)
	if err != nil {
		return nil, err
	}
	logger.Info("probe ready", "probe", probe.String())

	return NewStation(
		NewAnalog(adc, LightIntensity, cfg.ADCChannel.LightIntensity),
		NewAnalog(adc, SoilMoisture, cfg.ADCChannel.SoilMoisture),
		probe,
		cfg.Probe.Retries,
		logger,
	), nil
}
