// Package config loads the plant monitor settings from a JSON or YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

type Config struct {
	DatabaseName string     `mapstructure:"database_name" yaml:"database_name"`
	ADCChannel   ADCChannel `mapstructure:"adc_channel" yaml:"adc_channel"`
	Sleep        int        `mapstructure:"sleep" yaml:"sleep"`

	SPIPort    string `mapstructure:"spi_port" yaml:"spi_port"`
	SPISpeedHz int64  `mapstructure:"spi_speed_hz" yaml:"spi_speed_hz"`

	Probe       Probe  `mapstructure:"probe" yaml:"probe"`
	FakeSensors bool   `mapstructure:"fake_sensors" yaml:"fake_sensors"`
	HTTP        HTTP   `mapstructure:"http" yaml:"http"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
}

type ADCChannel struct {
	SoilMoisture   int `mapstructure:"soil_moisture" yaml:"soil_moisture"`
	LightIntensity int `mapstructure:"light_intensity" yaml:"light_intensity"`
}

type Probe struct {
	Pin     int    `mapstructure:"pin" yaml:"pin"`
	Type    string `mapstructure:"type" yaml:"type"`
	Retries int    `mapstructure:"retries" yaml:"retries"`
}

type HTTP struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

var (
	Default = Config{
		DatabaseName: "pms.db",
		ADCChannel: ADCChannel{
			SoilMoisture:   1,
			LightIntensity: 0,
		},
		Sleep:      5,
		SPIPort:    "/dev/spidev0.0",
		SPISpeedHz: 1350000,
		Probe: Probe{
			Pin:     4,
			Type:    "dht11",
			Retries: 15,
		},
		LogLevel: "info",
	}
)

// Interval is the pause between two samples.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Sleep) * time.Second
}

// Load reads the file at path. Keys missing from the file fall back to Default
// and can be overridden by PMS_ prefixed environment variables, e.g.
// PMS_ADC_CHANNEL_SOIL_MOISTURE.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if !slices.Contains(viper.SupportedExts, strings.TrimPrefix(filepath.Ext(path), ".")) {
		// yaml also parses json documents
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_name", Default.DatabaseName)
	v.SetDefault("adc_channel.soil_moisture", Default.ADCChannel.SoilMoisture)
	v.SetDefault("adc_channel.light_intensity", Default.ADCChannel.LightIntensity)
	v.SetDefault("sleep", Default.Sleep)
	v.SetDefault("spi_port", Default.SPIPort)
	v.SetDefault("spi_speed_hz", Default.SPISpeedHz)
	v.SetDefault("probe.pin", Default.Probe.Pin)
	v.SetDefault("probe.type", Default.Probe.Type)
	v.SetDefault("probe.retries", Default.Probe.Retries)
	v.SetDefault("fake_sensors", Default.FakeSensors)
	v.SetDefault("http.listen", Default.HTTP.Listen)
	v.SetDefault("log_level", Default.LogLevel)
}

// WriteDefault writes Default as yaml to path. An existing file is never
// overwritten.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}
