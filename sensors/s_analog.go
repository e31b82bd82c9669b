package sensors

const (
	LightIntensity = "Light Intensity"
	SoilMoisture   = "Soil Moisture"
)

type analog struct {
	adc     *MCP3008
	name    string
	channel int
}

// NewAnalog returns a sensor reading one channel of adc as a percentage.
func NewAnalog(adc *MCP3008, name string, channel int) Sensor {
	return &analog{
		adc:     adc,
		name:    name,
		channel: channel,
	}
}

func (s *analog) Name() string {
	return s.name
}

func (s *analog) ReadValue() (int, error) {
	return s.adc.ReadChannel(s.channel)
}
