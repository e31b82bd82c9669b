package sensors

import (
	"errors"
	"fmt"
	"math"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// ErrInvalidChannel is returned for a channel outside [0, 7].
var ErrInvalidChannel = errors.New("sensors: invalid adc channel")

const adcChannels = 8

// MCP3008 is an 8 channel 10 bit analog-digital converter on SPI.
type MCP3008 struct {
	conn spi.Conn
}

func NewMCP3008(port spi.Port, speed physic.Frequency) (*MCP3008, error) {
	c, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("mcp3008: %w", err)
	}

	return &MCP3008{
		conn: c,
	}, nil
}

// ReadRaw returns the 10 bit sample of a single ended channel.
func (a *MCP3008) ReadRaw(channel int) (int, error) {
	if channel < 0 || channel >= adcChannels {
		return 0, fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}

	write := []byte{0x01, byte(8+channel) << 4, 0x00}
	read := make([]byte, 3)
	if err := a.conn.Tx(write, read); err != nil {
		return 0, fmt.Errorf("mcp3008: channel %d: %w", channel, err)
	}

	return int(read[1]&0x03)<<8 | int(read[2]), nil
}

// ReadChannel returns the channel value as an inverted percentage: the probes
// in use report a lower voltage for more light or more moisture.
func (a *MCP3008) ReadChannel(channel int) (int, error) {
	raw, err := a.ReadRaw(channel)
	if err != nil {
		return 0, err
	}
	return Percent(raw), nil
}

// Percent converts a raw sample to 100 - round(raw / 10.24), halves rounded
// to even.
func Percent(raw int) int {
	return 100 - int(math.RoundToEven(float64(raw)/10.24))
}
