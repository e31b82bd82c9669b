// Package dht reads the DHT11 and DHT22 humidity/temperature probes through a
// single GPIO pin.
//
// The probe answers a start signal with a 40 bit frame: humidity, temperature
// and a checksum. Bits are encoded in the width of the high pulses that follow
// each 50µs low period, ~26µs for a zero and ~70µs for a one. Reads are bit
// banged from user space, so a read occasionally fails; use ReadRetry.
package dht

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Type is the probe model.
type Type int

const (
	DHT11 Type = iota
	DHT22
)

var (
	// ErrTimeout is returned when the probe did not send a complete frame.
	ErrTimeout = errors.New("dht: timeout waiting for sensor data")
	// ErrChecksum is returned when the frame checksum does not match.
	ErrChecksum = errors.New("dht: checksum mismatch")
	// ErrOutOfRange is returned for a valid frame holding impossible values.
	ErrOutOfRange = errors.New("dht: value out of range")
)

const (
	frameBits      = 40
	bitThreshold   = 50 * time.Microsecond
	captureTimeout = 10 * time.Millisecond
)

func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "dht11", "11", "":
		return DHT11, nil
	case "dht22", "22", "am2302":
		return DHT22, nil
	default:
		return 0, fmt.Errorf("dht: unknown sensor type %q", s)
	}
}

func (t Type) String() string {
	if t == DHT22 {
		return "DHT22"
	}
	return "DHT11"
}

// startDuration is how long the host holds the line low to wake the probe.
func (t Type) startDuration() time.Duration {
	if t == DHT22 {
		return 1100 * time.Microsecond
	}
	return 18 * time.Millisecond
}

// minInterval is the shortest time between two reads the probe supports.
func (t Type) minInterval() time.Duration {
	if t == DHT22 {
		return 2 * time.Second
	}
	return time.Second
}

func (t Type) convert(frame [5]byte) (humidity, temperature float64, err error) {
	switch t {
	case DHT22:
		humidity = float64(uint16(frame[0])<<8|uint16(frame[1])) / 10
		temperature = float64(uint16(frame[2]&0x7f)<<8|uint16(frame[3])) / 10
		if frame[2]&0x80 != 0 {
			temperature = -temperature
		}
	default:
		humidity = float64(frame[0]) + float64(frame[1])/10
		temperature = float64(frame[2]) + float64(frame[3]&0x7f)/10
		if frame[3]&0x80 != 0 {
			temperature = -temperature
		}
	}

	if humidity < 0 || humidity > 100 || temperature < -40 || temperature > 80 {
		return 0, 0, fmt.Errorf("%w: humidity %.1f temperature %.1f", ErrOutOfRange, humidity, temperature)
	}
	return humidity, temperature, nil
}

// Dev is a handle to a probe on one GPIO pin.
type Dev struct {
	pin        gpio.PinIO
	sensorType Type
	interval   time.Duration
	retryDelay time.Duration
	numErrors  int
	lastRead   time.Time

	sense func() (humidity, temperature float64, err error)
}

// New returns a probe handle and leaves the data line idle high.
func New(pin gpio.PinIO, sensorType Type) (*Dev, error) {
	if pin == nil {
		return nil, errors.New("dht: pin is nil")
	}
	if err := pin.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("dht: failed to set %s idle: %w", pin, err)
	}

	d := &Dev{
		pin:        pin,
		sensorType: sensorType,
		interval:   sensorType.minInterval(),
		retryDelay: 2 * time.Second,
	}
	d.sense = d.senseOnce
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%s}", d.sensorType, d.pin)
}

// Errors is the number of failed reads since New.
func (d *Dev) Errors() int {
	return d.numErrors
}

// Read performs a single transaction, waiting first if the previous one was
// too recent for the probe.
func (d *Dev) Read() (humidity, temperature float64, err error) {
	if wait := d.interval - time.Since(d.lastRead); wait > 0 {
		time.Sleep(wait)
	}

	humidity, temperature, err = d.sense()
	d.lastRead = time.Now()
	if err != nil {
		d.numErrors++
		return 0, 0, err
	}
	return humidity, temperature, nil
}

// ReadRetry calls Read up to maxRetries times, pausing between attempts, and
// returns the first successful result.
func (d *Dev) ReadRetry(maxRetries int) (humidity, temperature float64, err error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 1; ; attempt++ {
		humidity, temperature, err = d.Read()
		if err == nil {
			return humidity, temperature, nil
		}
		if attempt == maxRetries {
			return 0, 0, fmt.Errorf("dht: giving up after %d attempts: %w", attempt, err)
		}
		time.Sleep(d.retryDelay)
	}
}

func (d *Dev) senseOnce() (float64, float64, error) {
	if err := d.pin.Out(gpio.Low); err != nil {
		return 0, 0, err
	}
	time.Sleep(d.sensorType.startDuration())

	if err := d.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return 0, 0, err
	}

	frame, err := decodePulses(capturePulses(d.pin, captureTimeout))
	if err != nil {
		return 0, 0, err
	}
	return d.sensorType.convert(frame)
}

// capturePulses busy polls pin until timeout and returns the width of every
// complete high pulse seen.
func capturePulses(pin gpio.PinIn, timeout time.Duration) []time.Duration {
	pulses := make([]time.Duration, 0, frameBits+2)

	level := pin.Read()
	start := time.Now()
	deadline := start.Add(timeout)
	for now := start; now.Before(deadline); now = time.Now() {
		l := pin.Read()
		if l == level {
			continue
		}
		if level == gpio.High {
			pulses = append(pulses, now.Sub(start))
		}
		level = l
		start = now
	}
	return pulses
}

// decodePulses turns the last 40 high pulses into the 5 byte frame and
// verifies its checksum. Leading pulses belong to the probe response.
func decodePulses(pulses []time.Duration) ([5]byte, error) {
	var frame [5]byte
	if len(pulses) < frameBits {
		return frame, fmt.Errorf("%w: got %d of %d bits", ErrTimeout, len(pulses), frameBits)
	}

	for i, p := range pulses[len(pulses)-frameBits:] {
		frame[i/8] <<= 1
		if p > bitThreshold {
			frame[i/8] |= 1
		}
	}

	if sum := frame[0] + frame[1] + frame[2] + frame[3]; sum != frame[4] {
		return frame, fmt.Errorf("%w: 0x%02x != 0x%02x", ErrChecksum, sum, frame[4])
	}
	return frame, nil
}
