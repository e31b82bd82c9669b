package sensors

import "errors"

var errProbeFake = errors.New("probe fake: no response")

type ProbeFake struct {
	humidity    float64
	temperature float64
	failing     bool
	calls       int
}

func NewProbeFake(humidity, temperature float64) *ProbeFake {
	return &ProbeFake{
		humidity:    humidity,
		temperature: temperature,
	}
}

// SetFailing makes the probe behave as if every retry was exhausted.
func (p *ProbeFake) SetFailing(failing bool) {
	p.failing = failing
}

// Calls is the number of ReadRetry transactions so far.
func (p *ProbeFake) Calls() int {
	return p.calls
}

func (p *ProbeFake) ReadRetry(maxRetries int) (float64, float64, error) {
	p.calls++
	if p.failing {
		return 0, 0, errProbeFake
	}
	return p.humidity, p.temperature, nil
}
