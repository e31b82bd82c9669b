package sensors

type AnalogFake struct {
	name  string
	value int
	err   error
}

func NewAnalogFake(name string, value int) *AnalogFake {
	return &AnalogFake{
		name:  name,
		value: value,
	}
}

func (s *AnalogFake) Name() string {
	return s.name
}

// SetError makes the following reads fail with err, nil restores them.
func (s *AnalogFake) SetError(err error) {
	s.err = err
}

func (s *AnalogFake) ReadValue() (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.value, nil
}
