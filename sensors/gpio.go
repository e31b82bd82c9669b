package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// GetGPIO looks up a pin by its BCM GPIO number. host.Init must have run.
func GetGPIO(bcm int) (gpio.PinIO, error) {
	pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", bcm))
	if pin == nil {
		return nil, fmt.Errorf("gpio %d is not available on this host", bcm)
	}
	return pin, nil
}
