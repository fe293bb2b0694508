package led

import (
	"fmt"
	"os"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/rpi"

	"github.com/pitwall/vtms/core/signal"
	"github.com/pitwall/vtms/infra/logger"
)

// IsRaspberryPi reports whether the process runs on a Raspberry Pi, the only
// board the lamp pin map is valid for.
func IsRaspberryPi() bool {
	model, err := os.ReadFile("/sys/firmware/devicetree/base/model")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(model)), "raspberry pi")
}

// GPIOSignaler drives the driver display lamps through the Pi header, using
// physical pin numbering: box=8, pit=10, red=12, black=16.
type GPIOSignaler struct {
	pins map[string]gpio.PinIO
	log  logger.Logger
}

// NewGPIOSignaler initializes the host and claims the lamp pins, driving them
// all low.
func NewGPIOSignaler(log logger.Logger) (*GPIOSignaler, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	pins := map[string]gpio.PinIO{
		signal.LampBox:   rpi.P1_8,
		signal.LampPit:   rpi.P1_10,
		signal.LampRed:   rpi.P1_12,
		signal.LampBlack: rpi.P1_16,
	}
	return newWithPins(pins, log)
}

func newWithPins(pins map[string]gpio.PinIO, log logger.Logger) (*GPIOSignaler, error) {
	s := &GPIOSignaler{pins: pins, log: log}
	for name, p := range pins {
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("init lamp %s: %w", name, err)
		}
	}
	return s, nil
}

// Set drives the lamp high or low. Unknown lamp names are ignored so the
// signaler stays safe against handler typos.
func (s *GPIOSignaler) Set(lamp string, on bool) {
	p, ok := s.pins[lamp]
	if !ok {
		return
	}
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := p.Out(level); err != nil {
		s.log.Errorf("lamp %s: %v", lamp, err)
	}
}
