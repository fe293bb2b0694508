package obdsim

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	coreobd "github.com/pitwall/vtms/core/obd"
)

// DefaultInterval is the watch tick cadence of the simulated adapter.
const DefaultInterval = 500 * time.Millisecond

// channel describes one simulated PID: its unit string and a value curve over
// elapsed seconds. The curves loosely model a car lapping a circuit.
type channel struct {
	unit string
	dec  int
	fn   func(t float64) float64
}

var channels = map[string]channel{
	"RPM":                    {"rpm", 0, func(t float64) float64 { return 3800 + 2400*math.Sin(t/7) }},
	"SPEED":                  {"kph", 0, func(t float64) float64 { return 95 + 55*math.Sin(t/7) }},
	"COOLANT_TEMP":           {"degC", 0, func(t float64) float64 { return 92 - 70*math.Exp(-t/120) }},
	"OIL_TEMP":               {"degC", 0, func(t float64) float64 { return 105 - 80*math.Exp(-t/180) }},
	"INTAKE_TEMP":            {"degC", 0, func(t float64) float64 { return 35 + 4*math.Sin(t/11) }},
	"ENGINE_LOAD":            {"percent", 1, func(t float64) float64 { return 55 + 35*math.Sin(t/7) }},
	"THROTTLE_POS":           {"percent", 1, func(t float64) float64 { return 50 + 45*math.Sin(t/7) }},
	"FUEL_LEVEL":             {"percent", 1, func(t float64) float64 { return math.Max(5, 95-t/90) }},
	"CONTROL_MODULE_VOLTAGE": {"volt", 2, func(t float64) float64 { return 13.8 + 0.3*math.Sin(t/13) }},
}

const monitorResult = "CATALYST_MONITOR_BANK_1 : TEST_COMPLETE"

// Device simulates an OBD2 adapter plugged into a running car. Watched
// commands tick on a fixed cadence; queries answer immediately.
type Device struct {
	interval time.Duration
	start    time.Time
	done     chan struct{}

	mu       sync.Mutex
	status   coreobd.Status
	watchers map[string]func(coreobd.Reading)
	dtcs     []coreobd.TroubleCode
	closed   bool
}

// NewDevice creates a running simulated adapter. Zero interval falls back to
// the default tick.
func NewDevice(interval time.Duration) *Device {
	if interval <= 0 {
		interval = DefaultInterval
	}
	d := &Device{
		interval: interval,
		start:    time.Now(),
		done:     make(chan struct{}),
		status:   coreobd.StatusConnected,
		watchers: make(map[string]func(coreobd.Reading)),
	}
	go d.loop()
	return d
}

// Watch registers a callback ticking on the device cadence.
func (d *Device) Watch(cmd string, fn func(coreobd.Reading)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !supported(cmd) {
		return coreobd.ErrUnknownCommand
	}
	d.watchers[cmd] = fn
	return nil
}

// Unwatch removes the callback for the command.
func (d *Device) Unwatch(cmd string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.watchers, cmd)
	return nil
}

// Query answers with the current value. Unsupported commands return a null
// reading, the way a car without that sensor would.
func (d *Device) Query(ctx context.Context, cmd string) (coreobd.Reading, error) {
	if err := ctx.Err(); err != nil {
		return coreobd.Reading{}, err
	}
	if !supported(cmd) {
		return coreobd.Reading{Command: cmd, Null: true, Time: time.Now()}, nil
	}
	return d.reading(cmd, time.Since(d.start).Seconds()), nil
}

// Supports reports whether the simulated car answers the command.
func (d *Device) Supports(cmd string) bool { return supported(cmd) }

// Status reports the adapter link state.
func (d *Device) Status() coreobd.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Close stops the tick loop.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.status = coreobd.StatusDisconnected
	close(d.done)
	return nil
}

// Fail simulates losing the car, e.g. ignition off. The status poll will see
// it and tear the device down.
func (d *Device) Fail() {
	d.mu.Lock()
	d.status = coreobd.StatusDisconnected
	d.mu.Unlock()
}

// InjectDTC stores a trouble code that GET_DTC reports from now on.
func (d *Device) InjectDTC(code, description string) {
	d.mu.Lock()
	d.dtcs = append(d.dtcs, coreobd.TroubleCode{Code: code, Description: description})
	d.mu.Unlock()
}

func (d *Device) loop() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

func (d *Device) tick() {
	d.mu.Lock()
	if d.status != coreobd.StatusConnected {
		d.mu.Unlock()
		return
	}
	cbs := make(map[string]func(coreobd.Reading), len(d.watchers))
	for cmd, fn := range d.watchers {
		cbs[cmd] = fn
	}
	d.mu.Unlock()

	t := time.Since(d.start).Seconds()
	for cmd, fn := range cbs {
		fn(d.reading(cmd, t))
	}
}

func (d *Device) reading(cmd string, t float64) coreobd.Reading {
	now := time.Now()
	switch cmd {
	case coreobd.CommandDTC:
		d.mu.Lock()
		dtcs := make([]coreobd.TroubleCode, len(d.dtcs))
		copy(dtcs, d.dtcs)
		d.mu.Unlock()
		return coreobd.Reading{Command: cmd, DTCs: dtcs, Time: now}
	case "MONITOR_CATALYST_B1":
		return coreobd.Reading{Command: cmd, Value: monitorResult, Time: now}
	}
	ch := channels[cmd]
	v := strconv.FormatFloat(ch.fn(t), 'f', ch.dec, 64)
	return coreobd.Reading{Command: cmd, Value: v + " " + ch.unit, Unit: ch.unit, Time: now}
}

func supported(cmd string) bool {
	if cmd == coreobd.CommandDTC || cmd == "MONITOR_CATALYST_B1" {
		return true
	}
	_, ok := channels[cmd]
	return ok
}

// Opener yields simulated devices. FailFirst models an adapter that is not
// reachable until the car shows up.
type Opener struct {
	FailFirst int
	Interval  time.Duration

	mu    sync.Mutex
	calls int
}

// Open returns a fresh running device, or ErrNoDevice for the first FailFirst
// attempts.
func (o *Opener) Open(ctx context.Context) (coreobd.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	o.calls++
	fail := o.calls <= o.FailFirst
	o.mu.Unlock()
	if fail {
		return nil, coreobd.ErrNoDevice
	}
	return NewDevice(o.Interval), nil
}
