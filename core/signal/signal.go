package signal

// Lamp names understood by a Signaler. They mirror the driver-facing lamps in
// the car: race flags plus the two pit calls.
const (
	LampRed   = "red"
	LampBlack = "black"
	LampPit   = "pit"
	LampBox   = "box"
)

// Signaler drives the driver-facing signal lamps. Implementations must accept
// unknown lamp names without panicking.
type Signaler interface {
	Set(lamp string, on bool)
}

// Nop is a Signaler that does nothing. Used when no lamp hardware is present.
type Nop struct{}

func (Nop) Set(string, bool) {}
