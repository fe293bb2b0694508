package bus

import "errors"

// ErrNotConnected is returned by Publish and Subscribe when no session is
// established. Callers treat it as a buffering condition, not a fatal one.
var ErrNotConnected = errors.New("bus: not connected")
