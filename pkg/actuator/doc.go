// Package actuator drives the servo that releases the latch.
//
// A servo is positioned by a periodic pulse train: every period (20 ms) the
// output goes high for a pulse width between roughly 1000 and 2000
// microseconds, and the servo moves to the angle that width encodes.
//
// # Hardware Boundary
//
// The Generator interface models one timer, comparator and generator triple
// driving a single pin. Its compare register is double-buffered: Latch
// stages a new width and the hardware copies it into the live comparator at
// the next period boundary. A width change therefore never produces a
// truncated or stretched pulse, and two Latch calls within one period leave
// only the second value visible on the output.
//
// Backends:
//   - SimGenerator: software model, used on desktop builds and in tests
//   - PeriphGenerator: Linux hardware PWM via periph.io (Raspberry Pi)
//   - ServoGenerator: TinyGo builds, via tinygo.org/x/drivers/servo
//
// # Driver
//
// Driver is the single writer of the compare register. SetPulseWidth clamps
// the request to [MinPulse, MaxPulse] (an over-range request saturates
// rather than faults) and latches it. The call holds a mutex only for the
// register write, so it never stalls the request-handling goroutine.
package actuator
