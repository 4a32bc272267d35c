// Package relatch returns the servo to its rest position a fixed hold time
// after it was moved away from it.
//
// # Timer Lifecycle
//
// The timer starts when a pulse width other than the rest width is latched
// successfully. When it expires the rest width is latched and the timer is
// cleared.
//
// # Timer Replacement
//
// A new actuation while a timer is pending restarts the hold from zero.
// There is no stacking. Latching the rest width directly cancels the timer.
//
// # Accuracy
//
// Expiry is driven by time.AfterFunc and uses the monotonic clock. A stale
// expiry that races with a replacement is discarded.
package relatch
