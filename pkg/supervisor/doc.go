// Package supervisor boots the device.
//
// Boot runs a fixed sequence, each step fatal:
//
//  1. open the settings store (erasing it if unreadable)
//  2. start the connectivity manager and request the first link
//  3. register routes and start the HTTP server
//  4. configure the actuator
//
// After boot the supervisor idles, logging a heartbeat, until its context
// ends. The trigger route answers 503 until step 4 completes.
package supervisor
