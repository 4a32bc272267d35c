// Package dispatch is the device's HTTP control surface.
//
// A Dispatcher holds a fixed route table keyed by exact path. Requests for
// a registered path with the registered method run the route's handler
// synchronously; any other method gets 405 and an unknown path gets 404.
// Neither error response has side effects.
//
// The default table serves two static payloads and one trigger:
//
//	GET /        index page (text/html)
//	GET /us.jpg  image (image/jpeg)
//	GET /open    moves the actuator to its open position, replies "Open"
package dispatch
