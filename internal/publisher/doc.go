// Package publisher delivers observed alarm state to the outside world.
//
// The watch command publishes every state change through a Publisher: either
// an MQTT broker (retained JSON under <topic>/state) or, when no broker is
// configured, the log.
package publisher
