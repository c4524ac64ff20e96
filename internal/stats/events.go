package stats

import "github.com/nerrad567/thingspeak-listener/internal/infrastructure/mqtt"

// ObserveEvent updates the connection counters from a lifecycle event.
// Pass it to (*mqtt.Client).SetOnEvent, directly or from a fan-out.
func (c *Counters) ObserveEvent(e mqtt.Event) {
	switch e.Kind {
	case mqtt.EventConnectAttempt:
		c.ConnectAttempt()
	case mqtt.EventConnAccepted:
		c.ConnectAccepted()
	case mqtt.EventConnRefused:
		c.ConnectRefused()
	case mqtt.EventConnectFailed:
		c.ConnectFailed()
	case mqtt.EventDisconnected, mqtt.EventConnectionLost:
		c.Disconnected(e.Unexpected())
	}
}
