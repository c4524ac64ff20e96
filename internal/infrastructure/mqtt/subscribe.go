package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// subscribeAll subscribes to every configured channel, in configuration
// order. A failed channel is logged and skipped; the rest still subscribe.
//
// Runs after each accepted CONNACK. Sessions are clean, so every reconnect
// rebuilds the full set.
func (c *Client) subscribeAll() {
	for _, ch := range c.channels {
		topic := Topics{}.ChannelSubscribe(ch.ID)
		if err := c.subscribe(topic, ch.ID); err != nil {
			c.getLogger().Error("failed to subscribe",
				"topic", topic,
				"channel_id", ch.ID,
				"error", err,
			)
			continue
		}

		c.emit(Event{Kind: EventSubscribed, Topic: topic})
		c.getLogger().Info("subscribed to channel",
			"topic", topic,
			"channel_id", ch.ID,
			"channel_name", ch.Name,
		)
	}
}

// subscribe sends one SUBSCRIBE and records the topic once the broker acks it.
func (c *Client) subscribe(topic, channelID string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Subscribe(topic, c.opts.QoS, c.route)
	if !token.WaitTimeout(defaultSubscribeTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultSubscribeTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{
		topic:     topic,
		channelID: channelID,
		qos:       c.opts.QoS,
	}
	c.subMu.Unlock()

	return nil
}

// route is the paho message callback. It copies the message onto the
// inbound queue; a full queue blocks paho's router rather than dropping.
func (c *Client) route(_ pahomqtt.Client, msg pahomqtt.Message) {
	in := InboundMessage{
		Topic:   msg.Topic(),
		Payload: append([]byte(nil), msg.Payload()...),
	}

	select {
	case c.inbound <- in:
	case <-c.stopped:
	}
}

// Subscriptions returns the acknowledged topics in channel order.
// Duplicate channel IDs collapse to one topic.
func (c *Client) Subscriptions() []string {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	topics := make([]string, 0, len(c.subscriptions))
	seen := make(map[string]struct{}, len(c.subscriptions))
	for _, ch := range c.channels {
		topic := Topics{}.ChannelSubscribe(ch.ID)
		if _, ok := c.subscriptions[topic]; !ok {
			continue
		}
		if _, dup := seen[topic]; dup {
			continue
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}
	return topics
}

// SubscriptionCount returns the number of active subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription checks if a subscription exists for the given topic.
//
// Note: This checks only the exact topic string, not pattern matching.
func (c *Client) HasSubscription(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, exists := c.subscriptions[topic]
	return exists
}
