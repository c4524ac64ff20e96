package mqtt

import (
	"fmt"
	"strings"
)

// ThingSpeak topic layout: channels/{channel_id}/subscribe.
const (
	// TopicPrefixChannels is the first segment of every channel topic.
	TopicPrefixChannels = "channels"

	// TopicSuffixSubscribe is the last segment of a channel feed topic.
	TopicSuffixSubscribe = "subscribe"

	// channelTopicSegments is the number of '/'-separated segments in a channel topic.
	channelTopicSegments = 3
)

// Topics provides builders for ThingSpeak MQTT topics.
//
//	topic := mqtt.Topics{}.ChannelSubscribe("2718325")
//	// Returns: "channels/2718325/subscribe"
type Topics struct{}

// ChannelSubscribe returns the feed topic for one channel.
//
// Example: channels/2718325/subscribe
func (Topics) ChannelSubscribe(channelID string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixChannels, channelID, TopicSuffixSubscribe)
}

// ParseChannelTopic extracts the channel ID from channels/{id}/subscribe.
// Any other shape returns ErrInvalidTopic.
func ParseChannelTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != channelTopicSegments ||
		parts[0] != TopicPrefixChannels ||
		parts[2] != TopicSuffixSubscribe ||
		parts[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	return parts[1], nil
}
