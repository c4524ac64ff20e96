// Package mqtt provides the ThingSpeak broker connection manager.
//
// This package manages:
//   - A single MQTT 3.1.1 session to the ThingSpeak broker
//   - Subscription to channels/{id}/subscribe for every configured channel
//   - A connected flag driven only by CONNACK and disconnect callbacks
//   - A monitoring loop that reconnects after a fixed backoff
//   - Sequential, in-order delivery of inbound messages to one handler
//
// # Architecture
//
// paho owns the socket and its network goroutines. Its callbacks only flip
// the connected flag, record subscriptions and push messages onto a bounded
// queue. One dispatch goroutine drains the queue, so the message handler
// never runs concurrently with itself.
//
//	paho callbacks → inbound queue → dispatch → MessageHandler
//	                 connected flag ← monitor loop (poll, backoff, connect)
//
// # Lifecycle
//
//	DISCONNECTED → CONNECTING → CONNECTED → DISCONNECTED → ...
//	any state → STOPPED on shutdown
//
// A refused CONNACK (return codes 1-5) is logged with its reason and is
// not fatal; the loop tries again after the backoff. Only an initial
// connect that never reached the broker makes Run return an error.
//
// # Security Considerations
//
//   - The public ThingSpeak broker is plaintext on port 1883; set TLS for 8883
//   - Credentials come from configuration and are never logged
//
// # Usage
//
//	client, err := mqtt.New(mqtt.OptionsFromConfig(cfg), channels, handler.Handle)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client.SetLogger(logger)
//
//	if err := client.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package mqtt
