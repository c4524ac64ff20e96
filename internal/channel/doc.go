// Package channel holds the static list of ThingSpeak channels the
// listener subscribes to.
//
// The list is set once at startup from configuration and never changes.
// Order is preserved: subscriptions are issued and the banner is printed
// in configured order. Duplicate IDs are tolerated; lookups return the
// first match.
package channel
