package nats

import "fmt"

// DefaultPrefix subject root
const DefaultPrefix = "memmatch"

// EventSubject per-session notification subject, e.g. memmatch.session.<id>.events
func EventSubject(prefix, sessionID string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s.session.%s.events", prefix, sessionID)
}

// EventWildcard matches every session's notifications
func EventWildcard(prefix string) string {
	return EventSubject(prefix, "*")
}

// CommandSubject inbound player commands, load balanced over a queue group
func CommandSubject(prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + ".commands"
}
