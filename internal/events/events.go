// Package events defines the login events handled by this service.
package events

import "time"

// Event names as carried on the wire.
const (
	NameSuspiciousLogin = "suspicious_login"
	NameLogin           = "login"
)

// Event is implemented by every event variant.
type Event interface {
	EventName() string
}

// SuspiciousLoginEvent is raised by the login detector when a login comes
// from an address it considers unusual for the account. IP is nil when the
// detector did not record the address.
type SuspiciousLoginEvent struct {
	UID string
	IP  *string
}

// NewSuspiciousLoginEvent builds an event with a known address.
func NewSuspiciousLoginEvent(uid, ip string) SuspiciousLoginEvent {
	return SuspiciousLoginEvent{UID: uid, IP: &ip}
}

func (SuspiciousLoginEvent) EventName() string { return NameSuspiciousLogin }

// IPOrEmpty returns the observed address or "".
func (e SuspiciousLoginEvent) IPOrEmpty() string {
	if e.IP == nil {
		return ""
	}
	return *e.IP
}

// LoginEvent records a successful login from an address.
type LoginEvent struct {
	UID string
	IP  string
	At  time.Time
}

func (LoginEvent) EventName() string { return NameLogin }

// UnknownEvent stands in for envelopes whose type this build does not know.
type UnknownEvent struct {
	Name string
}

func (e UnknownEvent) EventName() string { return e.Name }

// UIDOf returns the user an event concerns, or "" for unknown events.
func UIDOf(ev Event) string {
	switch e := ev.(type) {
	case SuspiciousLoginEvent:
		return e.UID
	case *SuspiciousLoginEvent:
		if e != nil {
			return e.UID
		}
	case LoginEvent:
		return e.UID
	case *LoginEvent:
		if e != nil {
			return e.UID
		}
	}
	return ""
}
