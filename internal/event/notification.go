package event

import (
	"fmt"
	"strings"
)

// Method is the channel a notification is delivered through. Only Push
// has a working delivery path; Email and Sms are accepted in the file
// format but fail when fired.
type Method string

const (
	MethodPush  Method = "Push"
	MethodEmail Method = "Email"
	MethodSms   Method = "Sms"
)

// ParseMethod parses a method name case-insensitively ("sms" and "SMS"
// both map to Sms).
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "push", "":
		return MethodPush, nil
	case "email":
		return MethodEmail, nil
	case "sms":
		return MethodSms, nil
	}
	return "", fmt.Errorf("unknown notification method %q (want push, email or sms)", s)
}

// NotificationSetting is one reminder attached to an event.
type NotificationSetting struct {
	NotifyBefore int    `json:"notify_before"` // minutes; 0 or negative means at/after start
	Method       Method `json:"method"`
	HasNotified  bool   `json:"has_notified"` // fire-once latch
}

// DefaultNotification is injected into events that carry no settings.
func DefaultNotification() NotificationSetting {
	return NotificationSetting{Method: MethodPush}
}

func (n NotificationSetting) String() string {
	return fmt.Sprintf("Notify Before: %d, Method: %s", n.NotifyBefore, n.Method)
}

// Transition is a change of a setting's fire-once latch.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionFire
	TransitionReset
)

func (t Transition) String() string {
	switch t {
	case TransitionFire:
		return "fire"
	case TransitionReset:
		return "reset"
	}
	return "none"
}

// Transition computes the next latch move from the current latch and the
// predicate alone. One-time settings only ever fire; recurring settings
// reset once their window has passed so the next occurrence can fire.
func (n NotificationSetting) Transition(recurring, predicate bool) Transition {
	switch {
	case predicate && !n.HasNotified:
		return TransitionFire
	case recurring && !predicate && n.HasNotified:
		return TransitionReset
	}
	return TransitionNone
}

// Apply moves the latch and reports whether it changed.
func (n *NotificationSetting) Apply(t Transition) bool {
	switch t {
	case TransitionFire:
		if !n.HasNotified {
			n.HasNotified = true
			return true
		}
	case TransitionReset:
		if n.HasNotified {
			n.HasNotified = false
			return true
		}
	}
	return false
}
