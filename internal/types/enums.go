package types

import "strings"

// ChannelType identifies a notification delivery channel.
type ChannelType string

const (
	ChannelEmail ChannelType = "email"
	ChannelPush  ChannelType = "push"
	ChannelSMS   ChannelType = "sms"
	ChannelInApp ChannelType = "in_app"
)

// AllChannelTypes lists every channel variant in registration order.
var AllChannelTypes = []ChannelType{ChannelEmail, ChannelPush, ChannelSMS, ChannelInApp}

// ParseChannelType resolves a channel name case-insensitively.
// "in_app", "in-app" and "inapp" all map to ChannelInApp.
func ParseChannelType(name string) (ChannelType, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "email":
		return ChannelEmail, nil
	case "push":
		return ChannelPush, nil
	case "sms":
		return ChannelSMS, nil
	case "in_app", "inapp":
		return ChannelInApp, nil
	}
	return "", NewAppErrorWithDetails(
		ErrCodeValidationInvalidChannel,
		"unknown channel type",
		nil,
		map[string]any{"channel": name},
	)
}

// Valid reports whether c is one of the known channel variants.
func (c ChannelType) Valid() bool {
	for _, t := range AllChannelTypes {
		if c == t {
			return true
		}
	}
	return false
}

// TargetKind identifies what a reminder is attached to.
type TargetKind string

const (
	TargetNote TargetKind = "note"
	TargetTask TargetKind = "task"
)

// TaskStatus is the lifecycle state of a todo item.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)
