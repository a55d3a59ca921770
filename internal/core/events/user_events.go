package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventUserCreated     = "user.created"
	EventUserDeactivated = "user.deactivated"
	EventUserDeleted     = "user.deleted"
)

func NewUserCreated(userID uuid.UUID, email string) BaseEvent {
	return newUserEvent(EventUserCreated, userID, email)
}

func NewUserDeactivated(userID uuid.UUID, email string) BaseEvent {
	return newUserEvent(EventUserDeactivated, userID, email)
}

func NewUserDeleted(userID uuid.UUID, email string) BaseEvent {
	return newUserEvent(EventUserDeleted, userID, email)
}

func newUserEvent(eventType string, userID uuid.UUID, email string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"user_id": userID.String(),
			"email":   email,
		},
	}
}
