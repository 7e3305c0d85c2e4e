package notifications

import (
	"encoding/json"
	"time"
)

// Activity event types.
const (
	EventPostCreated   = "post.created"
	EventPostDeleted   = "post.deleted"
	EventPostLiked     = "post.liked"
	EventPostUnliked   = "post.unliked"
	EventPostCommented = "post.commented"
)

// Event is one entry of the public activity stream.
type Event struct {
	Type    string    `json:"type"`
	PostID  string    `json:"postId"`
	ActorID string    `json:"actorId"`
	At      time.Time `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType, postID, actorID string) Event {
	return Event{Type: eventType, PostID: postID, ActorID: actorID, At: time.Now().UTC()}
}

// Encode renders the event as the JSON frame sent to sockets.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
