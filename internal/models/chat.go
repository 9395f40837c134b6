package models

import (
	"fmt"
	"net/url"
	"time"
)

const (
	DefaultRoom  = "general"
	SystemAuthor = "system"
)

// ChatMessage is a message in a family chat room
type ChatMessage struct {
	ID        int64     `json:"id" db:"id"`
	Family    string    `json:"family" db:"family"`
	Room      string    `json:"room" db:"room"`
	Author    string    `json:"author" db:"author"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RoomAnnouncement is the text of the message that opens a new room
func RoomAnnouncement(room string) string {
	return fmt.Sprintf("Room '%s' created", room)
}

// ChatView is what one viewer sees when opening a room
type ChatView struct {
	Room          string         `json:"room"`
	Messages      []*ChatMessage `json:"messages"`
	NewFromOthers []*ChatMessage `json:"new_from_others"`
	Notify        bool           `json:"notify"`
	Latest        *ChatMessage   `json:"latest,omitempty"`
	Cursor        int64          `json:"cursor"`
}

// ChatCursorKey is the setting key holding a viewer's last seen message id.
// Both parts are escaped so a colon in a room or user name cannot make two
// cursors share one key.
func ChatCursorKey(room, viewer string) string {
	return fmt.Sprintf("chat_last_seen:%s:%s", url.QueryEscape(room), url.QueryEscape(viewer))
}
