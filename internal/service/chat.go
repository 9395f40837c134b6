package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/hive/internal/models"
	"github.com/Kerhoff/hive/internal/repository"
)

const (
	chatWindow       = 100
	chatDeleteWindow = 10
)

// Rooms lists the family's rooms with general always present
func (s *Service) Rooms(ctx context.Context, id models.Identity) ([]string, error) {
	rooms, err := s.store.Chat().Rooms(ctx, id.Family)
	if err != nil {
		return nil, err
	}
	for _, room := range rooms {
		if room == models.DefaultRoom {
			return rooms, nil
		}
	}
	return append([]string{models.DefaultRoom}, rooms...), nil
}

// CreateRoom opens a room by posting its system announcement
func (s *Service) CreateRoom(ctx context.Context, id models.Identity, room string) (string, error) {
	room, err := requireText("room", room)
	if err != nil {
		return "", err
	}

	if _, err := s.store.Chat().Create(ctx, s.announcement(id.Family, room)); err != nil {
		return "", err
	}

	s.logger.WithFields(logrus.Fields{
		"family": id.Family,
		"user":   id.User,
		"room":   room,
	}).Info("Created chat room")

	return room, nil
}

// SendMessage posts to a room. The first message of a room other than
// general is preceded by the room announcement.
func (s *Service) SendMessage(ctx context.Context, id models.Identity, room, text string) (*models.ChatMessage, error) {
	text, err := requireText("text", text)
	if err != nil {
		return nil, err
	}
	room = roomOrDefault(room)

	var msg *models.ChatMessage
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if room != models.DefaultRoom {
			n, err := tx.Chat().Count(ctx, id.Family, room)
			if err != nil {
				return err
			}
			if n == 0 {
				if _, err := tx.Chat().Create(ctx, s.announcement(id.Family, room)); err != nil {
					return err
				}
			}
		}

		var err error
		msg, err = tx.Chat().Create(ctx, &models.ChatMessage{
			Family:    id.Family,
			Room:      room,
			Author:    id.User,
			Text:      text,
			CreatedAt: s.now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ChatMessage()
	s.logger.WithFields(logrus.Fields{
		"family":  id.Family,
		"user":    id.User,
		"room":    room,
		"message": msg.ID,
	}).Debug("Sent chat message")

	return msg, nil
}

// ViewChat loads the latest window of a room in chronological order and
// reports what arrived from others since the viewer's cursor. The cursor
// then moves to the newest loaded message, so each arrival notifies once.
func (s *Service) ViewChat(ctx context.Context, id models.Identity, room string) (*models.ChatView, error) {
	room = roomOrDefault(room)

	recent, err := s.store.Chat().Recent(ctx, id.Family, room, chatWindow)
	if err != nil {
		return nil, err
	}

	messages := make([]*models.ChatMessage, len(recent))
	for i, msg := range recent {
		messages[len(recent)-1-i] = msg
	}

	key := models.ChatCursorKey(room, id.User)
	cursor, err := s.chatCursor(ctx, id.Family, key)
	if err != nil {
		return nil, err
	}

	view := &models.ChatView{Room: room, Messages: messages, Cursor: cursor}
	for _, msg := range messages {
		if msg.ID > cursor && msg.Author != id.User {
			view.NewFromOthers = append(view.NewFromOthers, msg)
		}
	}
	if n := len(view.NewFromOthers); n > 0 {
		view.Notify = true
		view.Latest = view.NewFromOthers[n-1]
	}

	if len(messages) > 0 {
		newest := messages[len(messages)-1].ID
		if err := s.store.Settings().Set(ctx, id.Family, key, strconv.FormatInt(newest, 10)); err != nil {
			return nil, err
		}
		view.Cursor = newest
	}

	return view, nil
}

func (s *Service) chatCursor(ctx context.Context, family, key string) (int64, error) {
	value, ok, err := s.store.Settings().Get(ctx, family, key)
	if err != nil || !ok {
		return 0, err
	}

	cursor, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"family": family,
			"key":    key,
		}).Warn("Ignoring unreadable chat cursor")
		return 0, nil
	}
	return cursor, nil
}

// DeleteMessage removes one of the viewer's own recent messages
func (s *Service) DeleteMessage(ctx context.Context, id models.Identity, room string, messageID int64) error {
	room = roomOrDefault(room)
	if err := s.store.Chat().DeleteOwn(ctx, id.Family, room, id.User, messageID, chatDeleteWindow); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"family":  id.Family,
		"user":    id.User,
		"room":    room,
		"message": messageID,
	}).Info("Deleted chat message")
	return nil
}

func (s *Service) announcement(family, room string) *models.ChatMessage {
	return &models.ChatMessage{
		Family:    family,
		Room:      room,
		Author:    models.SystemAuthor,
		Text:      models.RoomAnnouncement(room),
		CreatedAt: s.now(),
	}
}

func roomOrDefault(room string) string {
	if room = strings.TrimSpace(room); room == "" {
		return models.DefaultRoom
	}
	return room
}
