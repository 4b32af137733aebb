package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"skillswap_server/models"
	"skillswap_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

type sessionStore interface {
	PutItem(ctx context.Context, tableName string, item interface{}) error
	GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error)
	DeleteItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) error
	ScanAll(ctx context.Context, tableName string) ([]map[string]types.AttributeValue, error)
	QueryItemsWithOptions(ctx context.Context, tableName string, keyConditionExpression string, expressionAttributeValues map[string]types.AttributeValue, expressionAttributeNames map[string]string, limit int32, latestFirst bool) ([]map[string]types.AttributeValue, error)
}

// SessionService is the ephemeral session broker: it opens time-boxed
// two-party chat rooms, hands each participant their own scoped link,
// and reclaims rooms once the 24h window closes.
type SessionService struct {
	Dynamo   sessionStore
	Now      func() time.Time
	ChatBase string
}

func NewSessionService(dynamo sessionStore, chatBase string) *SessionService {
	return &SessionService{
		Dynamo:   dynamo,
		Now:      time.Now,
		ChatBase: chatBase,
	}
}

// newRoomID returns an unguessable 16-hex-char room token.
func newRoomID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

// CreateSession opens a room for a matched pair, expiring 24 hours from
// now, and returns a participant-scoped link for each party with the
// peer's name pre-filled.
func (s *SessionService) CreateSession(ctx context.Context, userA, nameA, userB, nameB string) (models.ChatSession, models.SessionLink, models.SessionLink, error) {
	nameA = strings.TrimSpace(nameA)
	if nameA == "" {
		nameA = "User" + userA
	}
	nameB = strings.TrimSpace(nameB)
	if nameB == "" {
		nameB = "User" + userB
	}

	created := s.Now().UTC()
	session := models.ChatSession{
		RoomID: newRoomID(),
		Participants: map[string]string{
			userA: nameA,
			userB: nameB,
		},
		CreatedAt: created.Format(time.RFC3339),
		ExpiresAt: created.Add(models.SessionTTL).Format(time.RFC3339),
	}

	if err := s.Dynamo.PutItem(ctx, models.ChatSessionsTable, session); err != nil {
		return models.ChatSession{}, models.SessionLink{}, models.SessionLink{}, fmt.Errorf("failed to create chat session: %w", err)
	}

	linkA := s.buildLink(session.RoomID, userA, nameA, nameB)
	linkB := s.buildLink(session.RoomID, userB, nameB, nameA)
	log.Printf("💬 Created chat room %s for %s and %s, expires %s", session.RoomID, userA, userB, session.ExpiresAt)
	return session, linkA, linkB, nil
}

func (s *SessionService) buildLink(roomID, userID, myName, peerName string) models.SessionLink {
	return models.SessionLink{
		RoomID:   roomID,
		UserID:   userID,
		MyName:   myName,
		PeerName: peerName,
		URL: fmt.Sprintf("%s/chat?room=%s&me=%s&myName=%s&peerName=%s",
			s.ChatBase, roomID, url.QueryEscape(userID), url.QueryEscape(myName), url.QueryEscape(peerName)),
	}
}

// GetSession fetches a room by token. Callers validating access should
// also check IsExpired; a room past its window is still returned so the
// caller can produce an actionable "room expired" reason.
func (s *SessionService) GetSession(ctx context.Context, roomID string) (models.ChatSession, error) {
	key := map[string]types.AttributeValue{
		"roomId": &types.AttributeValueMemberS{Value: roomID},
	}
	item, err := s.Dynamo.GetItem(ctx, models.ChatSessionsTable, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.ChatSession{}, ErrNotFound
		}
		return models.ChatSession{}, fmt.Errorf("failed to get chat session %s: %w", roomID, err)
	}

	var session models.ChatSession
	if err := attributevalue.UnmarshalMap(item, &session); err != nil {
		return models.ChatSession{}, fmt.Errorf("failed to unmarshal chat session %s: %w", roomID, err)
	}
	return session, nil
}

// DeleteSession removes a room and is also the admin deletion path.
func (s *SessionService) DeleteSession(ctx context.Context, roomID string) error {
	key := map[string]types.AttributeValue{
		"roomId": &types.AttributeValueMemberS{Value: roomID},
	}
	return s.Dynamo.DeleteItem(ctx, models.ChatSessionsTable, key)
}

// IsExpired is the single expiry predicate, shared by the sweep and by
// message-time validation. Rows whose expiry cannot be parsed are left
// alone rather than reclaimed.
func IsExpired(session models.ChatSession, now time.Time) bool {
	expires, err := time.Parse(time.RFC3339, session.ExpiresAt)
	if err != nil {
		return false
	}
	return expires.Before(now)
}

// SendMessage appends a message to a room's ordered log after
// validating the room still exists and has not expired.
func (s *SessionService) SendMessage(ctx context.Context, msg models.Message) error {
	session, err := s.GetSession(ctx, msg.RoomID)
	if err != nil {
		return err
	}
	if IsExpired(session, s.Now()) {
		return ErrSessionExpired
	}

	if msg.MessageID == "" {
		msg.MessageID = uuid.New().String()
	}
	// createdAt is the table's range key, so it must sort bytewise in
	// time order; caller-supplied stamps are re-encoded to fixed width.
	if t, err := time.Parse(time.RFC3339Nano, msg.CreatedAt); err == nil {
		msg.CreatedAt = t.UTC().Format(models.TimestampLayout)
	} else {
		msg.CreatedAt = s.Now().UTC().Format(models.TimestampLayout)
	}
	msg.IsUnread = true

	if err := s.Dynamo.PutItem(ctx, models.MessagesTable, msg); err != nil {
		return fmt.Errorf("failed to store message for room %s: %w", msg.RoomID, err)
	}
	return nil
}

// GetMessages fetches up to limit messages for a room, oldest first.
func (s *SessionService) GetMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	keyCondition := "#roomId = :roomId"
	values := map[string]types.AttributeValue{
		":roomId": &types.AttributeValueMemberS{Value: roomID},
	}
	names := map[string]string{"#roomId": "roomId"}

	items, err := s.Dynamo.QueryItemsWithOptions(ctx, models.MessagesTable, keyCondition, values, names, int32(limit), false)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages for room %s: %w", roomID, err)
	}

	messages := make([]models.Message, 0, len(items))
	for _, item := range items {
		var msg models.Message
		if err := attributevalue.UnmarshalMap(item, &msg); err != nil {
			log.Printf("⚠️ Dropping malformed message row in room %s: %v", roomID, err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// UnreadCountFor reports how many messages in a room are still unread
// and came from someone other than userID. Rows are inspected raw; one
// with a payload that won't unmarshal still counts toward the badge.
func (s *SessionService) UnreadCountFor(ctx context.Context, roomID, userID string) (int, error) {
	keyCondition := "#roomId = :roomId"
	values := map[string]types.AttributeValue{
		":roomId": &types.AttributeValueMemberS{Value: roomID},
	}
	names := map[string]string{"#roomId": "roomId"}

	items, err := s.Dynamo.QueryItemsWithOptions(ctx, models.MessagesTable, keyCondition, values, names, models.MaxRoomMessages, false)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages for room %s: %w", roomID, err)
	}

	count := 0
	for _, item := range items {
		if !utils.ExtractBool(item, "isUnread") {
			continue
		}
		if utils.ExtractString(item, "senderId") == userID {
			continue
		}
		count++
	}
	return count, nil
}

// SweepExpired deletes every session whose window has closed. It works
// on a snapshot of the table taken up front, so rooms created while the
// sweep runs are never candidates. Individual deletion failures are
// logged and left for the next sweep.
func (s *SessionService) SweepExpired(ctx context.Context) (int, error) {
	items, err := s.Dynamo.ScanAll(ctx, models.ChatSessionsTable)
	if err != nil {
		return 0, fmt.Errorf("failed to scan chat sessions: %w", err)
	}

	now := s.Now()
	deleted := 0
	for _, item := range items {
		roomID := utils.ExtractString(item, "roomId")
		if roomID == "" {
			continue
		}
		var session models.ChatSession
		if err := attributevalue.UnmarshalMap(item, &session); err != nil {
			log.Printf("⚠️ Skipping unreadable session row %s: %v", roomID, err)
			continue
		}
		if !IsExpired(session, now) {
			continue
		}
		if err := s.DeleteSession(ctx, roomID); err != nil {
			log.Printf("❌ Failed to delete expired room %s, will retry next sweep: %v", roomID, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
