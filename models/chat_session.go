package models

// ChatSession is a time-boxed private room for a matched pair.
// Participants maps each user's id to their display name.
type ChatSession struct {
	RoomID       string            `dynamodbav:"roomId" json:"roomId"`
	Participants map[string]string `dynamodbav:"participants" json:"participants"`
	CreatedAt    string            `dynamodbav:"createdAt" json:"createdAt"`
	ExpiresAt    string            `dynamodbav:"expiresAt" json:"expiresAt"`
}

// SessionLink is one participant's access handle to a room. Each party
// gets their own link with the peer's name pre-filled so the chat page
// can render without a second lookup.
type SessionLink struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	MyName   string `json:"myName"`
	PeerName string `json:"peerName"`
	URL      string `json:"url"`
}

// ChatSessionsTable is the DynamoDB table name for active chat sessions
const ChatSessionsTable = "ChatSessions"
