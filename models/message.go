package models

type Message struct {
	RoomID    string `dynamodbav:"roomId" json:"roomId"`
	CreatedAt string `dynamodbav:"createdAt" json:"createdAt"`
	MessageID string `dynamodbav:"messageId" json:"messageId"`
	SenderID  string `dynamodbav:"senderId" json:"senderId"`
	Content   string `dynamodbav:"content" json:"content"`
	IsUnread  bool   `dynamodbav:"isUnread" json:"isUnread"`
}

// MessagesTable is the DynamoDB table name for chat messages
const MessagesTable = "Messages"
