package models

// SkillRequest is one pending entry in the swap ledger: what the user
// offers to teach and what they want to learn. Either side may be blank,
// but a request with both blank can never match anything.
type SkillRequest struct {
	UserID    string `dynamodbav:"userId" json:"userId"`
	Name      string `dynamodbav:"name" json:"name"`
	Skill     string `dynamodbav:"skill" json:"skill"`
	Want      string `dynamodbav:"want" json:"want"`
	CreatedAt string `dynamodbav:"createdAt" json:"createdAt"`
}

// PendingRequestsTable is the DynamoDB table name for not-yet-matched requests
const PendingRequestsTable = "PendingRequests"
