package models

// UserQuotaRecord tracks a user's referral standing and daily allowance.
// One record per user, created lazily on first contact.
type UserQuotaRecord struct {
	UserID        string `dynamodbav:"userId" json:"userId"`
	ReferrerID    string `dynamodbav:"referrerId,omitempty" json:"referrerId,omitempty"`
	ReferredCount int    `dynamodbav:"referredCount" json:"referredCount"`
	Points        int    `dynamodbav:"points" json:"points"`
	FirstUseDone  bool   `dynamodbav:"firstUseDone" json:"firstUseDone"`
	DailyUsage    int    `dynamodbav:"dailyUsage" json:"dailyUsage"`
	LastResetDate string `dynamodbav:"lastResetDate" json:"lastResetDate"`
}

// ReferralEdge records who referred whom, kept for audit and points display.
type ReferralEdge struct {
	ReferrerID string `dynamodbav:"referrerId" json:"referrerId"`
	ReferredID string `dynamodbav:"referredId" json:"referredId"`
	CreatedAt  string `dynamodbav:"createdAt" json:"createdAt"`
}

// UserQuotasTable is the DynamoDB table name for per-user quota records
const UserQuotasTable = "UserQuotas"

// ReferralsTable is the DynamoDB table name for referral edges
const ReferralsTable = "Referrals"
