package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"skillswap_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const dateLayout = "2006-01-02"

type quotaStore interface {
	GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error)
	PutItem(ctx context.Context, tableName string, item interface{}) error
	UpdateItem(ctx context.Context, tableName string, updateExpression string, key map[string]types.AttributeValue, expressionAttributeValues map[string]types.AttributeValue, expressionAttributeNames map[string]string) (map[string]types.AttributeValue, error)
}

// QuotaService is the persisted quota/referral ledger: admission control
// plus referral bookkeeping, one UserQuotaRecord per user, loaded on
// demand and written through. A per-user mutex serializes the
// read-modify-write cycle for a single user.
type QuotaService struct {
	Dynamo quotaStore
	Now    func() time.Time

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

func NewQuotaService(dynamo quotaStore) *QuotaService {
	return &QuotaService{
		Dynamo:    dynamo,
		Now:       time.Now,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// AdmitDecision is the front-end-facing admission result.
type AdmitDecision struct {
	Allowed       bool   `json:"allowed"`
	Reason        string `json:"reason,omitempty"`
	RemainingUses int    `json:"remainingUses"`
}

// DailyLimit computes the user's current daily allowance from their
// referral count: a base of 2, a bracket bonus, and +1 per referral
// stacking on top of the bracket.
func DailyLimit(referredCount int) int {
	limit := models.BaseDailyAllowance + referredCount
	switch {
	case referredCount >= 5:
		limit += models.UnlimitedSentinel
	case referredCount >= 3:
		limit += models.TierTwoBonus
	case referredCount >= 1:
		limit += models.TierOneBonus
	}
	return limit
}

func (s *QuotaService) lockFor(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

func (s *QuotaService) today() string {
	return s.Now().UTC().Format(dateLayout)
}

// load fetches a user's record, treating absence as a first-time user
// with a fresh record.
func (s *QuotaService) load(ctx context.Context, userID string) (models.UserQuotaRecord, bool, error) {
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}
	item, err := s.Dynamo.GetItem(ctx, models.UserQuotasTable, key)
	if errors.Is(err, ErrNotFound) {
		return models.UserQuotaRecord{UserID: userID, LastResetDate: s.today()}, false, nil
	}
	if err != nil {
		return models.UserQuotaRecord{}, false, fmt.Errorf("failed to load quota record for %s: %w", userID, err)
	}

	var rec models.UserQuotaRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return models.UserQuotaRecord{}, false, fmt.Errorf("failed to unmarshal quota record for %s: %w", userID, err)
	}
	return rec, true, nil
}

// resetIfNewDay zeroes the daily counter the first time the record is
// touched on a new calendar day. Returns true if the record changed.
func (s *QuotaService) resetIfNewDay(rec *models.UserQuotaRecord) bool {
	today := s.today()
	if rec.LastResetDate != today {
		rec.DailyUsage = 0
		rec.LastResetDate = today
		return true
	}
	return false
}

// CanUse reports whether the user may start a new match-seeking request.
// The first-ever use is always allowed; after that the daily counter is
// checked against the referral-tiered limit. Checked before the dialog
// begins, so a denial creates no SkillRequest.
func (s *QuotaService) CanUse(ctx context.Context, userID string) (AdmitDecision, error) {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	rec, existed, err := s.load(ctx, userID)
	if err != nil {
		return AdmitDecision{}, err
	}
	if s.resetIfNewDay(&rec) && existed {
		if err := s.Dynamo.PutItem(ctx, models.UserQuotasTable, rec); err != nil {
			return AdmitDecision{}, fmt.Errorf("failed to persist daily reset for %s: %w", userID, err)
		}
	}

	limit := DailyLimit(rec.ReferredCount)
	remaining := limit - rec.DailyUsage
	if remaining < 0 {
		remaining = 0
	}

	if !rec.FirstUseDone {
		return AdmitDecision{Allowed: true, RemainingUses: remaining}, nil
	}
	if rec.DailyUsage < limit {
		return AdmitDecision{Allowed: true, RemainingUses: remaining}, nil
	}
	return AdmitDecision{Allowed: false, Reason: models.ReasonQuotaExceeded, RemainingUses: 0}, nil
}

// RecordUse counts one match-seeking request against today's allowance
// and marks the free first use as spent.
func (s *QuotaService) RecordUse(ctx context.Context, userID string) error {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	rec, _, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	s.resetIfNewDay(&rec)
	rec.DailyUsage++
	rec.FirstUseDone = true

	if err := s.Dynamo.PutItem(ctx, models.UserQuotasTable, rec); err != nil {
		return fmt.Errorf("failed to record use for %s: %w", userID, err)
	}
	return nil
}

// RegisterReferral handles the first sighting of a new user. If they
// arrived through a referral link and the referrer is a known, distinct
// user, the referrer is credited exactly once: referral counting is
// idempotent per referred user, so re-registration is a no-op.
// Returns true when the referrer was credited.
func (s *QuotaService) RegisterReferral(ctx context.Context, newUserID, referrerID string) (bool, error) {
	lock := s.lockFor(newUserID)
	lock.Lock()
	defer lock.Unlock()

	rec, existed, err := s.load(ctx, newUserID)
	if err != nil {
		return false, err
	}
	if existed {
		return false, nil // already known, never re-credit
	}

	credit := false
	if referrerID != "" && referrerID != newUserID {
		_, referrerExists, err := s.load(ctx, referrerID)
		if err != nil {
			return false, err
		}
		if referrerExists {
			rec.ReferrerID = referrerID
			credit = true
		} else {
			log.Printf("⚠️ Referral for %s names unknown referrer %s, ignoring", newUserID, referrerID)
		}
	}

	if err := s.Dynamo.PutItem(ctx, models.UserQuotasTable, rec); err != nil {
		return false, fmt.Errorf("failed to create quota record for %s: %w", newUserID, err)
	}
	if !credit {
		return false, nil
	}

	// Atomic increment on the referrer's side; no referrer lock needed.
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: referrerID},
	}
	update := "ADD referredCount :one, points :pts"
	values := map[string]types.AttributeValue{
		":one": &types.AttributeValueMemberN{Value: "1"},
		":pts": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", models.ReferralPoints)},
	}
	if _, err := s.Dynamo.UpdateItem(ctx, models.UserQuotasTable, update, key, values, nil); err != nil {
		return false, fmt.Errorf("failed to credit referrer %s: %w", referrerID, err)
	}

	edge := models.ReferralEdge{
		ReferrerID: referrerID,
		ReferredID: newUserID,
		CreatedAt:  s.Now().UTC().Format(time.RFC3339),
	}
	if err := s.Dynamo.PutItem(ctx, models.ReferralsTable, edge); err != nil {
		// The credit already landed; the audit edge is best-effort.
		log.Printf("⚠️ Failed to record referral edge %s -> %s: %v", referrerID, newUserID, err)
	}

	log.Printf("🎉 User %s referred %s (+%d points)", referrerID, newUserID, models.ReferralPoints)
	return true, nil
}

// Points returns the user's referral points for display.
func (s *QuotaService) Points(ctx context.Context, userID string) (int, error) {
	rec, _, err := s.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	return rec.Points, nil
}
