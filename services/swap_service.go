package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"skillswap_server/models"
)

// ErrQuotaExceeded is returned when a submit arrives for a user whose
// daily allowance is spent.
var ErrQuotaExceeded = errors.New("quota exceeded")

type pendingLedger interface {
	Append(ctx context.Context, req models.SkillRequest) error
	ScanAll(ctx context.Context) ([]models.SkillRequest, error)
	DeleteMatched(ctx context.Context, userA, userB string) (int, error)
}

type quotaLedger interface {
	CanUse(ctx context.Context, userID string) (AdmitDecision, error)
	RecordUse(ctx context.Context, userID string) error
}

type sessionBroker interface {
	CreateSession(ctx context.Context, userA, nameA, userB, nameB string) (models.ChatSession, models.SessionLink, models.SessionLink, error)
}

// SwapService drives one request through the whole flow: admission,
// ledger append, match scan, consumption of the matched pair, session
// creation, usage bookkeeping and best-effort notification.
type SwapService struct {
	Ledger   pendingLedger
	Quota    quotaLedger
	Sessions sessionBroker
	Notifier Notifier

	// mu serializes the scan-match-delete sequence so two concurrent
	// requesters cannot both consume the same third candidate.
	mu sync.Mutex
}

// SessionLinks carries each party's own access handle to the new room.
type SessionLinks struct {
	LinkForRequester models.SessionLink `json:"linkForRequester"`
	LinkForPeer      models.SessionLink `json:"linkForPeer"`
}

// PeerSummary describes the matched counterpart to the requester.
type PeerSummary struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Skill  string `json:"skill"`
	Want   string `json:"want"`
}

// DeliveryResult reports one notification attempt. Failed delivery
// never reverts the match itself.
type DeliveryResult struct {
	UserID    string `json:"userId"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// MatchOutcome is the result of SubmitAndMatch.
type MatchOutcome struct {
	Matched     bool             `json:"matched"`
	Session     *SessionLinks    `json:"session,omitempty"`
	PeerSummary *PeerSummary     `json:"peerSummary,omitempty"`
	Deliveries  []DeliveryResult `json:"deliveries,omitempty"`
}

// TryAdmit is the pre-dialog admission check. A denial means the
// conversational flow never starts and no SkillRequest is created.
func (s *SwapService) TryAdmit(ctx context.Context, userID string) (AdmitDecision, error) {
	return s.Quota.CanUse(ctx, userID)
}

// RecordUse counts one request against the user's daily allowance.
func (s *SwapService) RecordUse(ctx context.Context, userID string) error {
	return s.Quota.RecordUse(ctx, userID)
}

// SubmitAndMatch appends the completed request to the pending ledger and
// evaluates it against the current pending set. On a match it removes
// exactly the two participating rows, opens a 24h chat session, records
// the usage and notifies both parties. No match is a normal outcome.
func (s *SwapService) SubmitAndMatch(ctx context.Context, req models.SkillRequest) (MatchOutcome, error) {
	decision, err := s.Quota.CanUse(ctx, req.UserID)
	if err != nil {
		return MatchOutcome{}, err
	}
	if !decision.Allowed {
		return MatchOutcome{}, ErrQuotaExceeded
	}

	if err := s.Ledger.Append(ctx, req); err != nil {
		return MatchOutcome{}, fmt.Errorf("failed to append request for %s: %w", req.UserID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// One retry: if consumption finds the winner's row already taken by
	// a concurrent match, the whole attempt is redone on a fresh scan.
	for attempt := 0; attempt < 2; attempt++ {
		pending, err := s.Ledger.ScanAll(ctx)
		if err != nil {
			return MatchOutcome{}, fmt.Errorf("failed to scan pending requests: %w", err)
		}

		winner, found := FindOneMatch(req, pending)
		if !found {
			return s.finishUnmatched(ctx, req.UserID), nil
		}

		if _, err := s.Ledger.DeleteMatched(ctx, req.UserID, winner.UserID); err != nil {
			if errors.Is(err, ErrCandidateGone) {
				log.Printf("🔁 Candidate %s vanished before deletion, retrying match for %s", winner.UserID, req.UserID)
				continue
			}
			var violation *ConsistencyViolation
			if errors.As(err, &violation) {
				log.Printf("❌ %v — aborting consumption for %s and %s", violation, req.UserID, winner.UserID)
			}
			return MatchOutcome{}, err
		}

		return s.finishMatch(ctx, req, winner)
	}

	// Both attempts lost the race. The request is still in the ledger,
	// so to the user this is the same outcome as finding no match.
	return s.finishUnmatched(ctx, req.UserID), nil
}

// finishUnmatched records the use and tells the requester to wait; the
// pending row stays in the ledger for later matches to find.
func (s *SwapService) finishUnmatched(ctx context.Context, userID string) MatchOutcome {
	if err := s.Quota.RecordUse(ctx, userID); err != nil {
		log.Printf("⚠️ Failed to record use for %s: %v", userID, err)
	}
	outcome := MatchOutcome{Matched: false}
	outcome.Deliveries = append(outcome.Deliveries,
		s.deliver(ctx, userID, "No match found yet. We'll notify you when a match is available."))
	return outcome
}

// finishMatch runs everything after consumption. The pair's rows are
// already gone, so from here failures are reported but nothing is
// rolled back.
func (s *SwapService) finishMatch(ctx context.Context, req, winner models.SkillRequest) (MatchOutcome, error) {
	session, linkForRequester, linkForPeer, err := s.Sessions.CreateSession(ctx, req.UserID, req.Name, winner.UserID, winner.Name)
	if err != nil {
		return MatchOutcome{}, fmt.Errorf("matched %s with %s but failed to open chat room: %w", req.UserID, winner.UserID, err)
	}
	log.Printf("🎉 Matched %s with %s in room %s", req.UserID, winner.UserID, session.RoomID)

	if err := s.Quota.RecordUse(ctx, req.UserID); err != nil {
		log.Printf("⚠️ Failed to record use for %s: %v", req.UserID, err)
	}

	outcome := MatchOutcome{
		Matched: true,
		Session: &SessionLinks{
			LinkForRequester: linkForRequester,
			LinkForPeer:      linkForPeer,
		},
		PeerSummary: &PeerSummary{
			UserID: winner.UserID,
			Name:   winner.Name,
			Skill:  winner.Skill,
			Want:   winner.Want,
		},
	}

	outcome.Deliveries = append(outcome.Deliveries,
		s.deliver(ctx, req.UserID, matchNotice(winner, linkForRequester.URL, "Match found!")),
		s.deliver(ctx, winner.UserID, matchNotice(req, linkForPeer.URL, "Someone matched with you!")),
	)
	return outcome, nil
}

// deliver sends one notice and converts the result into a
// DeliveryResult; errors are logged, never propagated.
func (s *SwapService) deliver(ctx context.Context, userID, text string) DeliveryResult {
	if s.Notifier == nil {
		return DeliveryResult{UserID: userID, Delivered: false, Error: "no notifier configured"}
	}
	if err := s.Notifier.Notify(ctx, userID, text); err != nil {
		log.Printf("⚠️ Could not notify %s: %v", userID, err)
		return DeliveryResult{UserID: userID, Delivered: false, Error: err.Error()}
	}
	return DeliveryResult{UserID: userID, Delivered: true}
}

func matchNotice(peer models.SkillRequest, link, headline string) string {
	offers := peer.Skill
	if offers == "" {
		offers = "—"
	}
	wants := peer.Want
	if wants == "" {
		wants = "—"
	}
	return fmt.Sprintf("🎉 %s\n\n👤 %s\n📗 Offers: %s\n📘 Wants: %s\n\n💬 Private chat (24h): %s",
		headline, peer.Name, offers, wants, link)
}
