package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"skillswap_server/models"
	"skillswap_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ledgerStore is the slice of DynamoService the ledger needs.
type ledgerStore interface {
	PutItem(ctx context.Context, tableName string, item interface{}) error
	ScanAll(ctx context.Context, tableName string) ([]map[string]types.AttributeValue, error)
	DeleteItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) error
}

// RequestLedgerService stores not-yet-matched skill requests. Each row
// is keyed by userId, so a user re-submitting replaces their pending
// entry instead of accumulating duplicates.
type RequestLedgerService struct {
	Dynamo ledgerStore
}

// Append stores a new pending request. CreatedAt is stamped when the
// caller left it empty, and re-encoded into the fixed-width layout when
// the caller supplied one, so stored timestamps sort bytewise in time
// order regardless of how many fraction digits the caller sent.
func (s *RequestLedgerService) Append(ctx context.Context, req models.SkillRequest) error {
	if t, err := time.Parse(time.RFC3339Nano, req.CreatedAt); err == nil {
		req.CreatedAt = t.UTC().Format(models.TimestampLayout)
	} else {
		req.CreatedAt = time.Now().UTC().Format(models.TimestampLayout)
	}
	return s.Dynamo.PutItem(ctx, models.PendingRequestsTable, req)
}

// ScanAll returns every pending request in insertion order (oldest
// first). Rows come back from the store as untyped attribute maps and
// are parsed into SkillRequest at this boundary; malformed rows are
// logged and dropped rather than propagated into the matcher.
func (s *RequestLedgerService) ScanAll(ctx context.Context) ([]models.SkillRequest, error) {
	items, err := s.Dynamo.ScanAll(ctx, models.PendingRequestsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending requests: %w", err)
	}

	type timedRequest struct {
		req     models.SkillRequest
		created time.Time
	}
	rows := make([]timedRequest, 0, len(items))
	for _, item := range items {
		req, created, err := parsePendingRow(item)
		if err != nil {
			log.Printf("⚠️ Dropping malformed pending row: %v", err)
			continue
		}
		rows = append(rows, timedRequest{req: req, created: created})
	}

	// Chronological, not lexicographic: rows written before the layout
	// was fixed-width may carry trimmed fractions that sort wrong as
	// strings.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].created.Before(rows[j].created)
	})

	requests := make([]models.SkillRequest, len(rows))
	for i, row := range rows {
		requests[i] = row.req
	}
	return requests, nil
}

// DeleteMatched removes exactly the two pending rows belonging to the
// matched pair, by user id. Positions are located by a fresh scan, not
// cached indices, and deleted highest-first so earlier deletions cannot
// shift later ones. A batch that would remove more than two rows aborts
// with a ConsistencyViolation before anything is deleted; a batch that
// finds fewer than two means a concurrent match already consumed a row,
// reported as ErrCandidateGone so the caller can retry.
func (s *RequestLedgerService) DeleteMatched(ctx context.Context, userA, userB string) (int, error) {
	items, err := s.Dynamo.ScanAll(ctx, models.PendingRequestsTable)
	if err != nil {
		return 0, fmt.Errorf("failed to rescan pending requests before deletion: %w", err)
	}

	positions := collectPositionsByUserID(items, userA, userB)
	if len(positions) > 2 {
		return 0, &ConsistencyViolation{Rows: len(positions)}
	}
	if len(positions) < 2 {
		// One of the pair was consumed concurrently; delete nothing so
		// the caller can retry the whole match attempt.
		return 0, ErrCandidateGone
	}

	return s.deletePositions(ctx, items, positions)
}

// DeleteMatchedByContent is the degraded fallback for ledgers whose rows
// carry no stable user id: rows are located by their normalized
// (skill, want) pair instead. If unrelated users hold duplicate pairs
// this can select the wrong row, so identity-based deletion is preferred
// whenever a reliable key exists. The over-deletion guard still applies.
func (s *RequestLedgerService) DeleteMatchedByContent(ctx context.Context, reqA, reqB models.SkillRequest) (int, error) {
	items, err := s.Dynamo.ScanAll(ctx, models.PendingRequestsTable)
	if err != nil {
		return 0, fmt.Errorf("failed to rescan pending requests before deletion: %w", err)
	}

	positions := collectPositionsByContent(items, reqA, reqB)
	if len(positions) > 2 {
		return 0, &ConsistencyViolation{Rows: len(positions)}
	}
	if len(positions) < 2 {
		return 0, ErrCandidateGone
	}

	return s.deletePositions(ctx, items, positions)
}

func (s *RequestLedgerService) deletePositions(ctx context.Context, items []map[string]types.AttributeValue, positions []int) (int, error) {
	// Highest position first, mirroring the safe order for stores where
	// deletion shifts subsequent rows.
	sort.Sort(sort.Reverse(sort.IntSlice(positions)))

	deleted := 0
	for _, pos := range positions {
		userID := utils.ExtractString(items[pos], "userId")
		key := map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: userID},
		}
		if err := s.Dynamo.DeleteItem(ctx, models.PendingRequestsTable, key); err != nil {
			// A partially applied batch must not masquerade as success.
			return deleted, fmt.Errorf("failed to delete pending row for user %s: %w", userID, err)
		}
		deleted++
	}
	return deleted, nil
}

func collectPositionsByUserID(items []map[string]types.AttributeValue, userA, userB string) []int {
	var positions []int
	for i, item := range items {
		uid := utils.ExtractString(item, "userId")
		if uid == userA || uid == userB {
			positions = append(positions, i)
		}
	}
	return positions
}

func collectPositionsByContent(items []map[string]types.AttributeValue, reqA, reqB models.SkillRequest) []int {
	var positions []int
	for i, item := range items {
		skill := normalizeSkill(utils.ExtractString(item, "skill"))
		want := normalizeSkill(utils.ExtractString(item, "want"))
		if (skill == normalizeSkill(reqA.Skill) && want == normalizeSkill(reqA.Want)) ||
			(skill == normalizeSkill(reqB.Skill) && want == normalizeSkill(reqB.Want)) {
			positions = append(positions, i)
		}
	}
	return positions
}

func parsePendingRow(item map[string]types.AttributeValue) (models.SkillRequest, time.Time, error) {
	var req models.SkillRequest
	if err := attributevalue.UnmarshalMap(item, &req); err != nil {
		return models.SkillRequest{}, time.Time{}, fmt.Errorf("unmarshal: %w", err)
	}
	if req.UserID == "" {
		return models.SkillRequest{}, time.Time{}, fmt.Errorf("row has no userId: %v", item)
	}
	created, err := time.Parse(time.RFC3339Nano, req.CreatedAt)
	if err != nil {
		return models.SkillRequest{}, time.Time{}, fmt.Errorf("row for %s has unreadable createdAt %q: %w", req.UserID, req.CreatedAt, err)
	}
	return req, created, nil
}
