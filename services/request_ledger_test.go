package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"skillswap_server/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func pendingRow(userID, skill, want, createdAt string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId":    &types.AttributeValueMemberS{Value: userID},
		"name":      &types.AttributeValueMemberS{Value: "u" + userID},
		"skill":     &types.AttributeValueMemberS{Value: skill},
		"want":      &types.AttributeValueMemberS{Value: want},
		"createdAt": &types.AttributeValueMemberS{Value: createdAt},
	}
}

func seedLedger(t *testing.T, svc *RequestLedgerService, reqs ...models.SkillRequest) {
	t.Helper()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, r := range reqs {
		r.CreatedAt = base.Add(time.Duration(i) * time.Second).Format(time.RFC3339Nano)
		if err := svc.Append(context.Background(), r); err != nil {
			t.Fatalf("seeding %s: %v", r.UserID, err)
		}
	}
}

func TestScanAllPreservesInsertionOrder(t *testing.T) {
	fake := newFakeDynamo()
	svc := &RequestLedgerService{Dynamo: fake}
	seedLedger(t, svc,
		req("1", "guitar", "spanish"),
		req("2", "piano", "drums"),
		req("3", "spanish", "guitar"),
	)

	got, err := svc.ScanAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows, want 3", len(got))
	}
	for i, want := range []string{"1", "2", "3"} {
		if got[i].UserID != want {
			t.Errorf("row %d = user %s, want %s", i, got[i].UserID, want)
		}
	}
}

func TestScanAllOrdersByTimeNotByString(t *testing.T) {
	fake := newFakeDynamo()
	svc := &RequestLedgerService{Dynamo: fake}

	// Trimmed fractions invert as strings: ".1Z" sorts after ".15Z"
	// because 'Z' > '5'. Rows written before stamps were fixed-width can
	// carry exactly these, and the scan must still order them by time.
	fake.putRaw(models.PendingRequestsTable, pendingRow("old", "guitar", "spanish", "2026-03-01T10:00:00.1Z"))
	fake.putRaw(models.PendingRequestsTable, pendingRow("new", "piano", "drums", "2026-03-01T10:00:00.15Z"))

	got, err := svc.ScanAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].UserID != "old" || got[1].UserID != "new" {
		t.Errorf("order = [%s, %s], want [old, new]", got[0].UserID, got[1].UserID)
	}
}

func TestAppendNormalizesTimestamps(t *testing.T) {
	fake := newFakeDynamo()
	svc := &RequestLedgerService{Dynamo: fake}

	r := req("1", "guitar", "spanish")
	r.CreatedAt = "2026-03-01T10:00:00.15Z"
	if err := svc.Append(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if err := svc.Append(context.Background(), req("2", "piano", "drums")); err != nil {
		t.Fatal(err)
	}

	items, err := fake.ScanAll(context.Background(), models.PendingRequestsTable)
	if err != nil {
		t.Fatal(err)
	}
	for _, item := range items {
		stored := attrString(item, "createdAt")
		parsed, err := time.Parse(time.RFC3339Nano, stored)
		if err != nil {
			t.Fatalf("stored createdAt %q does not parse: %v", stored, err)
		}
		if want := parsed.UTC().Format(models.TimestampLayout); stored != want {
			t.Errorf("stored createdAt = %q, want fixed-width %q", stored, want)
		}
	}
	if got := attrString(items[0], "createdAt"); got != "2026-03-01T10:00:00.150000000Z" {
		t.Errorf("client-supplied stamp stored as %q, want it widened, not replaced", got)
	}
}

func TestScanAllDropsMalformedRows(t *testing.T) {
	fake := newFakeDynamo()
	svc := &RequestLedgerService{Dynamo: fake}
	seedLedger(t, svc, req("1", "guitar", "spanish"))

	// A row with no userId can never be matched or safely deleted.
	fake.putRaw(models.PendingRequestsTable, map[string]types.AttributeValue{
		"name":  &types.AttributeValueMemberS{Value: "nobody"},
		"skill": &types.AttributeValueMemberS{Value: "piano"},
	})
	// Nor can one whose createdAt cannot be placed in time.
	fake.putRaw(models.PendingRequestsTable, pendingRow("x", "drums", "piano", "yesterday-ish"))

	got, err := svc.ScanAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want the malformed one dropped", len(got))
	}
	if got[0].UserID != "1" {
		t.Errorf("surviving row = %s, want 1", got[0].UserID)
	}
}

func TestDeleteMatchedRemovesExactlyTwo(t *testing.T) {
	fake := newFakeDynamo()
	svc := &RequestLedgerService{Dynamo: fake}

	// Unrelated rows deliberately carry the same skill/want pairs as the
	// matched pair; identity-based deletion must not touch them.
	seedLedger(t, svc,
		req("bystander1", "guitar", "spanish"),
		req("bystander2", "spanish", "guitar"),
		req("a", "guitar", "spanish"),
		req("b", "spanish", "guitar"),
		req("bystander3", "piano", "drums"),
	)

	deleted, err := svc.DeleteMatched(context.Background(), "a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("deleted %d rows, want 2", deleted)
	}
	if n := fake.count(models.PendingRequestsTable); n != 3 {
		t.Errorf("%d rows remain, want 3", n)
	}

	remaining, err := svc.ScanAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range remaining {
		if r.UserID == "a" || r.UserID == "b" {
			t.Errorf("matched row %s should be gone", r.UserID)
		}
	}
}

func TestDeleteMatchedRejectsOverdeletion(t *testing.T) {
	fake := newFakeDynamo()
	svc := &RequestLedgerService{Dynamo: fake}
	seedLedger(t, svc, req("a", "guitar", "spanish"), req("b", "spanish", "guitar"))

	// A corrupted ledger holding a duplicate row for user a would make
	// the batch remove three rows; the whole deletion must abort.
	fake.putRaw(models.PendingRequestsTable, pendingRow("a", "guitar", "spanish", "2026-03-01T11:00:00Z"))

	_, err := svc.DeleteMatched(context.Background(), "a", "b")
	var violation *ConsistencyViolation
	if !errors.As(err, &violation) {
		t.Fatalf("err = %v, want ConsistencyViolation", err)
	}
	if violation.Rows != 3 {
		t.Errorf("violation reports %d rows, want 3", violation.Rows)
	}
	if n := fake.count(models.PendingRequestsTable); n != 3 {
		t.Errorf("aborted deletion removed rows: %d remain, want 3", n)
	}
}

func TestDeleteMatchedCandidateGoneDeletesNothing(t *testing.T) {
	fake := newFakeDynamo()
	svc := &RequestLedgerService{Dynamo: fake}
	seedLedger(t, svc, req("a", "guitar", "spanish"))

	// b was consumed by a concurrent match before we got here.
	_, err := svc.DeleteMatched(context.Background(), "a", "b")
	if !errors.Is(err, ErrCandidateGone) {
		t.Fatalf("err = %v, want ErrCandidateGone", err)
	}
	if n := fake.count(models.PendingRequestsTable); n != 1 {
		t.Errorf("requester's row must survive a lost race, %d rows remain", n)
	}
}

func TestDeleteMatchedPartialFailureIsReported(t *testing.T) {
	fake := newFakeDynamo()
	svc := &RequestLedgerService{Dynamo: fake}
	seedLedger(t, svc, req("a", "guitar", "spanish"), req("b", "spanish", "guitar"))

	fake.failDelete = fmt.Errorf("store down")

	deleted, err := svc.DeleteMatched(context.Background(), "a", "b")
	if err == nil {
		t.Fatal("a partially failed batch must not be reported as success")
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}

func TestDeleteMatchedByContent(t *testing.T) {
	fake := newFakeDynamo()
	svc := &RequestLedgerService{Dynamo: fake}
	seedLedger(t, svc,
		req("a", "guitar", "spanish"),
		req("b", "spanish", "guitar"),
		req("c", "piano", "drums"),
	)

	deleted, err := svc.DeleteMatchedByContent(context.Background(),
		req("a", "Guitar ", "Spanish"), req("b", "spanish", "guitar"))
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("deleted %d rows, want 2", deleted)
	}
	if n := fake.count(models.PendingRequestsTable); n != 1 {
		t.Errorf("%d rows remain, want 1", n)
	}
}

func TestDeleteMatchedByContentRejectsDuplicatePairs(t *testing.T) {
	fake := newFakeDynamo()
	svc := &RequestLedgerService{Dynamo: fake}
	seedLedger(t, svc,
		req("a", "guitar", "spanish"),
		req("b", "spanish", "guitar"),
		// The known hazard: an unrelated user with an identical pair.
		req("imposter", "guitar", "spanish"),
	)

	_, err := svc.DeleteMatchedByContent(context.Background(),
		req("a", "guitar", "spanish"), req("b", "spanish", "guitar"))
	var violation *ConsistencyViolation
	if !errors.As(err, &violation) {
		t.Fatalf("err = %v, want ConsistencyViolation", err)
	}
	if n := fake.count(models.PendingRequestsTable); n != 3 {
		t.Errorf("aborted deletion removed rows: %d remain, want 3", n)
	}
}
