package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"skillswap_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is an in-memory stand-in for DynamoService, good enough
// for the expressions the services actually use.
type fakeDynamo struct {
	mu     sync.Mutex
	tables map[string][]map[string]types.AttributeValue

	failPut    error
	failScan   error
	failDelete error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{tables: make(map[string][]map[string]types.AttributeValue)}
}

func tableKeys(tableName string) []string {
	switch tableName {
	case models.PendingRequestsTable, models.UserQuotasTable:
		return []string{"userId"}
	case models.ChatSessionsTable:
		return []string{"roomId"}
	case models.MessagesTable:
		return []string{"roomId", "createdAt"}
	case models.ReferralsTable:
		return []string{"referrerId", "referredId"}
	}
	return []string{"userId"}
}

func attrString(item map[string]types.AttributeValue, field string) string {
	if attr, ok := item[field]; ok {
		if v, ok := attr.(*types.AttributeValueMemberS); ok {
			return v.Value
		}
	}
	return ""
}

func sameKey(a, b map[string]types.AttributeValue, keys []string) bool {
	for _, k := range keys {
		if attrString(a, k) != attrString(b, k) {
			return false
		}
	}
	return true
}

func (f *fakeDynamo) PutItem(_ context.Context, tableName string, item interface{}) error {
	if f.failPut != nil {
		return f.failPut
	}
	marshaled, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	keys := tableKeys(tableName)
	for i, existing := range f.tables[tableName] {
		if sameKey(existing, marshaled, keys) {
			f.tables[tableName][i] = marshaled
			return nil
		}
	}
	f.tables[tableName] = append(f.tables[tableName], marshaled)
	return nil
}

// putRaw injects a row without key dedup, for corrupted-ledger tests.
func (f *fakeDynamo) putRaw(tableName string, item map[string]types.AttributeValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[tableName] = append(f.tables[tableName], item)
}

func (f *fakeDynamo) GetItem(_ context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := tableKeys(tableName)
	for _, item := range f.tables[tableName] {
		if sameKey(item, key, keys) {
			return item, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeDynamo) DeleteItem(_ context.Context, tableName string, key map[string]types.AttributeValue) error {
	if f.failDelete != nil {
		return f.failDelete
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := tableKeys(tableName)
	rows := f.tables[tableName]
	for i, item := range rows {
		if sameKey(item, key, keys) {
			f.tables[tableName] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeDynamo) ScanAll(_ context.Context, tableName string) ([]map[string]types.AttributeValue, error) {
	if f.failScan != nil {
		return nil, f.failScan
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]types.AttributeValue, len(f.tables[tableName]))
	copy(out, f.tables[tableName])
	return out, nil
}

// UpdateItem supports the "ADD field :val, field :val" shape used by the
// quota service, creating the row when absent.
func (f *fakeDynamo) UpdateItem(_ context.Context, tableName string, updateExpression string, key map[string]types.AttributeValue, expressionAttributeValues map[string]types.AttributeValue, _ map[string]string) (map[string]types.AttributeValue, error) {
	if !strings.HasPrefix(updateExpression, "ADD ") {
		return nil, fmt.Errorf("fakeDynamo: unsupported update expression %q", updateExpression)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	keys := tableKeys(tableName)
	var row map[string]types.AttributeValue
	for _, item := range f.tables[tableName] {
		if sameKey(item, key, keys) {
			row = item
			break
		}
	}
	if row == nil {
		row = map[string]types.AttributeValue{}
		for k, v := range key {
			row[k] = v
		}
		f.tables[tableName] = append(f.tables[tableName], row)
	}

	for _, clause := range strings.Split(strings.TrimPrefix(updateExpression, "ADD "), ",") {
		parts := strings.Fields(strings.TrimSpace(clause))
		if len(parts) != 2 {
			return nil, fmt.Errorf("fakeDynamo: bad ADD clause %q", clause)
		}
		field, placeholder := parts[0], parts[1]
		delta, err := numericValue(expressionAttributeValues[placeholder])
		if err != nil {
			return nil, err
		}
		current := 0
		if attr, ok := row[field]; ok {
			current, err = numericValue(attr)
			if err != nil {
				return nil, err
			}
		}
		row[field] = &types.AttributeValueMemberN{Value: strconv.Itoa(current + delta)}
	}
	return row, nil
}

func (f *fakeDynamo) QueryItemsWithOptions(_ context.Context, tableName string, _ string, expressionAttributeValues map[string]types.AttributeValue, _ map[string]string, limit int32, latestFirst bool) ([]map[string]types.AttributeValue, error) {
	roomID := ""
	if attr, ok := expressionAttributeValues[":roomId"]; ok {
		if v, ok := attr.(*types.AttributeValueMemberS); ok {
			roomID = v.Value
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]types.AttributeValue
	for _, item := range f.tables[tableName] {
		if attrString(item, "roomId") == roomID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if latestFirst {
			return attrString(out[i], "createdAt") > attrString(out[j], "createdAt")
		}
		return attrString(out[i], "createdAt") < attrString(out[j], "createdAt")
	})
	if int32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func numericValue(attr types.AttributeValue) (int, error) {
	n, ok := attr.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("fakeDynamo: expected numeric attribute, got %T", attr)
	}
	return strconv.Atoi(n.Value)
}

func (f *fakeDynamo) count(tableName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[tableName])
}
