package dynamo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-notify-sync/internal/domain"
)

// DynamoDB attribute names used in expressions. Constants prevent silent
// runtime bugs caused by key typos.
const (
	fieldTenantUser = "tenant_user"
	fieldIsRead     = "is_read"
	fieldUpdatedAt  = "updated_at"
)

// NotificationRepo provides typed DynamoDB operations for the notifications
// table. Items are keyed by notification_id; the tenant_user-created_at GSI
// serves per-user listing, newest first.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewNotificationRepo(client *dynamodb.Client, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

// tenantUserKey is the GSI hash attribute, partitioning items by tenant and
// owner together so one query never crosses tenants.
func tenantUserKey(tenantID, userID string) string {
	return tenantID + "#" + userID
}

func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	item[fieldTenantUser] = &types.AttributeValueMemberS{Value: tenantUserKey(n.TenantID, n.UserID)}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("notification_id", notificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, domain.ErrNotFound
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser returns one page of a user's notifications, newest first, with
// an opaque cursor for the next page (empty when exhausted).
func (r *NotificationRepo) ListByUser(ctx context.Context, tenantID, userID string, limit int32, cursor string) ([]domain.Notification, string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("tenant_user-created_at-index"),
		KeyConditionExpression: aws.String("tenant_user = :tu"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tu": &types.AttributeValueMemberS{Value: tenantUserKey(tenantID, userID)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	}
	if cursor != "" {
		start, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("bad cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = start
	}

	out, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var notifications []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &notifications); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out.LastEvaluatedKey) > 0 {
		next, err = encodeCursor(out.LastEvaluatedKey)
		if err != nil {
			return nil, "", err
		}
	}
	return notifications, next, nil
}

// ListUnreadByUser returns every unread notification for a user.
func (r *NotificationRepo) ListUnreadByUser(ctx context.Context, tenantID, userID string) ([]domain.Notification, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("tenant_user-created_at-index"),
		KeyConditionExpression: aws.String("tenant_user = :tu"),
		FilterExpression:       aws.String("is_read = :unread"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tu":     &types.AttributeValueMemberS{Value: tenantUserKey(tenantID, userID)},
			":unread": &types.AttributeValueMemberBOOL{Value: false},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	var notifications []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkAsRead sets is_read on one notification. Idempotent: marking an
// already-read notification rewrites the same value.
func (r *NotificationRepo) MarkAsRead(ctx context.Context, notificationID string) (*domain.Notification, error) {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{
		fieldIsRead:    true,
		fieldUpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("notification_id", notificationID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(notification_id)"),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Attributes, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllAsRead marks every unread notification of a user read and returns
// the affected ids.
func (r *NotificationRepo) MarkAllAsRead(ctx context.Context, tenantID, userID string) ([]string, error) {
	unread, err := r.ListUnreadByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(unread))
	for _, n := range unread {
		if _, err := r.MarkAsRead(ctx, n.ID); err != nil {
			return ids, err
		}
		ids = append(ids, n.ID)
	}
	return ids, nil
}

func encodeCursor(key map[string]types.AttributeValue) (string, error) {
	plain := map[string]string{}
	for k, v := range key {
		s, ok := v.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("unsupported cursor attribute %q", k)
		}
		plain[k] = s.Value
	}
	raw, err := json.Marshal(plain)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeCursor(cursor string) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, err
	}
	var plain map[string]string
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, err
	}
	key := map[string]types.AttributeValue{}
	for k, v := range plain {
		key[k] = &types.AttributeValueMemberS{Value: v}
	}
	return key, nil
}
