package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/prompt-courier/internal/domain"
)

// LinkCodeRepo manages one-time channel-linking codes.
// PK: code_id, GSI: code-index. Expired rows age out via DynamoDB TTL, but
// correctness never depends on that — every read re-checks expiry.
type LinkCodeRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewLinkCodeRepo(client *dynamodb.Client, tableName string) *LinkCodeRepo {
	return &LinkCodeRepo{client: client, tableName: tableName}
}

func (r *LinkCodeRepo) Put(ctx context.Context, lc *domain.LinkCode) error {
	item, err := attributevalue.MarshalMap(lc)
	if err != nil {
		return fmt.Errorf("marshal link code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// GetByCode returns the unconsumed link code matching the exact 6-digit code.
func (r *LinkCodeRepo) GetByCode(ctx context.Context, codeStr string) (*domain.LinkCode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String("code-index"),
		KeyConditionExpression:   aws.String("#c = :v"),
		FilterExpression:         aws.String("attribute_not_exists(consumed_at)"),
		ExpressionAttributeNames: map[string]string{"#c": "code"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: codeStr},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("link code not found: %w", domain.ErrNotFound)
	}
	var lc domain.LinkCode
	if err := attributevalue.UnmarshalMap(out.Items[0], &lc); err != nil {
		return nil, err
	}
	return &lc, nil
}

// LatestPending returns the most recently issued unconsumed, unexpired code
// across all users. Backs the permissive greeting-only linking path.
func (r *LinkCodeRepo) LatestPending(ctx context.Context, now time.Time) (*domain.LinkCode, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("attribute_not_exists(consumed_at) AND expires_at > :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Unix())},
		},
	})
	if err != nil {
		return nil, err
	}
	var codes []domain.LinkCode
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &codes); err != nil {
		return nil, err
	}
	var latest *domain.LinkCode
	for i := range codes {
		if latest == nil || codes[i].CreatedAt.After(latest.CreatedAt) {
			latest = &codes[i]
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("no pending link code: %w", domain.ErrNotFound)
	}
	return latest, nil
}

// Consume marks the code used and binds the channel identity. The conditional
// write guarantees first-writer-wins: a second consumer (or a consumer of an
// expired code) gets domain.ErrConflict.
func (r *LinkCodeRepo) Consume(ctx context.Context, codeID, chatID string, now time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("code_id", codeID),
		UpdateExpression:    aws.String("SET consumed_at = :t, chat_id = :c"),
		ConditionExpression: aws.String("attribute_not_exists(consumed_at) AND expires_at > :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":   &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339)},
			":c":   &types.AttributeValueMemberS{Value: chatID},
			":now": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Unix())},
		},
	})
	if err != nil {
		if errIsConditionalCheckFailed(err) {
			return fmt.Errorf("link code already consumed or expired: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}
