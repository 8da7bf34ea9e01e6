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

// StateRepo provides typed DynamoDB operations for the delivery-states table.
// PK: user_id. Rows are created lazily on first successful delivery and are
// only ever written through CommitDelivery's conditional update.
type StateRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewStateRepo(client *dynamodb.Client, tableName string) *StateRepo {
	return &StateRepo{client: client, tableName: tableName}
}

func (r *StateRepo) Get(ctx context.Context, userID string) (*domain.DeliveryState, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("delivery state not found: %w", domain.ErrNotFound)
	}
	var s domain.DeliveryState
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CommitDelivery upserts the state for userID atomically: the write is
// rejected when the row already records the same slot on the same local
// calendar day, so two overlapping sweeps can never both commit. A rejection
// surfaces as domain.ErrConflict.
func (r *StateRepo) CommitDelivery(ctx context.Context, userID string, slot domain.Slot, deliveredAt time.Time, localDate, itemID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("user_id", userID),
		UpdateExpression:    aws.String("SET last_slot = :s, last_date = :d, delivered_at = :t, last_item_id = :i"),
		ConditionExpression: aws.String("attribute_not_exists(last_slot) OR last_slot <> :s OR last_date <> :d"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(slot)},
			":d": &types.AttributeValueMemberS{Value: localDate},
			":t": &types.AttributeValueMemberS{Value: deliveredAt.UTC().Format(time.RFC3339)},
			":i": &types.AttributeValueMemberS{Value: itemID},
		},
	})
	if err != nil {
		if errIsConditionalCheckFailed(err) {
			return fmt.Errorf("delivery already recorded for %s/%s: %w", localDate, slot, domain.ErrConflict)
		}
		return err
	}
	return nil
}
