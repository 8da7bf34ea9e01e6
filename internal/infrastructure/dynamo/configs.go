package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/prompt-courier/internal/domain"
)

// ConfigRepo provides typed DynamoDB operations for the delivery-configs table.
// PK: user_id. GSIs: chat_id-index, enable-index.
type ConfigRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewConfigRepo(client *dynamodb.Client, tableName string) *ConfigRepo {
	return &ConfigRepo{client: client, tableName: tableName}
}

func (r *ConfigRepo) Put(ctx context.Context, c *domain.DeliveryConfig) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal delivery config: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ConfigRepo) Get(ctx context.Context, userID string) (*domain.DeliveryConfig, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("delivery config not found: %w", domain.ErrNotFound)
	}
	var c domain.DeliveryConfig
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByChatID resolves the config owning a channel identity via the chat_id GSI.
func (r *ConfigRepo) GetByChatID(ctx context.Context, chatID string) (*domain.DeliveryConfig, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("chat_id-index"),
		KeyConditionExpression:    aws.String("#c = :v"),
		ExpressionAttributeNames:  map[string]string{"#c": "chat_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: chatID}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("delivery config not found for chat %s: %w", chatID, domain.ErrNotFound)
	}
	var c domain.DeliveryConfig
	if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConfigRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// ListActive returns every active config via the enable GSI, following
// pagination internally. Sweep fan-out iterates the full set.
func (r *ConfigRepo) ListActive(ctx context.Context) ([]domain.DeliveryConfig, error) {
	var configs []domain.DeliveryConfig
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String("enable-index"),
			KeyConditionExpression:    aws.String("#e = :one"),
			ExpressionAttributeNames:  map[string]string{"#e": "enable"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.DeliveryConfig
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		configs = append(configs, page...)
		if out.LastEvaluatedKey == nil {
			return configs, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// errIsConditionalCheckFailed reports whether err is a DynamoDB conditional-write rejection.
func errIsConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
