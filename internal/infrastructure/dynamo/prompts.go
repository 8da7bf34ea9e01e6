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

// PromptRepo provides typed DynamoDB operations for the owned-prompts table.
// PK: user_id, SK: date_slot ("2006-01-02#morning"). GSI: prompt_id-index.
type PromptRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPromptRepo(client *dynamodb.Client, tableName string) *PromptRepo {
	return &PromptRepo{client: client, tableName: tableName}
}

func (r *PromptRepo) Put(ctx context.Context, p *domain.Prompt) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal prompt: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// GetByDateSlot fetches the prompt for an exact user/date/slot key.
func (r *PromptRepo) GetByDateSlot(ctx context.Context, userID, date string, slot domain.Slot) (*domain.Prompt, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "date_slot", domain.DateSlotKey(date, slot)),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("prompt not found: %w", domain.ErrNotFound)
	}
	var p domain.Prompt
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID resolves a prompt from its opaque id via the prompt_id GSI. Reply
// routing only knows the id recorded in the delivery state.
func (r *PromptRepo) GetByID(ctx context.Context, promptID string) (*domain.Prompt, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String("prompt_id-index"),
		KeyConditionExpression:   aws.String("#p = :v"),
		ExpressionAttributeNames: map[string]string{"#p": "prompt_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: promptID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("prompt %s not found: %w", promptID, domain.ErrNotFound)
	}
	var p domain.Prompt
	if err := attributevalue.UnmarshalMap(out.Items[0], &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetReply writes back the accumulated reply text for a prompt.
func (r *PromptRepo) SetReply(ctx context.Context, userID, dateSlot, reply string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      compositeKey("user_id", userID, "date_slot", dateSlot),
		UpdateExpression:         aws.String("SET reply = :r, updated_at = :u"),
		ConditionExpression:      aws.String("attribute_exists(user_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r": &types.AttributeValueMemberS{Value: reply},
			":u": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		if errIsConditionalCheckFailed(err) {
			return fmt.Errorf("prompt not found: %w", domain.ErrNotFound)
		}
		return err
	}
	return nil
}

// HasAny reports whether the user owns at least one prompt.
func (r *PromptRepo) HasAny(ctx context.Context, userID string) (bool, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		KeyConditionExpression:   aws.String("#u = :v"),
		ExpressionAttributeNames: map[string]string{"#u": "user_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: userID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return len(out.Items) > 0, nil
}
