package sns

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/prompt-courier/internal/config"
	"github.com/prompt-courier/internal/domain"
)

// Gateway delivers prompts as SMS via AWS SNS. The channel identity is the
// recipient phone number in E.164 form.
type Gateway struct {
	client *sns.Client
}

func NewGateway(cfg *config.Config) (*Gateway, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &Gateway{client: sns.NewFromConfig(awsCfg)}, nil
}

func (g *Gateway) Type() string { return domain.ChannelSMS }

// Escape is the identity: SMS carries no markup to break out of.
func (g *Gateway) Escape(s string) string { return s }

func (g *Gateway) Send(ctx context.Context, cfg *domain.DeliveryConfig, text string) error {
	if cfg.ChatID == "" {
		return fmt.Errorf("no phone number on config: %w", domain.ErrBadRequest)
	}
	_, err := g.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &cfg.ChatID,
		Message:     &text,
	})
	return err
}
