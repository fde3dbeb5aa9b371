package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/relaymail/internal/config"
)

// SESTransport delivers envelopes via AWS SES using the SDK v2.
type SESTransport struct {
	client *sesv2.Client
}

// NewSESTransport creates an SES transport. Static credentials from config
// take precedence; otherwise the default credential chain (IAM role on ECS)
// is used.
func NewSESTransport(cfg config.SESConfig) (*SESTransport, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize AWS config: %w", err)
	}

	return &SESTransport{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// Send delivers one envelope through SES.
func (t *SESTransport) Send(ctx context.Context, env *Envelope) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(env.From),
		Destination:      &types.Destination{ToAddresses: []string{env.To}},
		ReplyToAddresses: []string{env.ReplyToAddress()},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(env.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(env.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	if _, err := t.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
