// internal/notify/notifier.go
package notify

import (
	"context"
	"fmt"
	"strings"

	"orderbot/internal/common/config"
	"orderbot/internal/common/logger"
	"orderbot/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Notifier alerts a human operator that a conversation needs them.
type Notifier interface {
	HandoffAlert(ctx context.Context, customerID string, reason models.HandoffReason, reasonText string, fields *models.KnownFields)
}

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// OperatorNotifier sends handoff alerts over SES email and SNS SMS,
// each gated by config. Send failures are logged and swallowed: the
// customer turn must not fail because an alert could not go out.
type OperatorNotifier struct {
	config    config.NotificationConfig
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewOperatorNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*OperatorNotifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &OperatorNotifier{
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "notifier"}),
		sesClient: ses.NewFromConfig(awsCfg),
		snsClient: sns.NewFromConfig(awsCfg),
	}, nil
}

func (n *OperatorNotifier) HandoffAlert(ctx context.Context, customerID string, reason models.HandoffReason, reasonText string, fields *models.KnownFields) {
	subject := fmt.Sprintf("Customer %s needs attention", customerID)
	body := buildAlertBody(customerID, reasonText, fields)

	if n.config.Email.Enabled && n.config.Email.OperatorEmail != "" {
		if err := n.sendEmail(ctx, n.config.Email.OperatorEmail, subject, body); err != nil {
			n.logger.Error("operator email failed", map[string]interface{}{
				"error":      err.Error(),
				"customerId": customerID,
				"reason":     string(reason),
			})
		}
	}

	if n.config.SMS.Enabled && n.config.SMS.OperatorPhone != "" {
		if err := n.sendSMS(ctx, n.config.SMS.OperatorPhone, body); err != nil {
			n.logger.Error("operator SMS failed", map[string]interface{}{
				"error":      err.Error(),
				"customerId": customerID,
				"reason":     string(reason),
			})
		}
	}
}

func buildAlertBody(customerID, reasonText string, fields *models.KnownFields) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer: %s\n%s\n", customerID, reasonText)

	if fields != nil {
		var known []string
		if fields.Quantity != nil {
			known = append(known, fmt.Sprintf("Quantity: %d", *fields.Quantity))
		}
		if fields.BudgetPerPiece != nil {
			known = append(known, fmt.Sprintf("Budget: ₹%d per piece", *fields.BudgetPerPiece))
		}
		if fields.Timeline != "" {
			known = append(known, "Needed: "+fields.Timeline)
		}
		if fields.Location != "" {
			known = append(known, "Location: "+fields.Location)
		}
		if len(known) > 0 {
			b.WriteString("\nKnown so far:\n")
			b.WriteString(strings.Join(known, "\n"))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (n *OperatorNotifier) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.Email.FromEmail),
	})
	return err
}

func (n *OperatorNotifier) sendSMS(ctx context.Context, to, message string) error {
	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

// NoopNotifier is used when no alert channel is configured.
type NoopNotifier struct{}

func (NoopNotifier) HandoffAlert(context.Context, string, models.HandoffReason, string, *models.KnownFields) {
}
