// Package notify delivers change notifications over SNS and feeds work
// messages onto SQS queues.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// snsAPI is the subset of the SNS client the publisher uses.
type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// ChangeSummary describes a saved dataset edit for the notification
// body.
type ChangeSummary struct {
	Dataset  string
	User     string
	Added    int
	Deleted  int
	Modified int
	Key      string
}

// Publisher sends change notifications to an SNS topic.
type Publisher struct {
	client snsAPI
	logger *slog.Logger
}

// NewPublisher wraps an SNS client.
func NewPublisher(client snsAPI, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{client: client, logger: logger}
}

// NewPublisherFromRegion builds a Publisher with a real SNS client.
func NewPublisherFromRegion(ctx context.Context, region string, logger *slog.Logger) (*Publisher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewPublisher(sns.NewFromConfig(awsCfg), logger), nil
}

// Publish posts a message to a topic and returns the message ID.
func (p *Publisher) Publish(ctx context.Context, topicARN, subject, message string) (string, error) {
	if topicARN == "" {
		return "", fmt.Errorf("publish: empty topic arn")
	}
	in := &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Message:  aws.String(message),
	}
	if subject != "" {
		in.Subject = aws.String(subject)
	}
	out, err := p.client.Publish(ctx, in)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", topicARN, err)
	}
	id := aws.ToString(out.MessageId)
	p.logger.Info("notification published", "topic", topicARN, "message_id", id)
	return id, nil
}

// PublishChange posts a human-readable summary of a dataset save. A
// message ID is returned for the audit trail.
func (p *Publisher) PublishChange(ctx context.Context, topicARN string, s ChangeSummary) (string, error) {
	subject := fmt.Sprintf("Dataset %s updated by %s", s.Dataset, s.User)
	return p.Publish(ctx, topicARN, subject, formatSummary(s))
}

func formatSummary(s ChangeSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset %s was updated by %s.\n\n", s.Dataset, s.User)
	fmt.Fprintf(&b, "Rows added:    %d\n", s.Added)
	fmt.Fprintf(&b, "Rows deleted:  %d\n", s.Deleted)
	fmt.Fprintf(&b, "Rows modified: %d\n", s.Modified)
	if s.Key != "" {
		fmt.Fprintf(&b, "\nObject: %s\n", s.Key)
	}
	return b.String()
}
