package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqsAPI is the subset of the SQS client the sender uses.
type sqsAPI interface {
	GetQueueUrl(ctx context.Context, in *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// QueueSender sends messages to named SQS queues, resolving and caching
// queue URLs. Not safe for concurrent use.
type QueueSender struct {
	client sqsAPI
	urls   map[string]string
	logger *slog.Logger
}

// NewQueueSender wraps an SQS client.
func NewQueueSender(client sqsAPI, logger *slog.Logger) *QueueSender {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &QueueSender{client: client, urls: make(map[string]string), logger: logger}
}

// NewQueueSenderFromRegion builds a QueueSender with a real SQS client.
func NewQueueSenderFromRegion(ctx context.Context, region string, logger *slog.Logger) (*QueueSender, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewQueueSender(sqs.NewFromConfig(awsCfg), logger), nil
}

// Send delivers a message body to the named queue. Attributes become
// string message attributes.
func (q *QueueSender) Send(ctx context.Context, queueName, body string, attrs map[string]string) (string, error) {
	url, err := q.queueURL(ctx, queueName)
	if err != nil {
		return "", err
	}
	in := &sqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String(body),
	}
	if len(attrs) > 0 {
		in.MessageAttributes = make(map[string]sqstypes.MessageAttributeValue, len(attrs))
		for k, v := range attrs {
			in.MessageAttributes[k] = sqstypes.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}
	out, err := q.client.SendMessage(ctx, in)
	if err != nil {
		return "", fmt.Errorf("send to queue %s: %w", queueName, err)
	}
	id := aws.ToString(out.MessageId)
	q.logger.Info("queue message sent", "queue", queueName, "message_id", id)
	return id, nil
}

func (q *QueueSender) queueURL(ctx context.Context, name string) (string, error) {
	if url, ok := q.urls[name]; ok {
		return url, nil
	}
	out, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("resolve queue %s: %w", name, err)
	}
	url := aws.ToString(out.QueueUrl)
	q.urls[name] = url
	return url, nil
}
