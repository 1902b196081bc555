// Package dispatch implements deferred-dispatch submission: handing a
// LATER decision's event, schedule_at, and audit_id to a queue that
// will redeliver it once its scheduled time arrives.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/config"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
)

// sqsMaxDelaySeconds is the hard ceiling SQS imposes on a single
// message's DelaySeconds; schedule_at further out than this is sent
// with the maximum delay and relies on a redelivery-time consumer to
// re-check schedule_at before release (documented limitation, see
// DESIGN.md).
const sqsMaxDelaySeconds = 900

// Dispatcher submits deferred notifications for later delivery.
type Dispatcher interface {
	ScheduleDeferred(ctx context.Context, event *domain.Event, scheduleAt time.Time, auditID string) error
}

// sqsAPI is the subset of *sqs.Client the dispatcher needs, narrowed so
// it can be faked in tests without a real AWS connection.
type sqsAPI interface {
	SendMessage(ctx context.Context, input *sqs.SendMessageInput, opts ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSDispatcher implements Dispatcher over an SQS queue.
type SQSDispatcher struct {
	client sqsAPI
	config config.SQS
	log    *zap.Logger
}

// NewSQSDispatcher builds a Dispatcher against the configured SQS
// queue, optionally pointed at a local endpoint (e.g. ElasticMQ) for
// development.
func NewSQSDispatcher(ctx context.Context, cfg config.SQS, log *zap.Logger) (*SQSDispatcher, error) {
	configOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	var clientOpts []func(*sqs.Options)

	if cfg.Endpoint != "" {
		log.Info("configuring SQS for local development", zap.String("endpoint", cfg.Endpoint))
		configOpts = append(configOpts,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))
		clientOpts = append(clientOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg, clientOpts...)

	log.Info("SQS dispatcher created", zap.String("region", cfg.Region), zap.String("queue_url", cfg.QueueURL))

	return &SQSDispatcher{client: client, config: cfg, log: log}, nil
}

type deferredMessage struct {
	AuditID    string    `json:"audit_id"`
	UserID     string    `json:"user_id"`
	EventType  string    `json:"event_type"`
	Message    string    `json:"message"`
	Source     string    `json:"source"`
	Channel    string    `json:"channel"`
	ScheduleAt time.Time `json:"schedule_at"`
}

// ScheduleDeferred submits the event for redelivery at scheduleAt. SQS
// caps native delay at 900s; longer delays are clamped and the
// schedule_at is carried in the message body for the consumer to
// honor.
func (d *SQSDispatcher) ScheduleDeferred(ctx context.Context, event *domain.Event, scheduleAt time.Time, auditID string) error {
	delay := int32(time.Until(scheduleAt).Seconds())
	if delay < 0 {
		delay = 0
	}
	if delay > sqsMaxDelaySeconds {
		delay = sqsMaxDelaySeconds
	}

	body, err := json.Marshal(deferredMessage{
		AuditID:    auditID,
		UserID:     event.UserID,
		EventType:  event.EventType,
		Message:    event.Message,
		Source:     event.Source,
		Channel:    string(event.Channel),
		ScheduleAt: scheduleAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal deferred message: %w", err)
	}

	_, err = d.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:     aws.String(d.config.QueueURL),
		MessageBody:  aws.String(string(body)),
		DelaySeconds: delay,
		MessageAttributes: map[string]types.MessageAttributeValue{
			"EventType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.EventType),
			},
			"AuditID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(auditID),
			},
		},
	})
	if err != nil {
		d.log.Error("failed to send deferred message to SQS",
			zap.String("audit_id", auditID),
			zap.String("event_type", event.EventType),
			zap.Error(err))
		return fmt.Errorf("failed to send deferred message: %w", err)
	}

	d.log.Info("deferred notification scheduled",
		zap.String("audit_id", auditID),
		zap.Time("schedule_at", scheduleAt),
		zap.Int32("delay_seconds", delay))

	return nil
}
