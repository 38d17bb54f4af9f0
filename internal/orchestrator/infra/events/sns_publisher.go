// Package events publishes order lifecycle events to AWS SNS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/ports"
)

// TopicOrderPlaced is the event type attached to every message.
const TopicOrderPlaced = "order.placed"

type snsPublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type orderPlacedMessage struct {
	Topic          string      `json:"topic"`
	SagaID         string      `json:"sagaId"`
	OrderID        string      `json:"orderId"`
	CustomerID     string      `json:"customerId"`
	TotalAmount    json.Number `json:"totalAmount"`
	Status         string      `json:"status"`
	TrackingNumber string      `json:"trackingNumber"`
	Timestamp      time.Time   `json:"timestamp"`
}

// SNSPublisher implements ports.EventPublisher on top of an SNS topic.
type SNSPublisher struct {
	client   snsPublishAPI
	topicArn string
}

var _ ports.EventPublisher = (*SNSPublisher)(nil)

func NewSNSPublisher(client snsPublishAPI, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

// NewSNSClient loads the default AWS configuration for region. A non-empty
// endpoint overrides the service URL, which is how LocalStack is reached.
func NewSNSClient(ctx context.Context, region, endpoint string) (*sns.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: load AWS config: %w", err)
	}

	return sns.NewFromConfig(cfg, func(o *sns.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (p *SNSPublisher) PublishOrderPlaced(ctx context.Context, evt ports.OrderPlacedEvent) error {
	msg, err := json.Marshal(orderPlacedMessage{
		Topic:          TopicOrderPlaced,
		SagaID:         evt.SagaID,
		OrderID:        evt.OrderID,
		CustomerID:     evt.CustomerID,
		TotalAmount:    json.Number(evt.TotalAmount.String()),
		Status:         string(evt.Status),
		TrackingNumber: evt.TrackingNumber,
		Timestamp:      evt.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", TopicOrderPlaced, err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicArn),
		Message:  aws.String(string(msg)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"topic": {
				DataType:    aws.String("String"),
				StringValue: aws.String(TopicOrderPlaced),
			},
			"order_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(evt.OrderID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("events: publish %s for order %s: %w", TopicOrderPlaced, evt.OrderID, err)
	}
	return nil
}
