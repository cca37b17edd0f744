package tracking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/phishtrack/internal/pkg/logger"
)

// AnalyticsEvent is the message shape pushed to the reporting queue after an
// engagement signal has been committed. Consumers resolve the token on their
// side; the hot path never waits for them.
type AnalyticsEvent struct {
	EventType string    `json:"event_type"`
	Token     string    `json:"tracking_token"`
	LinkURL   string    `json:"link_url,omitempty"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher pushes committed tracking events to SQS for the external
// reporting layer. A nil *Publisher is a no-op, so deployments without a
// queue just skip publication.
type Publisher struct {
	client   *sqs.Client
	queueURL string
}

func NewPublisher(client *sqs.Client, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL}
}

// Publish is fire-and-forget: delivery happens on its own goroutine with its
// own deadline, and failures only log.
func (p *Publisher) Publish(ctx context.Context, evt AnalyticsEvent) {
	if p == nil {
		return
	}
	body, err := json.Marshal(evt)
	if err != nil {
		logger.Error("marshal analytics event", "error", err.Error())
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(p.queueURL),
			MessageBody: aws.String(string(body)),
		})
		if err != nil {
			logger.Error("publish analytics event", "error", err.Error())
		}
	}()
}
