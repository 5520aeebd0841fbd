package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/alamshoaib134/git-secret-scanner/models"
)

// SQSAPI is the part of *sqs.Client the producer uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Submitter accepts scan requests. *Orchestrator implements it.
type Submitter interface {
	Submit(ctx context.Context, url string) (models.ScanStatus, error)
}

var _ Submitter = (*Orchestrator)(nil)

const (
	sqsMaxMessages  = 10
	sqsWaitSeconds  = 20
	sqsReceiveRetry = 5 * time.Second
)

// NewSQSClient builds a client from the default AWS credential chain.
func NewSQSClient(ctx context.Context) (*sqs.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sqs.NewFromConfig(cfg), nil
}

// SQSProducer long-polls a queue of {"git_url": "..."} messages and submits
// each one as a scan. A message is deleted once its scan is queued, or
// right away when it can never become one. Other submission errors leave it
// on the queue for redelivery.
type SQSProducer struct {
	Client   SQSAPI
	QueueURL string
	Jobs     Submitter
	Log      *zap.SugaredLogger

	retryDelay time.Duration
}

// Run polls until ctx is done. Receive errors are logged and retried.
func (p *SQSProducer) Run(ctx context.Context) error {
	if p.Log == nil {
		p.Log = zap.NewNop().Sugar()
	}
	if p.retryDelay <= 0 {
		p.retryDelay = sqsReceiveRetry
	}
	p.Log.Infow("sqs intake started", "queue", p.QueueURL)

	for {
		if ctx.Err() != nil {
			return nil
		}
		out, err := p.Client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(p.QueueURL),
			MaxNumberOfMessages: sqsMaxMessages,
			WaitTimeSeconds:     sqsWaitSeconds,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.Log.Warnw("sqs receive failed", "queue", p.QueueURL, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.retryDelay):
			}
			continue
		}
		for _, msg := range out.Messages {
			p.handle(ctx, msg)
		}
	}
}

func (p *SQSProducer) handle(ctx context.Context, msg types.Message) {
	id := aws.ToString(msg.MessageId)

	var req models.ScanRequest
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &req); err != nil {
		p.Log.Warnw("dropping malformed sqs message", "message_id", id, "error", err)
		p.delete(ctx, msg)
		return
	}

	status, err := p.Jobs.Submit(ctx, req.GitURL)
	switch {
	case errors.Is(err, ErrEmptyURL):
		p.Log.Warnw("dropping sqs message without git_url", "message_id", id)
		p.delete(ctx, msg)
	case err != nil:
		p.Log.Errorw("submitting scan from sqs failed, leaving message for redelivery",
			"message_id", id, "error", err)
	default:
		p.Log.Infow("scan queued from sqs", "message_id", id, "scan_id", status.ScanID, "repo", req.GitURL)
		p.delete(ctx, msg)
	}
}

func (p *SQSProducer) delete(ctx context.Context, msg types.Message) {
	_, err := p.Client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.QueueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		p.Log.Warnw("sqs delete failed", "message_id", aws.ToString(msg.MessageId), "error", err)
	}
}
