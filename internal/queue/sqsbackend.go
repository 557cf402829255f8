package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/Electrostatics/apbs-aws/internal/config"
	"github.com/Electrostatics/apbs-aws/internal/logging"
	"github.com/Electrostatics/apbs-aws/internal/transport"
)

// sqsBackend is the Gateway implementation backed by Amazon SQS. Grounded
// on original_source/src/docker/job_control.py's get_messages (a single
// receive_message call with MaxNumberOfMessages=1 and a VisibilityTimeout,
// looped by the caller) and on job_service.py's send_message publish, with
// client construction following the shape of the teacher's
// internal/cloud/providers/s3.S3Client (load default AWS config once at
// startup, wrap every call in the shared retry/classification helper).
type sqsBackend struct {
	client   *sqs.Client
	queueURL string
	log      *logging.Logger
}

func newSQSBackend(ctx context.Context, cfg *config.Config, queueName string) (*sqsBackend, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.AWSSessionToken),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := sqs.NewFromConfig(awsCfg)

	out, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(queueName),
	})
	if err != nil {
		return nil, fmt.Errorf("queue: resolving queue URL for %q: %w", queueName, err)
	}

	return &sqsBackend{
		client:   client,
		queueURL: aws.ToString(out.QueueUrl),
		log:      logging.New("queue.sqs"),
	}, nil
}

func (b *sqsBackend) Receive(ctx context.Context, visibilityTimeout time.Duration) (*Message, error) {
	var out *sqs.ReceiveMessageOutput
	err := transport.Retry(ctx, transport.DefaultPolicy(), func() error {
		var err error
		out, err = b.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(b.queueURL),
			MaxNumberOfMessages: 1,
			VisibilityTimeout:   int32(visibilityTimeout.Seconds()),
			WaitTimeSeconds:     20,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}
	m := out.Messages[0]
	return &Message{
		Body:          aws.ToString(m.Body),
		ReceiptHandle: aws.ToString(m.ReceiptHandle),
	}, nil
}

func (b *sqsBackend) Delete(ctx context.Context, msg *Message) error {
	return transport.Retry(ctx, transport.DefaultPolicy(), func() error {
		_, err := b.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(b.queueURL),
			ReceiptHandle: aws.String(msg.ReceiptHandle),
		})
		return err
	})
}

func (b *sqsBackend) ExtendVisibility(ctx context.Context, msg *Message, seconds int) error {
	return transport.Retry(ctx, transport.DefaultPolicy(), func() error {
		_, err := b.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(b.queueURL),
			ReceiptHandle:     aws.String(msg.ReceiptHandle),
			VisibilityTimeout: int32(seconds),
		})
		return err
	})
}

func (b *sqsBackend) Send(ctx context.Context, body string) error {
	return transport.Retry(ctx, transport.DefaultPolicy(), func() error {
		_, err := b.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(b.queueURL),
			MessageBody: aws.String(body),
		})
		return err
	})
}
