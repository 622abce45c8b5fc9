package aws

import (
	"context"
	"eventadmission/src/lib"
	"eventadmission/src/types"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type SQSConsumer struct {
	Name    string
	handler types.Handler
}

func NewSQSConsumer(queue string, handler types.Handler) *SQSConsumer {
	return &SQSConsumer{
		Name:    queue,
		handler: handler,
	}
}

// Listen polls the queue until ctx is done. A message is deleted only after its
// handler succeeds, so failed ones become visible again and are retried.
func (s *SQSConsumer) Listen(ctx context.Context) {
	go func() {
		client := lib.AWSGetSQSClient()
		if client == nil {
			return
		}
		qurl, err := lib.GetQueueUrl(ctx, client, s.Name)
		if err != nil {
			log.Printf("[SQS] Failed to retrieve queue URL for %s: %s\n", s.Name, err.Error())
			return
		}
		log.Printf("[SQS] %s: Listening for messages...", s.Name)
		messagesChan := make(chan sqstypes.Message, 10)
		go func(chn chan<- sqstypes.Message) {
			defer close(chn)
			for ctx.Err() == nil {
				output, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
					QueueUrl:            qurl,
					WaitTimeSeconds:     20,
					MaxNumberOfMessages: 10,
				})
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("[SQS] Error receiving messages: %s\n", err.Error())
					time.Sleep(5 * time.Second)
					continue
				}
				for _, m := range output.Messages {
					chn <- m
				}
			}
		}(messagesChan)

		for m := range messagesChan {
			body := strings.Clone(*m.Body)
			if err := s.handler(body); err != nil {
				log.Printf("[SQS] %s: message %s failed: %s\n", s.Name, *m.MessageId, err.Error())
				continue
			}
			lib.SQSDeleteMessage(client, qurl, &m)
		}
	}()
}
