package aws

import (
	"context"
	"eventadmission/src/lib"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

func GetSESClient() *ses.Client {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Printf("Could not load default config: %s\n", err.Error())
		return nil
	}
	return ses.NewFromConfig(cfg)
}

func SESSendMessage(ctx context.Context, from *string, destination *types.Destination, message *types.Message) error {
	c := GetSESClient()
	if c == nil {
		return lib.ErrAWSUnavailable
	}
	out, err := c.SendEmail(ctx, &ses.SendEmailInput{
		Destination: destination,
		Source:      from,
		Message:     message,
	})
	if err != nil {
		return err
	}
	log.Printf("[SES] Sent email with id: %s\n", *out.MessageId)
	return nil
}

// SendMail delivers a mail through SES using the same input as the SMTP transport
func SendMail(ctx context.Context, input *lib.SendMailInput) error {
	content := &types.Content{Data: aws.String(input.Body), Charset: aws.String("UTF-8")}
	body := &types.Body{Text: content}
	if input.Html {
		body = &types.Body{Html: content}
	}
	return SESSendMessage(ctx,
		aws.String(input.From),
		&types.Destination{ToAddresses: input.To, CcAddresses: input.Cc, BccAddresses: input.Bcc},
		&types.Message{
			Subject: &types.Content{Data: aws.String(input.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	)
}
