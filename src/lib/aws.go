package lib

import (
	"context"
	"eventadmission/src/utils"
	"log"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

var (
	awsConfig   *aws.Config
	awsConfigMu sync.Mutex
)

// awsGetSdkConfig loads the default credential chain. When AWS_IAM_ROLE_ARN is set
// the role is assumed and its temporary credentials are used instead.
func awsGetSdkConfig() (*aws.Config, error) {
	awsConfigMu.Lock()
	defer awsConfigMu.Unlock()
	if awsConfig != nil {
		return awsConfig, nil
	}
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Printf("[AWS] Error loading default config: %s\n", err.Error())
		return nil, err
	}
	if iamRole := os.Getenv("AWS_IAM_ROLE_ARN"); iamRole != "" {
		stsClient := sts.NewFromConfig(cfg)
		output, err := stsClient.AssumeRole(context.TODO(), &sts.AssumeRoleInput{
			RoleArn:         aws.String(iamRole),
			RoleSessionName: aws.String("event-admission-api"),
		})
		if err != nil {
			log.Printf("[AWS] Error configuring STS client: %s\n", err.Error())
			return nil, err
		}
		creds := output.Credentials
		cfg, err = config.LoadDefaultConfig(context.TODO(), config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(*creds.AccessKeyId, *creds.SecretAccessKey, *creds.SessionToken),
		))
		if err != nil {
			log.Printf("[AWS] Error configuration: %s\n", err.Error())
			return nil, err
		}
	}
	awsConfig = &cfg
	return awsConfig, nil
}

func AWSGetSQSClient() *sqs.Client {
	cfg, err := awsGetSdkConfig()
	if err != nil {
		log.Printf("Failed to initialize SQS client: %s\n", err.Error())
		return nil
	}
	return sqs.NewFromConfig(*cfg)
}

func AWSGetSNSClient() *sns.Client {
	cfg, err := awsGetSdkConfig()
	if err != nil {
		log.Printf("Failed to initialize SNS client: %s\n", err.Error())
		return nil
	}
	return sns.NewFromConfig(*cfg)
}

func AWSGetSecretsManagerClient() *secretsmanager.Client {
	cfg, err := awsGetSdkConfig()
	if err != nil {
		log.Printf("Failed to initialize Secrets Manager client: %s\n", err.Error())
		return nil
	}
	return secretsmanager.NewFromConfig(*cfg)
}

func GetQueueUrl(ctx context.Context, c *sqs.Client, queue string) (*string, error) {
	out, err := c.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(utils.WithSuffix(queue)),
	})
	if err != nil {
		return nil, err
	}
	return out.QueueUrl, nil
}

func SQSProduceMessage(ctx context.Context, queue string, body string) error {
	c := AWSGetSQSClient()
	if c == nil {
		return ErrAWSUnavailable
	}
	qurl, err := GetQueueUrl(ctx, c, queue)
	if err != nil {
		return err
	}
	_, err = c.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    qurl,
		MessageBody: aws.String(body),
	})
	return err
}

func SQSDeleteMessage(c *sqs.Client, qurl *string, msg *sqsTypes.Message) {
	_, err := c.DeleteMessage(context.TODO(), &sqs.DeleteMessageInput{
		QueueUrl:      qurl,
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		log.Printf("[SQS] Error deleting message from queue: %s\n", err.Error())
	}
}

// GetTopicArn builds the ARN of an environment-suffixed SNS topic in the configured account
func GetTopicArn(topic string) string {
	region := os.Getenv("AWS_REGION")
	account := os.Getenv("AWS_ACCOUNT_ID")
	return "arn:aws:sns:" + region + ":" + account + ":" + utils.WithSuffix(topic)
}

func SNSPublish(ctx context.Context, topic string, subject string, message string) error {
	c := AWSGetSNSClient()
	if c == nil {
		return ErrAWSUnavailable
	}
	_, err := c.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(GetTopicArn(topic)),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	return err
}
