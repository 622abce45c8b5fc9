package lib

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/tidwall/gjson"
)

var ErrAWSUnavailable = errors.New("aws client unavailable")

// LoadSecrets exports every key of the JSON secret into the environment. Variables
// that are already set win over the secret.
func LoadSecrets(ctx context.Context, secretId string) error {
	c := AWSGetSecretsManagerClient()
	if c == nil {
		return ErrAWSUnavailable
	}
	out, err := c.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretId),
	})
	if err != nil {
		return err
	}
	n, err := ExportSecrets(aws.ToString(out.SecretString))
	if err != nil {
		return err
	}
	log.Printf("[Secrets] Loaded %d values from %s\n", n, secretId)
	return nil
}

func ExportSecrets(raw string) (int, error) {
	if !gjson.Valid(raw) {
		return 0, fmt.Errorf("secret is not valid JSON")
	}
	count := 0
	var setErr error
	gjson.Parse(raw).ForEach(func(key, value gjson.Result) bool {
		if _, exists := os.LookupEnv(key.String()); exists {
			return true
		}
		if err := os.Setenv(key.String(), value.String()); err != nil {
			setErr = err
			return false
		}
		count++
		return true
	})
	return count, setErr
}
