package common

import (
	"context"
	"eventadmission/src/admission"
	"eventadmission/src/config"
	awslib "eventadmission/src/lib/aws"
)

// SQSConsumers starts the queue listeners that feed the engine.
func SQSConsumers(ctx context.Context, e *admission.Engine) {
	queue := config.EnvString("PAYMENT_CALLBACK_QUEUE", "PaymentCallbacks")
	awslib.NewSQSConsumer(queue, PaymentCallbacksHandler(e)).Listen(ctx)
}
