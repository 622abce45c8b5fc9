package boot

import (
	"context"
	"eventadmission/src/admission"
	"eventadmission/src/common"
	"eventadmission/src/config"
	"eventadmission/src/db"
	"eventadmission/src/lib"
	"eventadmission/src/lib/notifier"
	"log"
	"os"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

const sweepJobName = "sweep-expired-orders"

// LoadSecrets pulls AWS_SECRETS_ID into the environment before any config is read.
func LoadSecrets() {
	secretId := os.Getenv("AWS_SECRETS_ID")
	if secretId == "" {
		return
	}
	if err := lib.LoadSecrets(context.Background(), secretId); err != nil {
		log.Fatalf("[Secrets] Could not load %s: %s\n", secretId, err.Error())
	}
}

func InitDb() *gorm.DB {
	d := db.GetDb()
	if err := db.Migrate(d); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	return d
}

// InitEngine builds the process engine with the configured notifiers and, when a
// Stripe key is present, the Stripe payment provider.
func InitEngine(d *gorm.DB) *admission.Engine {
	opts := []admission.Option{
		admission.WithNotifier(notifier.FromChannels(config.NotifyChannels(), d)),
	}
	if os.Getenv("STRIPE_SECRET_KEY") != "" {
		opts = append(opts, admission.WithPaymentProvider(lib.NewStripeProvider(lib.GetStripeClient())))
	} else {
		log.Println("[Boot] STRIPE_SECRET_KEY not set, payments must be confirmed through /webhook/payments")
	}
	return admission.UseEngine(admission.New(d, opts...))
}

// InitScheduler registers the expiry sweep. With Redis available the sweep runs on
// one instance at a time.
func InitScheduler(e *admission.Engine) {
	opts := []gocron.SchedulerOption{gocron.WithClock(clockwork.NewRealClock())}
	if rdb := lib.GetRedisClient(); rdb != nil {
		opts = append(opts, gocron.WithDistributedLocker(lib.NewRedisLocker(rdb, config.SweepInterval())))
	}
	sched, err := lib.GetScheduler(opts...)
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	_, err = lib.CreateCronJob(sweepJobName, config.SweepInterval(), func(ctx context.Context) error {
		n, err := e.SweepExpiredOrders(ctx)
		if n > 0 {
			log.Printf("[Sweep] Expired %d orders\n", n)
		}
		return err
	})
	if err != nil {
		log.Printf("Error registering %s: %s\n", sweepJobName, err.Error())
		return
	}
	sched.Start()
}

func StopScheduler() {
	lib.StopScheduler()
}

// InitBroker starts the queue consumers and prepares the Kafka notification topic.
func InitBroker(ctx context.Context, e *admission.Engine) {
	for _, c := range config.NotifyChannels() {
		if c == "kafka" {
			go lib.KafkaCreateTopics(config.EnvString("NOTIFY_KAFKA_TOPIC", "notifications"))
		}
	}
	if config.EnvBool("SQS_CONSUMERS", false) {
		common.SQSConsumers(ctx, e)
	}
}

func StopBroker() {
	lib.CloseKafkaProducer()
}
