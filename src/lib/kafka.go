package lib

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

var (
	kafkaProducer *kafka.Producer
	kafkaMu       sync.Mutex
)

func GetKafkaProducerConfig(clientId string) kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"client.id":         clientId,
		"acks":              "all",
	}
}

// GetKafkaProducer returns the shared producer, creating it on first use. Delivery
// reports are drained in the background and failures logged.
func GetKafkaProducer(clientId string) (*kafka.Producer, error) {
	kafkaMu.Lock()
	defer kafkaMu.Unlock()
	if kafkaProducer != nil {
		return kafkaProducer, nil
	}
	cfg := GetKafkaProducerConfig(clientId)
	p, err := kafka.NewProducer(&cfg)
	if err != nil {
		log.Printf("[Kafka] Error on producer: %s\n", err.Error())
		return nil, err
	}
	go func() {
		for ev := range p.Events() {
			if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				log.Printf("[Kafka] Delivery to %s failed: %s\n", *m.TopicPartition.Topic, m.TopicPartition.Error.Error())
			}
		}
	}()
	kafkaProducer = p
	return p, nil
}

func KafkaProduceMessage(clientId string, topic string, key string, payload any) error {
	p, err := GetKafkaProducer(clientId)
	if err != nil {
		return err
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
	}, nil)
}

func KafkaCreateTopics(topics ...string) ([]kafka.TopicResult, error) {
	a, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
	})
	if err != nil {
		log.Printf("[Kafka] Error on AdminClient: %s\n", err.Error())
		return nil, err
	}
	defer a.Close()
	topicsDef := []kafka.TopicSpecification{}
	for _, topic := range topics {
		topicsDef = append(topicsDef, kafka.TopicSpecification{
			Topic:             topic,
			NumPartitions:     10,
			ReplicationFactor: 1,
		})
	}
	result, err := a.CreateTopics(context.Background(), topicsDef)
	if err != nil {
		log.Printf("[Kafka] Error creating topics: %s\n", err.Error())
		return nil, err
	}
	return result, nil
}

// CloseKafkaProducer flushes outstanding messages before shutdown
func CloseKafkaProducer() {
	kafkaMu.Lock()
	defer kafkaMu.Unlock()
	if kafkaProducer == nil {
		return
	}
	if remaining := kafkaProducer.Flush(5000); remaining > 0 {
		log.Printf("[Kafka] %d messages were not delivered before shutdown\n", remaining)
	}
	kafkaProducer.Close()
	kafkaProducer = nil
}
