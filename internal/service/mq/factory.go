package mq

import (
	"github.com/redis/go-redis/v9"

	"wallet-txcore/pkg/config"
)

const (
	TypeRedis = "redis"
	TypeKafka = "kafka"
)

// NewProducer picks the backend configured by redis.mq_type.
func NewProducer(cfg config.Config, rdb *redis.Client) Producer {
	if cfg.Redis.MQType == TypeKafka {
		return NewKafkaProducer(cfg.Kafka.Brokers)
	}
	return NewRedisProducer(rdb, 10000)
}

// NewConsumer picks the backend configured by redis.mq_type.
func NewConsumer(cfg config.Config, rdb *redis.Client, group, name string) Consumer {
	if cfg.Redis.MQType == TypeKafka {
		return NewKafkaConsumer(cfg.Kafka.Brokers, group)
	}
	return NewRedisConsumer(rdb, group, name)
}
