// Package mq moves transaction events between processes over Redis Streams
// or Kafka.
package mq

import "context"

// Message 代表一条通用的业务消息
type Message struct {
	ID       string            // Redis Stream ID 或 Kafka partition/offset
	Topic    string            // 主题 (例如 "wallet_events_transaction")
	Key      string            // 分区键, 交易事件使用 chain:address
	Payload  []byte            // 消息体 (JSON)
	Metadata map[string]string // 元数据
}

// Producer 生产者接口
type Producer interface {
	// Publish 发送消息. key 为空时随机分区.
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}

// Handler 处理一条消息, 返回 error 时消息不会被确认
type Handler func(ctx context.Context, msg *Message) error

// Consumer 消费者接口
type Consumer interface {
	// Subscribe 阻塞消费 topic 直到 ctx 结束
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
