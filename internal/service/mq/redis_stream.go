package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"wallet-txcore/pkg/logger"
)

// RedisProducer 实现 Producer 接口
type RedisProducer struct {
	client *redis.Client
	maxLen int64
}

// NewRedisProducer 创建 Redis 生产者. maxLen > 0 时近似裁剪 Stream 长度.
func NewRedisProducer(client *redis.Client, maxLen int64) *RedisProducer {
	return &RedisProducer{client: client, maxLen: maxLen}
}

// Publish 使用 XADD 写入 Stream, Stream 名即 topic
func (p *RedisProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{
			"key":     key,
			"payload": payload,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis xadd %s: %w", topic, err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (p *RedisProducer) Close() error { return nil }

// RedisConsumer 实现 Consumer 接口 (Consumer Group)
type RedisConsumer struct {
	client *redis.Client
	group  string
	name   string
	block  time.Duration
	log    *zap.Logger
}

// NewRedisConsumer 创建 Redis 消费者
func NewRedisConsumer(client *redis.Client, group, name string) *RedisConsumer {
	return &RedisConsumer{
		client: client,
		group:  group,
		name:   name,
		block:  2 * time.Second,
		log:    logger.Named("mq.redis", zap.String("group", group)),
	}
}

// Subscribe 阻塞读取 topic, 处理成功后 XACK
func (c *RedisConsumer) Subscribe(ctx context.Context, topic string, handler Handler) error {
	// XGROUP CREATE <stream> <group> $ MKSTREAM
	err := c.client.XGroupCreateMkStream(ctx, topic, c.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", c.group, err)
	}
	c.log.Info("subscribed", zap.String("topic", topic))

	for ctx.Err() == nil {
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{topic, ">"},
			Count:    10,
			Block:    c.block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.log.Warn("xreadgroup failed", zap.String("topic", topic), zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, xm := range stream.Messages {
				msg, ok := decodeStreamMessage(topic, xm)
				if !ok {
					// 格式错误的消息直接确认, 避免反复投递
					c.log.Warn("drop malformed message", zap.String("id", xm.ID))
					c.ack(ctx, topic, xm.ID)
					continue
				}
				if err := handler(ctx, msg); err != nil {
					c.log.Warn("handle message failed", zap.String("id", xm.ID), zap.Error(err))
					continue
				}
				c.ack(ctx, topic, xm.ID)
			}
		}
	}
	return nil
}

func decodeStreamMessage(topic string, xm redis.XMessage) (*Message, bool) {
	payload, ok := xm.Values["payload"].(string)
	if !ok {
		return nil, false
	}
	key, _ := xm.Values["key"].(string)
	return &Message{ID: xm.ID, Topic: topic, Key: key, Payload: []byte(payload)}, true
}

func (c *RedisConsumer) ack(ctx context.Context, topic, id string) {
	if err := c.client.XAck(ctx, topic, c.group, id).Err(); err != nil {
		c.log.Warn("xack failed", zap.String("id", id), zap.Error(err))
	}
}

// Close is a no-op; the client is owned by the caller.
func (c *RedisConsumer) Close() error { return nil }
