// Package worker runs the asynq side of notification delivery: the client
// used by the mq consumer and the server executing the tasks.
package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
)

// 队列名
const (
	QueueNotifications = "notifications"
	QueueDefault       = "default"
)

// Options are the redis settings shared by client and server.
type Options struct {
	Addr     string
	Password string
	DB       int
}

func (o Options) redis() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB}
}

type Client struct {
	client *asynq.Client
}

func NewClient(opt Options) *Client {
	return &Client{client: asynq.NewClient(opt.redis())}
}

// Enqueue 投递任务到通知队列 (可被 opts 覆盖). 相同 TaskID 的任务已存在时视为成功,
// 此时返回的 TaskInfo 为 nil.
func (c *Client) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	opts = append([]asynq.Option{asynq.Queue(QueueNotifications)}, opts...)
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil, nil
	}
	return info, err
}

func (c *Client) Close() error {
	return c.client.Close()
}
