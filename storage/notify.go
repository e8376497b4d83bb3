package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Change announces that the document under Key was rewritten.
type Change struct {
	Key string `json:"key"`
	At  int64  `json:"at"`
}

// Notifier publishes changes so derived views can refresh.
type Notifier interface {
	Notify(ctx context.Context, change Change) error
}

// NopNotifier drops every change.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Change) error { return nil }

// Notifiers fans a change out to every notifier in the list.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, change Change) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RedisNotifier publishes changes on a Redis pub/sub channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, change Change) error {
	data, err := sonic.Marshal(change)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, data).Err()
}

// SubscribeChanges delivers changes published on channel to fn until ctx is
// done, resubscribing when the connection drops.
func SubscribeChanges(ctx context.Context, client *redis.Client, channel string, fn func(Change)) {
	for {
		sub := client.Subscribe(ctx, channel)
		ch := sub.Channel()
	receive:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break receive
				}
				var change Change
				if err := sonic.UnmarshalString(msg.Payload, &change); err != nil {
					log.WithField("payload", msg.Payload).Errorf("unable to parse change: %v", err)
					continue
				}
				fn(change)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		log.Error("change channel closed, resubscribing")
		time.Sleep(time.Second)
	}
}

// QueueNotifier enqueues changes on an Azure Storage queue for devices that
// sync through the cloud profile.
type QueueNotifier struct {
	queue *azqueue.QueueClient
}

func NewQueueNotifier(connStr, queueName string) (*QueueNotifier, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: 30 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &opts)
	if err != nil {
		return nil, err
	}
	return &QueueNotifier{queue: q}, nil
}

func (n *QueueNotifier) Notify(ctx context.Context, change Change) error {
	data, err := sonic.MarshalString(change)
	if err != nil {
		return err
	}
	_, err = n.queue.EnqueueMessage(ctx, data, nil)
	return err
}
