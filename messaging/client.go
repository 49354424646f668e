package messaging

import (
	"context"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type Client struct {
	googlePubSubClient *pubsub.Client
	topic              *pubsub.Topic
	subscription       *pubsub.Subscription
	topicID            string
	subscriptionID     string
}

type ClientOptions struct {
	ProjectID      string
	Topic          string
	Subscription   string
	CredentialPath string
}

type SubscribeCallbackFunc func(ctx context.Context, msg Message)

func New(ctx context.Context, config ClientOptions) (*Client, error) {
	var opts []option.ClientOption
	if config.CredentialPath != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialPath))
	}

	var err error
	client := &Client{topicID: config.Topic, subscriptionID: config.Subscription}
	client.googlePubSubClient, err = pubsub.NewClient(ctx, config.ProjectID, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pubsub client")
	}
	if config.Topic != "" {
		client.topic = client.googlePubSubClient.Topic(config.Topic)
	}
	if config.Subscription != "" {
		client.subscription = client.googlePubSubClient.Subscription(config.Subscription)
	}
	return client, nil
}

func (s *Client) Close() error {
	if s.topic != nil {
		s.topic.Stop()
	}
	return s.googlePubSubClient.Close()
}

// EnsureTopic creates the topic, and the subscription when one is configured, if they do not exist yet.
func (s *Client) EnsureTopic(ctx context.Context) error {
	if s.topic == nil {
		return errors.New("no topic configured")
	}
	exists, err := s.topic.Exists(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to check topic %s", s.topicID)
	}
	if !exists {
		if s.topic, err = s.googlePubSubClient.CreateTopic(ctx, s.topicID); err != nil {
			return errors.Wrapf(err, "failed to create topic %s", s.topicID)
		}
	}
	if s.subscription == nil {
		return nil
	}

	it := s.topic.Subscriptions(ctx)
	for {
		subscription, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Wrap(err, "failed to list subscriptions")
		}
		if subscription.ID() == s.subscriptionID {
			return nil
		}
	}
	_, err = s.googlePubSubClient.CreateSubscription(ctx, s.subscriptionID, pubsub.SubscriptionConfig{
		Topic:               s.topic,
		RetainAckedMessages: false,
		AckDeadline:         20 * time.Second,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create subscription %s", s.subscriptionID)
	}
	return nil
}

func (s *Client) Subscribe(ctx context.Context, callback SubscribeCallbackFunc) error {
	if s.subscription == nil {
		return errors.New("no subscription configured")
	}
	err := s.subscription.Receive(ctx, func(ctx context.Context, pubSubMsg *pubsub.Message) {
		callback(ctx, newMessageFromPubSubMessage(pubSubMsg))
	})
	if err != nil {
		return errors.Wrapf(err, "failed to pull messages from Google Pub/Sub subscription %s", s.subscriptionID)
	}
	return nil
}

func (s *Client) Publish(ctx context.Context, message Message) error {
	if s.topic == nil {
		return errors.New("no topic configured")
	}
	msg := &pubsub.Message{
		Data:       message.Data,
		Attributes: message.Attributes,
	}
	if msg.Attributes == nil {
		msg.Attributes = make(map[string]string)
	}
	if _, err := s.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return errors.Wrapf(err, "failed to publish in Google Pub/Sub topic %s", s.topicID)
	}
	return nil
}

func newMessageFromPubSubMessage(pubSubMsg *pubsub.Message) (msg Message) {
	msg.ID = pubSubMsg.ID
	msg.Data = pubSubMsg.Data
	msg.Attributes = pubSubMsg.Attributes
	msg.PublishTime = pubSubMsg.PublishTime

	msg.RegisterAck(func() error {
		pubSubMsg.Ack()
		return nil
	})
	msg.RegisterNack(func() error {
		pubSubMsg.Nack()
		return nil
	})
	if msg.Attributes == nil {
		msg.Attributes = make(map[string]string)
	}
	return
}
