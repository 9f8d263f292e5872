// Package pubsub publishes domain events to Google Cloud Pub/Sub with
// per-key ordering.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client publishes to topics of one project. Publishers are created lazily
// and kept until Close.
type Client struct {
	client  *pubsub.Client
	project string
	topics  []string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects and fails unless every configured topic already exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	domain := topicPath(project, cfg.DomainTopic)
	if domain == "" {
		return nil, errors.New("pubsub domain topic is required")
	}

	raw, err := pubsub.NewClient(ctx, project, credentials(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		client:     raw,
		project:    project,
		topics:     []string{domain},
		publishers: make(map[string]*pubsub.Publisher),
	}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", domain), "pubsub client initialized")
	}
	return c, nil
}

// credentials prefers inline JSON over a key file; neither means ADC.
func credentials(gcp config.GCPConfig) []option.ClientOption {
	if js := strings.TrimSpace(gcp.CredentialsJSON); js != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(js))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// Ping looks up every configured topic.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	for _, topic := range c.topics {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topic})
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("topic %s does not exist", topic)
		case err != nil:
			return fmt.Errorf("get topic %s: %w", topic, err)
		}
	}
	return nil
}

// Result resolves to the server-assigned message id.
type Result interface {
	Get(ctx context.Context) (string, error)
}

// Publish sends msg to topic. Messages sharing an ordering key are delivered
// in publish order; a failed publish resumes its key once the caller reads
// the result.
func (c *Client) Publish(ctx context.Context, topic string, msg *pubsub.Message) Result {
	p, err := c.publisher(topic)
	if err != nil {
		return failed{err}
	}
	return &ordered{res: p.Publish(ctx, msg), p: p, key: msg.OrderingKey}
}

func (c *Client) publisher(topic string) (*pubsub.Publisher, error) {
	if c == nil || c.client == nil {
		return nil, errNotInitialized
	}
	path := topicPath(c.project, topic)
	if path == "" {
		return nil, fmt.Errorf("topic %q not configured", topic)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.publishers[path]
	if !ok {
		p = c.client.Publisher(path)
		p.EnableMessageOrdering = true
		c.publishers[path] = p
	}
	return p, nil
}

type ordered struct {
	res *pubsub.PublishResult
	p   *pubsub.Publisher
	key string
}

func (o *ordered) Get(ctx context.Context) (string, error) {
	id, err := o.res.Get(ctx)
	if err != nil && o.key != "" {
		o.p.ResumePublish(o.key)
	}
	return id, err
}

type failed struct{ err error }

func (f failed) Get(context.Context) (string, error) { return "", f.err }

// Close flushes pending publishes and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for path, p := range c.publishers {
		p.Stop()
		delete(c.publishers, path)
	}
	c.mu.Unlock()
	return c.client.Close()
}

// topicPath expands a short topic name to its resource path. Full paths
// pass through.
func topicPath(project, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/"):
		return name
	case project == "":
		return ""
	}
	return "projects/" + project + "/topics/" + name
}
