package pubsub

import (
	"context"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestTopicPath(t *testing.T) {
	cases := []struct{ project, name, want string }{
		{"shop", " events ", "projects/shop/topics/events"},
		{"shop", "projects/other/topics/x", "projects/other/topics/x"},
		{"", "events", ""},
		{"shop", " ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, topicPath(tc.project, tc.name), tc.name)
	}
}

func TestCredentials(t *testing.T) {
	assert.Empty(t, credentials(config.GCPConfig{}))
	assert.Len(t, credentials(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/etc/sa.json"}), 1)
	assert.Len(t, credentials(config.GCPConfig{ApplicationCredentials: "/etc/sa.json"}), 1)
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{DomainTopic: "events"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "shop"}, config.PubSubConfig{}, nil)
	assert.ErrorContains(t, err, "domain topic")
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	_, err := c.Publish(context.Background(), "events", &pubsub.Message{Data: []byte("{}")}).Get(context.Background())
	assert.ErrorIs(t, err, errNotInitialized)
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
}
