package storage

import (
	"context"
	"strings"
	"testing"

	hivley_errors "hivley/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAttachmentKey(t *testing.T) {
	conv, msg := uuid.New(), uuid.New()

	key := AttachmentKey(conv, msg, "../../etc/my report (1).pdf")
	assert.True(t, strings.HasPrefix(key, "attachments/"+conv.String()+"/"+msg.String()+"/"))
	assert.True(t, strings.HasSuffix(key, "-my_report_1_.pdf"))
	assert.NotContains(t, key, "..")

	assert.True(t, strings.HasSuffix(AttachmentKey(conv, msg, "..."), "-file"))
}

func TestClientFileURL(t *testing.T) {
	c := &Client{cfg: S3Config{PublicBase: "https://cdn.example.com/"}}
	assert.Equal(t, "https://cdn.example.com/a/b.png", c.FileURL("a/b.png"))

	var nilClient *Client
	assert.Empty(t, nilClient.FileURL("a"))
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Upload(context.Background(), "k", "text/plain", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, hivley_errors.ErrServiceUnavailable)
}
