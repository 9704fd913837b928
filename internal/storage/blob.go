package storage

import (
	"context"
	"io"
	"path"
	"regexp"
	"strings"

	hivley_errors "hivley/pkg/errors"

	"github.com/google/uuid"
)

// BlobStore stores a file and returns its public URL. Failures are per
// file and never roll back the owning record.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// Unavailable is used when no bucket is configured. Every upload fails.
type Unavailable struct{}

func (Unavailable) Upload(context.Context, string, string, io.Reader, int64) (string, error) {
	return "", hivley_errors.ErrServiceUnavailable
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// AttachmentKey builds the object key for a message attachment.
func AttachmentKey(conversationID, messageID uuid.UUID, fileName string) string {
	name := unsafeName.ReplaceAllString(path.Base(fileName), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	return path.Join("attachments", conversationID.String(), messageID.String(), uuid.NewString()+"-"+name)
}
