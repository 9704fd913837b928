package events

import "context"

// Subscriber delivers raw payloads for every channel matching one of the
// patterns until ctx is done. The redis package provides the only
// implementation; the realtime bridge consumes it.
type Subscriber interface {
	Subscribe(ctx context.Context, patterns []string, handler func(channel string, payload []byte)) error
}
