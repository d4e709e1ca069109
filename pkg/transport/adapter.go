package transport

import "context"

// Device is a discovered panel.
type Device struct {
	Name    string
	Address string
	// Native is the platform handle the adapter needs to connect.
	Native any
}

// Adapter discovers and connects to panels.
type Adapter interface {
	// Scan returns the first advertiser whose name starts with one of
	// prefixes. It blocks until a match is found or ctx is done.
	Scan(ctx context.Context, prefixes []string) (Device, error)

	// Connect opens a link to dev.
	Connect(ctx context.Context, dev Device) (Link, error)
}

// Link is an open connection to one panel.
type Link interface {
	// Write sends data to a characteristic. The adapter fragments it to
	// the link MTU.
	Write(ctx context.Context, char string, data []byte) error

	// Subscribe delivers every notification on char to fn. fn runs on the
	// adapter's goroutine and must not block.
	Subscribe(char string, fn func([]byte)) error

	// Lost is closed when the link drops.
	Lost() <-chan struct{}

	// Close disconnects. It is safe to call more than once.
	Close() error
}
