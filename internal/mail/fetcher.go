package mail

import "context"

// Message is one unread inbox message, reduced to what alert parsing
// needs.
type Message struct {
	UID     uint32
	Subject string
}

// Fetcher reads unseen messages from a mailbox. MarkSeen is called only
// after a message has been handed off to the signal processor, so an
// unprocessed alert survives a crash and is picked up on the next poll.
type Fetcher interface {
	FetchUnseen(ctx context.Context) ([]Message, error)
	MarkSeen(ctx context.Context, uid uint32) error
	Close() error
}
