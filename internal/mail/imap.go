package mail

import (
	"context"
	"fmt"
	"sync"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// IMAPConfig holds the connection settings for one mailbox.
type IMAPConfig struct {
	Server   string
	Port     int
	UseSSL   bool
	Email    string
	Password string
}

// IMAPFetcher reads alert mail over IMAP. The connection is dialed lazily
// and re-dialed after any protocol error, so a dropped connection heals
// on the next poll.
type IMAPFetcher struct {
	cfg IMAPConfig

	mu   sync.Mutex
	conn *client.Client
}

func NewIMAPFetcher(cfg IMAPConfig) *IMAPFetcher {
	return &IMAPFetcher{cfg: cfg}
}

func (f *IMAPFetcher) connect() (*client.Client, error) {
	if f.conn != nil {
		return f.conn, nil
	}

	addr := fmt.Sprintf("%s:%d", f.cfg.Server, f.cfg.Port)

	var c *client.Client
	var err error
	if f.cfg.UseSSL {
		c, err = client.DialTLS(addr, nil)
	} else {
		c, err = client.Dial(addr)
		if err == nil {
			err = c.StartTLS(nil)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	if err := c.Login(f.cfg.Email, f.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("imap login: %w", err)
	}

	f.conn = c
	return c, nil
}

func (f *IMAPFetcher) drop() {
	if f.conn != nil {
		f.conn.Logout()
		f.conn = nil
	}
}

func (f *IMAPFetcher) FetchUnseen(ctx context.Context) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, err := f.connect()
	if err != nil {
		return nil, err
	}

	if _, err := c.Select("INBOX", false); err != nil {
		f.drop()
		return nil, fmt.Errorf("selecting inbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		f.drop()
		return nil, fmt.Errorf("searching unseen: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	// Envelope-only fetch leaves the messages unseen; only MarkSeen
	// flips the flag.
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid}
	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, ch)
	}()

	var messages []Message
	for msg := range ch {
		if msg.Envelope == nil {
			continue
		}
		messages = append(messages, Message{UID: msg.Uid, Subject: msg.Envelope.Subject})
	}
	if err := <-done; err != nil {
		f.drop()
		return nil, fmt.Errorf("fetching envelopes: %w", err)
	}

	return messages, nil
}

func (f *IMAPFetcher) MarkSeen(ctx context.Context, uid uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, err := f.connect()
	if err != nil {
		return err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}
	if err := c.UidStore(seqset, item, flags, nil); err != nil {
		f.drop()
		return fmt.Errorf("marking seen: %w", err)
	}
	return nil
}

func (f *IMAPFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn == nil {
		return nil
	}
	err := f.conn.Logout()
	f.conn = nil
	return err
}
