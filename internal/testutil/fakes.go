package testutil

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
)

// Published is one message captured by Publisher.
type Published struct {
	Channel string
	Data    []byte
	Attrs   map[string]string
}

// Publisher records every published message. When Err is set, Publish fails
// with it instead.
type Publisher struct {
	mu       sync.Mutex
	Err      error
	Messages []Published
	closed   bool
}

func (p *Publisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return "", p.Err
	}
	if p.closed {
		return "", errors.New("publisher closed")
	}
	p.Messages = append(p.Messages, Published{Channel: channel, Data: data, Attrs: attrs})
	return strconv.Itoa(len(p.Messages)), nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *Publisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Publisher) Snapshot() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Published(nil), p.Messages...)
}

// Object is one object captured by Bucket.
type Object struct {
	Data        []byte
	ContentType string
}

// Bucket is an in-memory object store. When Err is set, Put fails with it.
type Bucket struct {
	mu      sync.Mutex
	Name    string
	Err     error
	Objects map[string]Object
	Ensured bool
	closed  bool
}

func NewBucket(name string) *Bucket {
	return &Bucket{Name: name, Objects: make(map[string]Object)}
}

func (b *Bucket) EnsureBucket(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Ensured = true
	return nil
}

func (b *Bucket) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if b.Err != nil {
		return b.Err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.Objects[key] = Object{Data: data, ContentType: contentType}
	return nil
}

func (b *Bucket) Bucket() string {
	return b.Name
}

func (b *Bucket) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Bucket) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Bucket) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.Objects))
	for k := range b.Objects {
		keys = append(keys, k)
	}
	return keys
}
