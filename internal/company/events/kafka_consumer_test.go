package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/companies/internal/company/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeReader serves a fixed list of messages, then blocks until canceled.
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []kafka.Message
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.messages) > 0 {
		msg := f.messages[0]
		f.messages = f.messages[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

func (f *fakeReader) committedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

func TestConsumer_CommitsHandledEvents(t *testing.T) {
	good, err := json.Marshal(Event{Type: CompanyDeleted, Company: &models.Company{ID: 9}})
	require.NoError(t, err)
	rejected, err := json.Marshal(Event{Type: CompanyUpdated, Company: &models.Company{ID: 10}})
	require.NoError(t, err)

	reader := &fakeReader{messages: []kafka.Message{
		{Value: []byte("not json")},
		{Value: rejected},
		{Value: good},
	}}
	consumer := newConsumer(reader, zaptest.NewLogger(t))

	handled := make(chan Event, 3)
	consumer.RegisterHandler(func(_ context.Context, event Event) error {
		if event.Type == CompanyUpdated {
			return errors.New("not interested")
		}
		handled <- event
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer.Start(ctx)

	select {
	case event := <-handled:
		assert.Equal(t, CompanyDeleted, event.Type)
		assert.EqualValues(t, 9, event.Company.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not handled")
	}

	assert.Eventually(t, func() bool { return reader.committedCount() == 1 }, time.Second, 10*time.Millisecond,
		"only the accepted event should be committed")
	consumer.Close()
}

// failingReader fails every fetch until canceled.
type failingReader struct {
	mu      sync.Mutex
	fetches int
}

func (f *failingReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{}, errors.New("broker unavailable")
}

func (f *failingReader) CommitMessages(context.Context, ...kafka.Message) error { return nil }

func (f *failingReader) Close() error { return nil }

func (f *failingReader) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func TestConsumer_BacksOffOnFetchErrors(t *testing.T) {
	reader := &failingReader{}
	consumer := newConsumer(reader, zaptest.NewLogger(t))
	consumer.retry = backoff.NewConstantBackOff(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		consumer.run(ctx)
		close(done)
	}()

	time.Sleep(220 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
	assert.LessOrEqual(t, reader.fetchCount(), 7, "fetches should be paced by the backoff")
	assert.GreaterOrEqual(t, reader.fetchCount(), 2, "fetching should be retried")
}
