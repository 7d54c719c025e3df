package publish

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/icodeforyou/spotprice-go/hours"
	"github.com/icodeforyou/spotprice-go/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	retained bool
	payload  string
}

type fakeMqtt struct {
	mu       sync.Mutex
	messages []message
	err      error
}

func (f *fakeMqtt) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message{topic: topic, retained: retained, payload: string(payload.([]byte))})
	return doneToken{err: f.err}
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, f.err
}

func testEntries(now time.Time) []types.FeedEntry {
	hour := now.Truncate(time.Hour)
	return []types.FeedEntry{
		{Time: hours.FormatDisplay(hour.Add(-time.Hour)), Price: 1.5},
		{Time: hours.FormatDisplay(hour), Price: 2.25},
		{Time: hours.FormatDisplay(hour.Add(time.Hour)), Price: 3},
	}
}

func TestMqttPublisher(t *testing.T) {
	now := time.Date(2024, time.January, 10, 12, 30, 0, 0, time.UTC)
	client := &fakeMqtt{}
	p := newMqttPublisher(slog.Default(), client, "home/spot")

	require.NoError(t, p.Publish(context.Background(), testEntries(now), now))
	require.Len(t, client.messages, 2)

	assert.Equal(t, "home/spot/feed", client.messages[0].topic)
	assert.True(t, client.messages[0].retained)
	assert.JSONEq(t, `[["10.01.2024 13:00",1.5],["10.01.2024 14:00",2.25],["10.01.2024 15:00",3]]`, client.messages[0].payload)

	assert.Equal(t, "home/spot/current", client.messages[1].topic)
	assert.JSONEq(t, `{"time":"10.01.2024 14:00","price":2.25}`, client.messages[1].payload)
}

func TestMqttPublisherError(t *testing.T) {
	now := time.Now()
	client := &fakeMqtt{err: errors.New("not connected")}
	err := newMqttPublisher(slog.Default(), client, "").Publish(context.Background(), testEntries(now), now)
	assert.ErrorContains(t, err, "spotprice/feed")
}

func TestS3Publisher(t *testing.T) {
	now := time.Date(2024, time.January, 10, 12, 30, 0, 0, time.UTC)
	putter := &fakePutter{}
	p := newS3Publisher(putter, "frontend", "")

	require.NoError(t, p.Publish(context.Background(), testEntries(now)[:1], now))
	assert.Equal(t, "frontend", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "spotdata.json", aws.ToString(putter.input.Key))
	assert.Equal(t, "application/json", aws.ToString(putter.input.ContentType))
	assert.JSONEq(t, `[["10.01.2024 13:00",1.5]]`, putter.body)
}

type countingPublisher struct {
	name  string
	err   error
	calls int
}

func (c *countingPublisher) Name() string { return c.name }
func (c *countingPublisher) Publish(ctx context.Context, entries []types.FeedEntry, now time.Time) error {
	c.calls++
	return c.err
}

func TestAllContinuesAfterFailure(t *testing.T) {
	failing := &countingPublisher{name: "failing", err: errors.New("boom")}
	ok := &countingPublisher{name: "ok"}

	All(context.Background(), slog.Default(), []Publisher{failing, ok}, nil, time.Now())
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
}

func TestCurrentEntry(t *testing.T) {
	now := time.Date(2024, time.January, 10, 12, 30, 0, 0, time.UTC)
	e, ok := CurrentEntry(testEntries(now), now)
	require.True(t, ok)
	assert.Equal(t, 2.25, e.Price)

	_, ok = CurrentEntry(testEntries(now), now.Add(24*time.Hour))
	assert.False(t, ok)
}
