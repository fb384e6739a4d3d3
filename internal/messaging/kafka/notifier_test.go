package kafka

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type capturedMessage struct {
	topic string
	key   string
	event interface{}
}

type fakePublisher struct {
	messages []capturedMessage
	err      error
}

func (f *fakePublisher) PublishEvent(topic string, key string, event interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, capturedMessage{topic: topic, key: key, event: event})
	return nil
}

func TestNotifier_PublishKeysByOrderID(t *testing.T) {
	fake := &fakePublisher{}
	notifier := newNotifierWithPublisher(fake, TopicOrderEvents)

	event := domain.NewOrderEvent(domain.EventTypeOrderCreated)
	event.OrderID = 42

	if err := notifier.Publish(event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(fake.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fake.messages))
	}
	msg := fake.messages[0]
	if msg.topic != TopicOrderEvents {
		t.Errorf("unexpected topic %q", msg.topic)
	}
	if msg.key != "42" {
		t.Errorf("expected key 42, got %q", msg.key)
	}
}

func TestNotifier_PublishSweepEventKeyedByEventID(t *testing.T) {
	fake := &fakePublisher{}
	notifier := newNotifierWithPublisher(fake, TopicOrderEvents)

	event := domain.NewOrderEvent(domain.EventTypeOrdersDone)
	event.OrdersDone = 7

	if err := notifier.Publish(event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if fake.messages[0].key != event.ID {
		t.Errorf("sweep event must be keyed by event id, got %q", fake.messages[0].key)
	}
}

func TestNotifier_PublishPropagatesError(t *testing.T) {
	induced := errors.New("broker down")
	notifier := newNotifierWithPublisher(&fakePublisher{err: induced}, TopicOrderEvents)

	if err := notifier.Publish(domain.NewOrderEvent(domain.EventTypeOrderCreated)); !errors.Is(err, induced) {
		t.Fatalf("expected induced error, got %v", err)
	}
}
