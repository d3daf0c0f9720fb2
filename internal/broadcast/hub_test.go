package broadcast

import (
	"sync"
	"testing"
)

func TestOutputTopic(t *testing.T) {
	if got := OutputTopic("abc"); got != "agent:abc:output" {
		t.Errorf("Expected agent:abc:output, got %q", got)
	}
}

func TestHub_PublishReachesTopicSubscribers(t *testing.T) {
	h := NewHub()
	var got []string
	h.Subscribe("agent:1:output", func(topic string, payload []byte) {
		got = append(got, string(payload))
	})

	h.Publish("agent:1:output", []byte("hello"))
	h.Publish("agent:2:output", []byte("other"))

	if len(got) != 1 || got[0] != "hello" {
		t.Errorf("Expected only the subscribed topic's payload, got %v", got)
	}
}

func TestHub_SubscribeAllReceivesEveryTopic(t *testing.T) {
	h := NewHub()
	var topics []string
	h.SubscribeAll(func(topic string, payload []byte) {
		topics = append(topics, topic)
	})

	h.Publish("agent:1:output", []byte("a"))
	h.Publish("agent:2:output", []byte("b"))

	if len(topics) != 2 {
		t.Fatalf("Expected 2 deliveries, got %d", len(topics))
	}
}

func TestHub_LateSubscriberMissesPriorPublishes(t *testing.T) {
	h := NewHub()
	h.Publish("agent:1:output", []byte("before"))

	var got []string
	h.Subscribe("agent:1:output", func(topic string, payload []byte) {
		got = append(got, string(payload))
	})
	h.Publish("agent:1:output", []byte("after"))

	if len(got) != 1 || got[0] != "after" {
		t.Errorf("Expected live-tail semantics (no replay), got %v", got)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	count := 0
	id := h.Subscribe("agent:1:output", func(topic string, payload []byte) {
		count++
	})

	h.Publish("agent:1:output", []byte("one"))
	h.Unsubscribe(id)
	h.Publish("agent:1:output", []byte("two"))

	if count != 1 {
		t.Errorf("Expected 1 delivery after unsubscribe, got %d", count)
	}
}

func TestHub_UnsubscribeAllSubscriber(t *testing.T) {
	h := NewHub()
	count := 0
	id := h.SubscribeAll(func(topic string, payload []byte) {
		count++
	})

	h.Unsubscribe(id)
	h.Publish("agent:1:output", []byte("x"))

	if count != 0 {
		t.Errorf("Expected no deliveries after unsubscribe, got %d", count)
	}
}

func TestHub_ConcurrentPublish(t *testing.T) {
	h := NewHub()
	var mu sync.Mutex
	count := 0
	h.Subscribe("agent:1:output", func(topic string, payload []byte) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Publish("agent:1:output", []byte("x"))
			}
		}()
	}
	wg.Wait()

	if count != 1000 {
		t.Errorf("Expected 1000 deliveries, got %d", count)
	}
}
