package eventbus_test

import (
	"testing"

	"github.com/samirrijal/villagemap/internal/pkg/eventbus"
)

func TestBus_FanOut(t *testing.T) {
	b := eventbus.New[string]()
	a := b.Subscribe()
	c := b.Subscribe()

	b.Publish("regions.updated")

	for i, ch := range []chan string{a, c} {
		select {
		case got := <-ch:
			if got != "regions.updated" {
				t.Errorf("subscriber %d: unexpected event %q", i, got)
			}
		default:
			t.Errorf("subscriber %d: expected an event", i)
		}
	}
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := eventbus.New[int]()
	ch := b.Subscribe()
	for i := 0; i < 100; i++ {
		b.Publish(i)
	}
	if len(ch) != cap(ch) {
		t.Errorf("expected buffer full at %d, got %d", cap(ch), len(ch))
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := eventbus.New[int]()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	b.Unsubscribe(ch)

	if b.Len() != 0 {
		t.Errorf("expected no subscribers, got %d", b.Len())
	}
	if _, ok := <-ch; ok {
		t.Error("expected closed channel")
	}
	b.Publish(1)
}
