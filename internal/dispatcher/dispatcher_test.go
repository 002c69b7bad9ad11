package dispatcher

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/victorlap/suspicious-login/internal/events"
)

func TestDispatcher_Dispatch(t *testing.T) {
	d := New()
	var calls []string

	d.AddListener(events.NameSuspiciousLogin, ListenerFunc(func(ctx context.Context, ev events.Event) {
		calls = append(calls, "first")
	}))
	d.AddListener(events.NameSuspiciousLogin, ListenerFunc(func(ctx context.Context, ev events.Event) {
		calls = append(calls, "second")
	}))
	d.AddListener(events.NameLogin, ListenerFunc(func(ctx context.Context, ev events.Event) {
		calls = append(calls, "login")
	}))

	n := d.Dispatch(context.Background(), events.NewSuspiciousLoginEvent("alice", "203.0.113.7"))
	if n != 2 {
		t.Errorf("Dispatch() = %d, want 2", n)
	}
	if want := []string{"first", "second"}; !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestDispatcher_NoListeners(t *testing.T) {
	d := New()

	if n := d.Dispatch(context.Background(), events.UnknownEvent{Name: "other"}); n != 0 {
		t.Errorf("Dispatch() = %d, want 0", n)
	}
}

func TestDispatcher_NilEvent(t *testing.T) {
	d := New()
	called := false
	d.AddListener(events.NameSuspiciousLogin, ListenerFunc(func(context.Context, events.Event) {
		called = true
	}))

	var nilPtr *events.SuspiciousLoginEvent
	for _, ev := range []events.Event{nil, nilPtr} {
		if n := d.Dispatch(context.Background(), ev); n != 0 {
			t.Errorf("Dispatch(%#v) = %d, want 0", ev, n)
		}
	}
	if called {
		t.Error("listener called for nil event")
	}
}

func TestDispatcher_ConcurrentUse(t *testing.T) {
	d := New()
	var mu sync.Mutex
	count := 0
	d.AddListener(events.NameLogin, ListenerFunc(func(ctx context.Context, ev events.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.Dispatch(context.Background(), events.LoginEvent{UID: "alice"})
		}()
		go func() {
			defer wg.Done()
			d.AddListener("noise", ListenerFunc(func(context.Context, events.Event) {}))
		}()
	}
	wg.Wait()

	if count != 20 {
		t.Errorf("count = %d, want 20", count)
	}
}
