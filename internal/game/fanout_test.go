package game

import "testing"

func TestFanoutPublishReachesAllSubscribers(t *testing.T) {
	f := newFanout()
	a := &fakeSub{key: "a"}
	b := &fakeSub{key: "b"}
	f.Subscribe(a)
	f.Subscribe(b)

	f.Publish([]byte(`{"type":"pong"}`))

	for _, sub := range []*fakeSub{a, b} {
		if len(sub.frames) != 1 {
			t.Errorf("%s received %d frames, want 1", sub.key, len(sub.frames))
		}
	}
}

func TestFanoutSubscribeReplacesSameKey(t *testing.T) {
	f := newFanout()
	old := &fakeSub{key: "a"}
	replacement := &fakeSub{key: "a"}
	f.Subscribe(old)
	f.Subscribe(replacement)

	if f.Len() != 1 {
		t.Fatalf("len = %d, want 1", f.Len())
	}
	f.Publish([]byte(`{"type":"pong"}`))
	if len(old.frames) != 0 {
		t.Error("replaced subscriber still receiving")
	}
	if len(replacement.frames) != 1 {
		t.Error("replacement did not receive")
	}
}

func TestFanoutDropsFullSubscriber(t *testing.T) {
	f := newFanout()
	slow := &fakeSub{key: "a", full: true}
	f.Subscribe(slow)

	f.Publish([]byte(`{"type":"pong"}`))

	if !slow.kicked {
		t.Error("full subscriber not kicked")
	}
	if f.Len() != 0 {
		t.Errorf("len = %d, want 0", f.Len())
	}
}

func TestFanoutUnsubscribeUnknownKeyIsNoop(t *testing.T) {
	f := newFanout()
	f.Unsubscribe("missing")
	if f.Len() != 0 {
		t.Errorf("len = %d", f.Len())
	}
}
