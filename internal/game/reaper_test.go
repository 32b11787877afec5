package game

import (
	"testing"
	"time"
)

func TestReapableSkipsLiveAndRecentSessions(t *testing.T) {
	reg := NewRegistry()
	reg.put(&Session{GameID: "running", State: StateRunning})
	reg.put(&Session{GameID: "waiting", State: StateWaiting})
	reg.put(&Session{GameID: "fresh-finish", State: StateFinished, endedAt: time.Now()})
	reg.put(&Session{GameID: "old-finish", State: StateFinished, endedAt: time.Now().Add(-time.Hour)})
	reg.put(&Session{GameID: "old-abort", State: StateAborted, endedAt: time.Now().Add(-time.Hour)})

	ids := reg.reapable(5 * time.Minute)
	if len(ids) != 2 {
		t.Fatalf("reapable = %v, want old-finish and old-abort", ids)
	}
	got := map[string]bool{}
	for _, id := range ids {
		got[id] = true
	}
	if !got["old-finish"] || !got["old-abort"] {
		t.Errorf("reapable = %v", ids)
	}
}

func TestDeleteDropsSessionAndFanout(t *testing.T) {
	reg := NewRegistry()
	reg.put(&Session{GameID: "g", State: StateAborted})
	reg.Fanout("g").Subscribe(&fakeSub{key: "a"})

	reg.delete("g")

	if reg.Get("g") != nil {
		t.Error("session survived delete")
	}
	if reg.Fanout("g").Len() != 0 {
		t.Error("fan-out survived delete")
	}
}
