package game

import (
	"context"
	"log"
	"time"
)

// StartReaper starts a background worker that sweeps terminal sessions
// out of the registry. FINISHED sessions are kept for the rematch window
// and dropped after the grace period; ABORTED sessions go on the next
// sweep past grace too.
func StartReaper(ctx context.Context, registry *Registry, interval, grace time.Duration) {
	log.Printf("[REAP] Session reaper started (interval=%s grace=%s)", interval, grace)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[REAP] Session reaper stopping")
				return
			case <-ticker.C:
				for _, gameID := range registry.reapable(grace) {
					registry.delete(gameID)
					log.Printf("[REAP] Removed terminal game %s", gameID)
				}
			}
		}
	}()
}

// reapable returns the ids of terminal sessions older than grace.
func (r *Registry) reapable(grace time.Duration) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, s := range r.sessions {
		if s.State != StateFinished && s.State != StateAborted {
			continue
		}
		if time.Since(s.endedAt) >= grace {
			ids = append(ids, id)
		}
	}
	return ids
}
