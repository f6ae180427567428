// internal/common/database/health.go
package database

import (
	"context"
	"sync"
	"time"
)

// Pinger is a backend that can report readiness.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// CheckAll pings every backend concurrently and returns "ok" or the error text per backend.
func CheckAll(ctx context.Context, timeout time.Duration, backends ...Pinger) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
		status  = make(map[string]string, len(backends))
	)
	for _, b := range backends {
		wg.Add(1)
		go func(b Pinger) {
			defer wg.Done()
			err := b.Ping(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				status[b.Name()] = err.Error()
				healthy = false
				return
			}
			status[b.Name()] = "ok"
		}(b)
	}
	wg.Wait()
	return status, healthy
}
