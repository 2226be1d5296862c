package main

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/jpalmerr/ethnode/internal/driver"
)

// GenerateTraffic injects frames into sim every tick until ctx is done.
// About one frame in twenty is a runt so the drop counter moves too, and
// the link drops for a couple of seconds every 30-60 seconds.
func GenerateTraffic(ctx context.Context, sim *driver.Sim, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	nextFlap := time.Now().Add(time.Duration(30+rand.Intn(31)) * time.Second)
	var relinkAt time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			switch {
			case !relinkAt.IsZero() && now.After(relinkAt):
				sim.SetLink(true)
				relinkAt = time.Time{}
				nextFlap = now.Add(time.Duration(30+rand.Intn(31)) * time.Second)
				slog.Info("simulated link restored")
			case relinkAt.IsZero() && now.After(nextFlap):
				sim.SetLink(false)
				relinkAt = now.Add(2 * time.Second)
				slog.Info("simulated link lost")
			}

			size := 60 + rand.Intn(1458)
			if rand.Intn(20) == 0 {
				size = rand.Intn(14)
			}
			frame := make([]byte, size)
			_, _ = rand.Read(frame)
			sim.Inject(frame)
		}
	}
}
