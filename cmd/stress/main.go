// FILE: cmd/stress/main.go
package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/lixenwraith/ulog"
)

// Floods the pipeline from many goroutines and prints the drop and
// eviction counters afterwards.
func main() {
	logger, err := ulog.NewBuilder().
		Directory("./logs").
		FilePrefix("stress").
		QueueSize(4096).
		MemoryBudgetMB(5).
		DefaultChannelPolicy(ulog.ChannelConfig{
			Enabled:           true,
			MinLevel:          ulog.LevelDebug,
			TokensPerSecond:   1000,
			BurstCapacity:     1000,
			MaxEntries:        5000,
			InheritFromParent: true,
		}).
		Start()
	if err != nil {
		fmt.Println("failed to start:", err)
		return
	}

	channels := []string{"Gameplay", "Gameplay.Combat", "Network", "Physics", "AI"}

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			cache := logger.NewDecisionCache()
			for i := 0; i < 50_000; i++ {
				channel := channels[i%len(channels)]
				cache.Log(channel, ulog.LevelInfo, fmt.Sprintf("worker %d event %d", id, i))
			}
		}(worker)
	}
	wg.Wait()

	time.Sleep(time.Second)

	qd := logger.QueueDiagnostics()
	md := logger.MemoryDiagnostics()
	fmt.Printf("enqueued=%d processed=%d dropped=%d\n", qd.Enqueued, qd.Processed, qd.Dropped)
	fmt.Printf("memory=%.1f%% trims=%d largest=%s\n",
		md.MemoryUsagePercent, md.TrimmingEvents, md.LargestChannelName)

	if err := logger.Shutdown(10 * time.Second); err != nil {
		fmt.Println("shutdown:", err)
	}
}
