// FILE: cmd/simple/main.go
package main

import (
	"fmt"
	"time"

	"github.com/lixenwraith/ulog"
)

func main() {
	logger, err := ulog.NewBuilder().
		Directory("./logs").
		FilePrefix("simple").
		InternalErrorsToStderr(true).
		Start()
	if err != nil {
		fmt.Println("failed to start:", err)
		return
	}

	logger.Message("Gameplay", "player spawned")
	logger.Warning("Network", "high latency detected")
	logger.Error("Physics", "ragdoll solver diverged")
	logger.Logf("AI", ulog.LevelDebug, "path recomputed in %dms", 12)

	time.Sleep(200 * time.Millisecond)

	for _, e := range logger.GetEntries("Gameplay", 10) {
		fmt.Printf("%s [%s] %s\n", e.Timestamp.Format(time.RFC3339), e.Channel, e.Message)
	}

	if err := logger.Stop(); err != nil {
		fmt.Println("shutdown:", err)
	}
}
