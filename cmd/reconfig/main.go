// FILE: cmd/reconfig/main.go
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/lixenwraith/ulog"
)

// Loads configuration from a TOML file when given one, then applies a
// couple of runtime overrides while the pipeline keeps running.
func main() {
	var cfg *ulog.Config
	var err error

	if len(os.Args) > 1 {
		cfg, err = ulog.NewConfigFromFile(os.Args[1])
	} else {
		cfg, err = ulog.NewConfigFromDefaults(map[string]any{
			"directory":   "./logs",
			"file_prefix": "reconfig",
		})
	}
	if err != nil {
		fmt.Println("config:", err)
		return
	}

	logger, err := ulog.NewLogger(cfg)
	if err != nil {
		fmt.Println("failed to create:", err)
		return
	}
	if err := logger.Start(); err != nil {
		fmt.Println("failed to start:", err)
		return
	}

	logger.Message("Gameplay", "running with initial config")

	if err := logger.ApplyConfigString(
		"rotation.retention_days=14",
		"heartbeat_level=2",
		"heartbeat_interval_s=5",
	); err != nil {
		fmt.Println("override:", err)
	}

	logger.Message("Gameplay", "running with overrides applied")
	time.Sleep(6 * time.Second)

	rd := logger.RotationDiagnostics()
	fmt.Printf("tracked files=%d rotations=%d\n", rd.TrackedFiles, rd.TotalRotations)

	if err := logger.Stop(); err != nil {
		fmt.Println("shutdown:", err)
	}
}
