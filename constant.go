// FILE: constant.go
package ulog

import (
	"time"
)

// Log level constants
const (
	LevelDebug    int64 = -4
	LevelInfo     int64 = 0
	LevelWarn     int64 = 4
	LevelError    int64 = 8
	LevelCritical int64 = 12
)

// RootChannel is always registered and cannot be unregistered.
const RootChannel = "Default"

// SubsystemChannel receives the pipeline's own diagnostics and heartbeats.
const SubsystemChannel = "Subsystem"

// Processing
const (
	// Entries drained from the ingestion queue per processor cycle
	defaultBatchSize = 64
	// Fixed per-entry overhead used by the memory tracker, covers struct
	// fields and map/slice bookkeeping beyond the raw string bytes
	entryOverheadBytes = 256
)

// Eviction thresholds. Trimming targets a fraction of the budget chosen
// by how far usage overshoots it.
const (
	budgetSafetyMargin    = 0.02
	overageRatioSevere    = 1.2
	overageRatioModerate  = 1.1
	trimTargetSevere      = 0.5
	trimTargetModerate    = 0.6
	trimTargetDefault     = 0.75
	channelTrimBase       = 0.25
	channelTrimModerate   = 0.5
	channelTrimAggressive = 0.75
)

// Timers
const (
	// Minimum wait time used throughout the package
	minWaitTime = 10 * time.Millisecond
)
