package redis

// Channel and key layout. Every name is suffixed with the traded symbol.
const (
	prefix = "st:"

	kindSnapshot = "snapshot"
	kindSignal   = "signal"
	kindEvent    = "event"
)

// PatternAll matches every channel the publisher emits on.
const PatternAll = prefix + "*"

// SnapshotChannel carries each closed-candle indicator snapshot.
func SnapshotChannel(symbol string) string { return prefix + kindSnapshot + ":" + symbol }

// SignalChannel carries each evaluated signal.
func SignalChannel(symbol string) string { return prefix + kindSignal + ":" + symbol }

// EventChannel carries reconciler cycle outcomes.
func EventChannel(symbol string) string { return prefix + kindEvent + ":" + symbol }

// LatestKey holds the last payload published on a channel kind.
func LatestKey(kind, symbol string) string { return prefix + "latest:" + kind + ":" + symbol }

// SnapshotStream keeps a bounded history of snapshots.
func SnapshotStream(symbol string) string { return prefix + "stream:" + kindSnapshot + ":" + symbol }

// StateKey holds the indicator checkpoint.
func StateKey(symbol string) string { return prefix + "state:" + symbol }
