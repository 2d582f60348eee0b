package indicator

import (
	"encoding/json"
	"fmt"

	"supertrend-bot/internal/model"
)

// checkpointVersion is bumped when the Checkpoint layout changes.
const checkpointVersion = 1

// Checkpoint is the serialized state of a Supertrend.
type Checkpoint struct {
	Version    int     `json:"version"`
	Period     int     `json:"period"`
	Multiplier float64 `json:"multiplier"`

	ATRCount int     `json:"atr_count"`
	ATRSum   float64 `json:"atr_sum"`
	ATR      float64 `json:"atr"`

	HasPrev   bool    `json:"has_prev"`
	PrevClose float64 `json:"prev_close"`
	LastTime  int64   `json:"last_time"`

	HasBands       bool        `json:"has_bands"`
	PrevFinalUpper float64     `json:"prev_final_upper"`
	PrevFinalLower float64     `json:"prev_final_lower"`
	PrevTrend      model.Trend `json:"prev_trend"`
}

// Checkpoint captures the current state.
func (s *Supertrend) Checkpoint() Checkpoint {
	return Checkpoint{
		Version:        checkpointVersion,
		Period:         s.cfg.Period,
		Multiplier:     s.cfg.Multiplier,
		ATRCount:       s.atr.count,
		ATRSum:         s.atr.sum,
		ATR:            s.atr.current,
		HasPrev:        s.hasPrev,
		PrevClose:      s.prevClose,
		LastTime:       s.lastTime,
		HasBands:       s.hasBands,
		PrevFinalUpper: s.prevFinalUpper,
		PrevFinalLower: s.prevFinalLower,
		PrevTrend:      s.prevTrend,
	}
}

// Restore replaces the state with cp. The checkpoint must have been taken
// with the same parameters.
func (s *Supertrend) Restore(cp Checkpoint) error {
	if cp.Version != checkpointVersion {
		return fmt.Errorf("indicator: unsupported checkpoint version %d", cp.Version)
	}
	if cp.Period != s.cfg.Period || cp.Multiplier != s.cfg.Multiplier {
		return fmt.Errorf("indicator: checkpoint for %d/%g, engine is %d/%g",
			cp.Period, cp.Multiplier, s.cfg.Period, s.cfg.Multiplier)
	}
	s.atr.count = cp.ATRCount
	s.atr.sum = cp.ATRSum
	s.atr.current = cp.ATR
	s.hasPrev = cp.HasPrev
	s.prevClose = cp.PrevClose
	s.lastTime = cp.LastTime
	s.hasBands = cp.HasBands
	s.prevFinalUpper = cp.PrevFinalUpper
	s.prevFinalLower = cp.PrevFinalLower
	s.prevTrend = cp.PrevTrend
	return nil
}

// MarshalCheckpoint returns the JSON form of the current state.
func (s *Supertrend) MarshalCheckpoint() ([]byte, error) {
	return json.Marshal(s.Checkpoint())
}

// RestoreJSON restores from the JSON form written by MarshalCheckpoint.
func (s *Supertrend) RestoreJSON(data []byte) error {
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return fmt.Errorf("indicator: unmarshal checkpoint: %w", err)
	}
	return s.Restore(cp)
}
