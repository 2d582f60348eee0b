package strategy

import (
	"encoding/json"
	"fmt"

	"supertrend-bot/internal/indicator"
	"supertrend-bot/internal/model"
)

// Evaluation is the outcome of one Generator pass.
type Evaluation struct {
	Event    model.SignalEvent `json:"event"`
	Previous model.Snapshot    `json:"previous"`
	Current  model.Snapshot    `json:"current"`
	Applied  int               `json:"applied"`  // candles fed to the indicator this pass
	Reseeded bool              `json:"reseeded"` // state was rebuilt from the full history
}

// Generator keeps one Supertrend alive across cycles for a single symbol.
type Generator struct {
	st   *indicator.Supertrend
	prev model.Snapshot
	cur  model.Snapshot
}

// NewGenerator creates a Generator with the given indicator parameters.
func NewGenerator(cfg indicator.Config) (*Generator, error) {
	st, err := indicator.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Generator{st: st}, nil
}

// Evaluate brings the indicator up to date with candles (closed bars only) and returns the signal of the last two snapshots.
// When the history does not overlap the state (first call, restart or a gap)
// the state is rebuilt from the whole history.
func (g *Generator) Evaluate(candles []model.Candle) (Evaluation, error) {
	if len(candles) == 0 {
		return Evaluation{}, fmt.Errorf("strategy: no candles")
	}
	candles = model.DedupSort(candles)

	last := g.st.LastTime()
	reseed := last == 0 || candles[0].Time > last || candles[len(candles)-1].Time < last

	applied := 0
	if reseed {
		g.st.Reset()
		g.prev, g.cur = model.Snapshot{}, model.Snapshot{}
	}
	for _, c := range candles {
		if !reseed && c.Time <= last {
			continue
		}
		s, err := g.st.Update(c)
		if err != nil {
			return Evaluation{}, err
		}
		g.prev, g.cur = g.cur, s
		applied++
	}

	return Evaluation{
		Event:    DetectFlip(g.prev, g.cur),
		Previous: g.prev,
		Current:  g.cur,
		Applied:  applied,
		Reseeded: reseed,
	}, nil
}

// Latest returns the newest snapshot.
func (g *Generator) Latest() model.Snapshot { return g.cur }

type generatorState struct {
	Indicator indicator.Checkpoint `json:"indicator"`
	Previous  model.Snapshot       `json:"previous"`
	Current   model.Snapshot       `json:"current"`
}

// MarshalState serializes the indicator state and the last two snapshots.
func (g *Generator) MarshalState() ([]byte, error) {
	return json.Marshal(generatorState{Indicator: g.st.Checkpoint(), Previous: g.prev, Current: g.cur})
}

// RestoreState loads state written by MarshalState.
func (g *Generator) RestoreState(data []byte) error {
	var gs generatorState
	if err := json.Unmarshal(data, &gs); err != nil {
		return fmt.Errorf("strategy: unmarshal state: %w", err)
	}
	if err := g.st.Restore(gs.Indicator); err != nil {
		return err
	}
	g.prev, g.cur = gs.Previous, gs.Current
	return nil
}
