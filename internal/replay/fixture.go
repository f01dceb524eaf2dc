package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/meshguard/epigenetic-policy-engine/internal/coordinator"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a
// labeled stream of detect events plus the coordinator configuration
// to run them against.
type Fixture struct {
	Description  string              `json:"description"`
	Config       coordinator.Config  `json:"config"`
	Interactions []FixtureInteraction `json:"interactions"`
}

// FixtureInteraction mirrors Interaction with JSON tags.
type FixtureInteraction struct {
	TurnID    string  `json:"turn_id"`
	ServiceID string  `json:"service_id"`
	Path      string  `json:"path"`
	Payload   string  `json:"payload"`
	Anomaly   float64 `json:"anomaly"`
	Entropy   float64 `json:"entropy"`
	Frequency float64 `json:"frequency"`
	Malicious bool    `json:"malicious"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToInteraction converts a FixtureInteraction to a domain Interaction.
func (fi *FixtureInteraction) ToInteraction() Interaction {
	return Interaction{
		TurnID: fi.TurnID,
		Event: coordinator.Event{
			ServiceID: fi.ServiceID,
			Path:      fi.Path,
			Payload:   fi.Payload,
			Features: coordinator.Features{
				Anomaly:   fi.Anomaly,
				Entropy:   fi.Entropy,
				Frequency: fi.Frequency,
			},
		},
		Malicious: fi.Malicious,
	}
}

// ToInteractions converts every FixtureInteraction in the fixture.
func (f *Fixture) ToInteractions() []Interaction {
	out := make([]Interaction, len(f.Interactions))
	for i := range f.Interactions {
		out[i] = f.Interactions[i].ToInteraction()
	}
	return out
}

// #endregion fixture-loader
