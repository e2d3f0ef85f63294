package selection

import (
	"sort"

	"github.com/XiaoConstantine/evoselect/pkg/errors"
)

// Direction states whether a raw objective is maximized or minimized.
// After normalization every objective is maximized.
type Direction string

const (
	Maximize Direction = "maximize"
	Minimize Direction = "minimize"
)

// ObjectiveDef describes a single objective in the run's static
// configuration.
type ObjectiveDef struct {
	Direction Direction `json:"direction" yaml:"direction"`
	Weight    float64   `json:"weight" yaml:"weight"`
}

// ObjectiveSpec maps objective names to their definitions. The key set is
// fixed for a run; candidates carrying unknown or missing keys are rejected
// at input boundaries rather than silently accommodated.
type ObjectiveSpec map[string]ObjectiveDef

// Validate checks directions and weights. Weights may exceed 1 in sum but
// must not be negative.
func (s ObjectiveSpec) Validate() error {
	if len(s) == 0 {
		return errors.New(errors.InvalidConfiguration, "objective spec must declare at least one objective")
	}
	for name, def := range s {
		if def.Direction != Maximize && def.Direction != Minimize {
			return errors.WithFields(
				errors.New(errors.InvalidConfiguration, "objective direction must be maximize or minimize"),
				errors.Fields{"objective": name, "direction": string(def.Direction)})
		}
		if def.Weight < 0 {
			return errors.WithFields(
				errors.New(errors.InvalidConfiguration, "objective weight must not be negative"),
				errors.Fields{"objective": name, "weight": def.Weight})
		}
	}
	return nil
}

// Names returns the objective names in a stable sorted order. All iteration
// over objectives in this package goes through this so results are
// deterministic regardless of map ordering.
func (s ObjectiveSpec) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkComplete verifies the candidate carries a raw value for every
// declared objective and no undeclared ones.
func (s ObjectiveSpec) checkComplete(c *Candidate) error {
	for _, name := range s.Names() {
		if _, ok := c.Objectives[name]; !ok {
			return errors.WithFields(
				errors.New(errors.MissingObjective, "candidate is missing a required objective"),
				errors.Fields{"candidate_id": c.ID, "objective": name})
		}
	}
	for name := range c.Objectives {
		if _, ok := s[name]; !ok {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "candidate carries an undeclared objective"),
				errors.Fields{"candidate_id": c.ID, "objective": name})
		}
	}
	return nil
}
