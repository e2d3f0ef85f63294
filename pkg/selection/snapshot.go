package selection

import (
	"github.com/XiaoConstantine/evoselect/pkg/errors"
)

// FrontierSnapshot is a lossless, JSON-marshalable view of a Frontier for
// the external checkpointing collaborator. Restoring a snapshot
// reproduces identical solutions, fronts and hypervolume.
type FrontierSnapshot struct {
	Solutions      []*Candidate       `json:"solutions"`
	Fronts         [][]string         `json:"fronts,omitempty"` // candidate ids per rank
	Ranked         []*Candidate       `json:"ranked,omitempty"` // front members beyond rank 1
	Archive        []*Candidate       `json:"archive,omitempty"`
	ReferencePoint map[string]float64 `json:"reference_point,omitempty"`
	Generation     int                `json:"generation"`
	Hypervolume    float64            `json:"hypervolume"`
	HVValid        bool               `json:"hypervolume_valid"`
}

// Snapshot captures the frontier's full state. Candidates are cloned so
// later frontier mutations cannot leak into a serialized checkpoint.
func (f *Frontier) Snapshot() *FrontierSnapshot {
	snap := &FrontierSnapshot{
		ReferencePoint: f.ReferencePoint,
		Generation:     f.Generation,
		Hypervolume:    f.hypervolume,
		HVValid:        f.hvValid,
	}

	onFrontier := make(map[string]bool, len(f.Solutions))
	for _, c := range f.Solutions {
		snap.Solutions = append(snap.Solutions, c.Clone())
		onFrontier[c.ID] = true
	}
	for _, c := range f.Archive {
		snap.Archive = append(snap.Archive, c.Clone())
	}

	seen := make(map[string]bool)
	for _, front := range f.Fronts {
		ids := make([]string, len(front))
		for i, c := range front {
			ids[i] = c.ID
			if !onFrontier[c.ID] && !seen[c.ID] {
				snap.Ranked = append(snap.Ranked, c.Clone())
				seen[c.ID] = true
			}
		}
		snap.Fronts = append(snap.Fronts, ids)
	}
	return snap
}

// RestoreFrontier rebuilds a Frontier from a snapshot. Front id lists that
// reference candidates missing from the snapshot are a validation error.
func RestoreFrontier(snap *FrontierSnapshot) (*Frontier, error) {
	f := &Frontier{
		ReferencePoint: snap.ReferencePoint,
		Generation:     snap.Generation,
		hypervolume:    snap.Hypervolume,
		hvValid:        snap.HVValid,
	}

	byID := make(map[string]*Candidate, len(snap.Solutions)+len(snap.Ranked))
	for _, c := range snap.Solutions {
		clone := c.Clone()
		f.Solutions = append(f.Solutions, clone)
		byID[clone.ID] = clone
	}
	for _, c := range snap.Ranked {
		clone := c.Clone()
		byID[clone.ID] = clone
	}
	for _, c := range snap.Archive {
		f.Archive = append(f.Archive, c.Clone())
	}

	for rank, ids := range snap.Fronts {
		front := make([]*Candidate, 0, len(ids))
		for _, id := range ids {
			c, ok := byID[id]
			if !ok {
				return nil, errors.WithFields(
					errors.New(errors.ValidationFailed, "snapshot front references an unknown candidate"),
					errors.Fields{"candidate_id": id, "rank": rank + 1})
			}
			front = append(front, c)
		}
		f.Fronts = append(f.Fronts, front)
	}
	return f, nil
}
