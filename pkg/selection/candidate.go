package selection

import (
	"github.com/google/uuid"
)

// Candidate represents a single prompt candidate scored along multiple
// objectives. The raw Objectives map is produced by the external evaluation
// stage; NormalizedObjectives, AggregateFitness, ParetoRank and
// CrowdingDistance are filled in by this package.
type Candidate struct {
	ID                   string                 `json:"id"`
	Objectives           map[string]float64     `json:"objectives"`
	NormalizedObjectives map[string]float64     `json:"normalized_objectives,omitempty"`
	AggregateFitness     float64                `json:"aggregate_fitness"`
	ParetoRank           int                    `json:"pareto_rank,omitempty"` // 1 = non-dominated front, 0 = not yet ranked
	CrowdingDistance     Distance               `json:"crowding_distance"`
	Generation           int                    `json:"generation"`
	Metadata             map[string]interface{} `json:"metadata,omitempty"`
}

// NewCandidate creates a candidate with a fresh id for the given generation.
// The objectives map is taken as-is; callers must not mutate it afterwards.
func NewCandidate(objectives map[string]float64, generation int) *Candidate {
	return &Candidate{
		ID:         uuid.New().String(),
		Objectives: objectives,
		Generation: generation,
	}
}

// Clone returns a deep copy of the candidate. The id is preserved so
// upstream systems can correlate selection decisions with their records.
func (c *Candidate) Clone() *Candidate {
	clone := &Candidate{
		ID:               c.ID,
		AggregateFitness: c.AggregateFitness,
		ParetoRank:       c.ParetoRank,
		CrowdingDistance: c.CrowdingDistance,
		Generation:       c.Generation,
	}
	if c.Objectives != nil {
		clone.Objectives = make(map[string]float64, len(c.Objectives))
		for k, v := range c.Objectives {
			clone.Objectives[k] = v
		}
	}
	if c.NormalizedObjectives != nil {
		clone.NormalizedObjectives = make(map[string]float64, len(c.NormalizedObjectives))
		for k, v := range c.NormalizedObjectives {
			clone.NormalizedObjectives[k] = v
		}
	}
	if c.Metadata != nil {
		clone.Metadata = make(map[string]interface{}, len(c.Metadata))
		for k, v := range c.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}

// Population represents one generation's worth of candidates.
type Population struct {
	Candidates []*Candidate `json:"candidates"`
	Generation int          `json:"generation"`
}

// IDs returns the candidate ids in population order.
func (p *Population) IDs() []string {
	ids := make([]string, len(p.Candidates))
	for i, c := range p.Candidates {
		ids[i] = c.ID
	}
	return ids
}
