// Package evoselect provides the multi-objective selection engine used by
// evolutionary prompt-optimization loops: Pareto dominance, NSGA-II
// non-dominated sorting with crowding distance, bounded frontier and
// archive management, hypervolume indicators and a family of selection
// operators.
//
// Key Components:
//
//   - selection: the engine itself. Candidate evaluation and
//     normalization, dominance comparison and fast non-dominated sorting,
//     frontier management, hypervolume (exact in 1D/2D, WFG for three or
//     more objectives), tournament/environmental/elite selection and
//     fitness sharing.
//
//   - config: YAML configuration for a selection run, validated with
//     struct tags plus semantic cross-field rules, converting directly
//     into the selection package's option types.
//
//   - checkpoint: SQLite-backed persistence of frontier snapshots so runs
//     can resume after interruption.
//
//   - errors, logging: structured errors with machine-readable codes and
//     context fields, and leveled logging with pluggable outputs.
//
// The engine performs no I/O and calls no models; evaluation results
// arrive as plain objective maps and selection decisions leave as
// candidate sets, so it drops into any surrounding evolution loop.
package evoselect
