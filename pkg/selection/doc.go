// Package selection is the multi-objective selection engine of an
// evolutionary prompt-optimization loop. It consumes candidates whose
// objective vectors were already measured upstream and produces Pareto
// rankings, a bounded non-dominated frontier with a hypervolume quality
// indicator, and parent/survivor selections that balance convergence
// pressure against diversity preservation.
//
// The package runs once per generation as a pure pass over an in-memory
// population snapshot: it performs no I/O, spawns no processes and calls
// no models. All randomness (tournament sampling) is seedable for
// reproducibility.
//
// Typical per-generation flow:
//
//	evaluator.EvaluatePopulation(ctx, candidates)   // normalize + aggregate
//	fronts, _ := comparator.RankAndCrowd(candidates)
//	frontier, _ = manager.UpdateFronts(ctx, frontier, candidates)
//	hv, _ := manager.Hypervolume(ctx, frontier)
//	parents, _ := tournament.Select(ctx, candidates, n)
//	survivors, _ := environmental.Select(ctx, merged, target)
package selection
