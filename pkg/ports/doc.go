/*
Package ports defines the driven ports (interfaces) of the epoch likelihood engine.

These interfaces decouple the incremental likelihood core from the tree, the
substitution processes, the data and the arithmetic backend, so each can be
swapped without touching the traversal.

# Key Interfaces

  - Tree / BranchRateModel: topology, node ages, dirty flags and clock rates.
  - SubstitutionProcess: per-epoch transition probabilities and eigen data.
  - SiteModel / PatternSource: rate categories and compressed site patterns.
  - LikelihoodEngine: the arithmetic backend (in-process or accelerated).
  - CheckpointStore: persistence of sampler checkpoints.
  - RunLocker: exclusive ownership of a run across processes.
*/
package ports
