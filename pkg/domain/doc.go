/*
Package domain contains the core value types shared by the epoch likelihood engine
and its adapters.

It is kept free of I/O and third-party dependencies, following the hexagonal layout
of the module: ports and adapters depend on domain, never the other way around.

# Key Entities

  - Dirt: how much cached work an external change invalidates.
  - Scheme: the partial-likelihood rescaling policy.
  - Operation: one partial-combination instruction sent to a likelihood engine.
  - EigenDecomposition: spectral data for the batched exponentiation fast path.
  - EngineConfig / Capabilities: what an engine must allocate and what it supports.
  - Checkpoint: persisted bookkeeping for resuming a sampler.
*/
package domain
