package domain

// BranchRecord is the persisted form of a branch cache entry.
type BranchRecord struct {
	Time       float64 `cbor:"1,keyasint"`
	StartEpoch int     `cbor:"2,keyasint"`
	EndEpoch   int     `cbor:"3,keyasint"`
}

// Checkpoint captures the bookkeeping of a likelihood so that a sampler can be
// resumed. Buffer contents are not included: resuming forces a full recomputation.
type Checkpoint struct {
	ID         string         `cbor:"1,keyasint"`
	NodeCount  int            `cbor:"2,keyasint"`
	EpochCount int            `cbor:"3,keyasint"`
	Boundaries []float64      `cbor:"4,keyasint"`
	Partials   []int          `cbor:"5,keyasint"`
	Matrices   []int          `cbor:"6,keyasint"`
	Eigen      []int          `cbor:"7,keyasint"`
	Scales     []int          `cbor:"8,keyasint"`
	Branches   []BranchRecord `cbor:"9,keyasint"`

	Scheme          Scheme `cbor:"10,keyasint"`
	EverUnderflowed bool   `cbor:"11,keyasint"`
	RescaleCount    int    `cbor:"12,keyasint"`
	RescaleInner    int    `cbor:"13,keyasint"`

	LogLikelihood float64 `cbor:"14,keyasint"`
}
