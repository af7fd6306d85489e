package domain

// EngineConfig describes the buffers a likelihood engine must allocate.
// It is produced once by the likelihood and handed to an engine factory.
type EngineConfig struct {
	TipCount           int
	PartialBufferCount int
	CompactBufferCount int // Tips stored as states instead of partials
	StateCount         int
	PatternCount       int
	EigenBufferCount   int
	MatrixBufferCount  int
	CategoryCount      int
	ScaleBufferCount   int

	// Resource names the backend to load (see pkg/registry). Selection is explicit;
	// there is no process-wide round robin.
	Resource string
	// Threads bounds internal parallelism of the backend. Zero lets the backend decide.
	Threads int
	// PreferAutoScaling asks the backend to enable automatic scaling when it can.
	PreferAutoScaling bool
}

// Capabilities reports what a loaded engine can do.
type Capabilities struct {
	Name        string
	AutoScaling bool
	Threads     int
}
