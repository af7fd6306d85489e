package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/aretw0/epochlik/internal/logging"
	"github.com/aretw0/epochlik/pkg/domain"
	"github.com/aretw0/epochlik/pkg/ports"
)

// Likelihood is the epoch-aware incremental tree likelihood.
//
// It owns the buffer slot tables, the branch cache and the rescaling controller
// of one engine instance. It is not safe for concurrent use; run independent
// instances instead.
type Likelihood struct {
	tree        ports.Tree
	schedule    *EpochSchedule
	site        ports.SiteModel
	patterns    ports.PatternSource
	branchRates ports.BranchRateModel

	engine   ports.LikelihoodEngine
	factory  ports.EngineFactory
	fallback ports.EngineFactory
	resource string
	threads  int
	caps     domain.Capabilities

	logger *slog.Logger
	hooks  domain.EvaluationHooks

	nodeCount     int
	tipCount      int
	internalCount int
	stateCount    int
	patternCount  int
	categoryCount int

	partials *BufferSlotTable
	matrices *BufferSlotTable
	eigen    *BufferSlotTable
	scales   *BufferSlotTable

	scaleIndices       []int
	storedScaleIndices []int

	cache            *BranchCache
	composer         *composer
	rescaler         *Rescaler
	scheme           domain.Scheme
	rescaleFrequency int

	dirt           domain.Dirt
	threshold      float64
	processChanged []bool
	eigenCapable   []bool

	matrixTargets [][]int
	matrixLengths [][]float64
	operations    [][]domain.Operation

	categoryRates       []float64
	storedCategoryRates []float64
	uploadRates         bool
	categoryWeights     []float64
	frequencies         []float64
	rootFrequencies     []float64
	useTipPartials      bool

	siteLogL   []float64
	siteValid  bool
	logL       float64
	storedLog  float64
	storedDirt domain.Dirt
	retried    bool
	stats      evaluationStats
}

type evaluationStats struct {
	branches   int
	direct     int
	operations int
	retried    bool
}

// NewLikelihood allocates buffers, loads an engine through factory and uploads the
// tip data. When the factory reports domain.ErrEngineUnavailable and a fallback is
// configured, the fallback engine is used instead and a warning is logged once.
func NewLikelihood(
	tree ports.Tree,
	schedule *EpochSchedule,
	site ports.SiteModel,
	patterns ports.PatternSource,
	factory ports.EngineFactory,
	opts ...Option,
) (*Likelihood, error) {
	l := &Likelihood{
		tree:        tree,
		schedule:    schedule,
		site:        site,
		patterns:    patterns,
		factory:     factory,
		branchRates: strictClock{},
		logger:      logging.NewNop(),
		scheme:      domain.DefaultScheme,
		threshold:   math.Inf(1),
		dirt:        domain.Filthy,
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.validate(); err != nil {
		return nil, err
	}

	l.nodeCount = tree.NodeCount()
	l.tipCount = tree.TipCount()
	l.internalCount = l.nodeCount - l.tipCount
	l.stateCount = schedule.StateCount()
	l.patternCount = patterns.PatternCount()
	l.categoryCount = len(site.CategoryRates())
	epochs := schedule.Len()

	// One partial buffer per tip, two per internal node.
	l.partials = NewBufferSlotTable(l.nodeCount, l.tipCount)
	l.matrices = NewBufferSlotTable(l.nodeCount, 0)
	l.eigen = NewBufferSlotTable(epochs, 0)
	// One scale buffer per internal node plus the root accumulation.
	l.scales = NewBufferSlotTable(l.internalCount+1, 0)

	l.scaleIndices = make([]int, l.internalCount)
	for i := range l.scaleIndices {
		l.scaleIndices[i] = l.scales.Current(i)
	}
	l.storedScaleIndices = slices.Clone(l.scaleIndices)

	l.cache = NewBranchCache(l.nodeCount)
	l.composer = newComposer(l.stateCount, l.categoryCount)

	l.processChanged = make([]bool, epochs)
	for i := range l.processChanged {
		l.processChanged[i] = true
	}
	l.eigenCapable = make([]bool, epochs)
	l.matrixTargets = make([][]int, epochs)
	l.matrixLengths = make([][]float64, epochs)
	l.operations = make([][]domain.Operation, epochs)
	for e := 0; e < epochs; e++ {
		l.matrixTargets[e] = make([]int, 0, l.nodeCount)
		l.matrixLengths[e] = make([]float64, 0, l.nodeCount)
		l.operations[e] = make([]domain.Operation, 0, l.internalCount)
	}
	l.siteLogL = make([]float64, l.patternCount)

	if err := l.openEngine(); err != nil {
		return nil, err
	}
	l.rescaler = NewRescaler(l.scheme, l.caps, l.rescaleFrequency, DefaultRescaleTimes)
	if l.rescaler.Scheme() != l.scheme {
		l.logger.Warn("engine cannot scale automatically, using dynamic rescaling",
			"requested", l.scheme, "engine", l.caps.Name)
	}

	if err := l.loadData(); err != nil {
		_ = l.engine.Close()
		return nil, err
	}
	// Upload the eigen decompositions before the first checkpoint so that a
	// Restore without a prior Store never points at an empty eigen buffer.
	if err := l.refreshProcesses(); err != nil {
		_ = l.engine.Close()
		return nil, err
	}
	l.Store()

	l.logger.Info("likelihood initialised",
		"engine", l.caps.Name,
		"threads", l.caps.Threads,
		"tips", l.tipCount,
		"patterns", l.patternCount,
		"states", l.stateCount,
		"categories", l.categoryCount,
		"epochs", epochs,
		"scaling", l.rescaler.Scheme(),
	)
	return l, nil
}

func (l *Likelihood) validate() error {
	if l.factory == nil && l.fallback == nil {
		return errors.New("no likelihood engine factory configured")
	}
	if l.tree.TipCount() < 2 || l.tree.NodeCount() != 2*l.tree.TipCount()-1 {
		return fmt.Errorf("tree must be binary with at least two tips: %d nodes, %d tips",
			l.tree.NodeCount(), l.tree.TipCount())
	}
	if l.patterns.TaxonCount() != l.tree.TipCount() {
		return fmt.Errorf("%w: tree has %d tips, data has %d taxa",
			domain.ErrTipCountMismatch, l.tree.TipCount(), l.patterns.TaxonCount())
	}
	if l.patterns.StateCount() != l.schedule.StateCount() {
		return fmt.Errorf("%w: data has %d states, processes have %d",
			domain.ErrStateCountMismatch, l.patterns.StateCount(), l.schedule.StateCount())
	}
	if len(l.site.CategoryRates()) == 0 {
		return errors.New("site model has no rate categories")
	}
	if l.rootFrequencies != nil && len(l.rootFrequencies) != l.schedule.StateCount() {
		return fmt.Errorf("%w: %d root frequencies for %d states",
			domain.ErrStateCountMismatch, len(l.rootFrequencies), l.schedule.StateCount())
	}
	return nil
}

func (l *Likelihood) engineConfig() domain.EngineConfig {
	compact := l.tipCount
	if l.useTipPartials {
		for t := 0; t < l.tipCount; t++ {
			if l.patterns.TipPartials(t) != nil {
				compact--
			}
		}
	}
	return domain.EngineConfig{
		TipCount:           l.tipCount,
		PartialBufferCount: l.partials.BufferCount(),
		CompactBufferCount: compact,
		StateCount:         l.stateCount,
		PatternCount:       l.patternCount,
		EigenBufferCount:   l.eigen.BufferCount(),
		MatrixBufferCount:  l.matrices.BufferCount(),
		CategoryCount:      l.categoryCount,
		ScaleBufferCount:   l.scales.BufferCount(),
		Resource:           l.resource,
		Threads:            l.threads,
		PreferAutoScaling:  l.scheme == domain.SchemeAuto,
	}
}

func (l *Likelihood) openEngine() error {
	cfg := l.engineConfig()

	var err error
	if l.factory != nil {
		l.engine, err = l.factory(cfg)
		if err == nil {
			l.caps = l.engine.Capabilities()
			return nil
		}
		if !errors.Is(err, domain.ErrEngineUnavailable) || l.fallback == nil {
			return fmt.Errorf("failed to load likelihood engine: %w", err)
		}
		l.logger.Warn("likelihood engine unavailable, using in-process implementation",
			"resource", cfg.Resource, "err", err)
	}

	l.engine, err = l.fallback(cfg)
	if err != nil {
		return fmt.Errorf("failed to load fallback likelihood engine: %w", err)
	}
	l.caps = l.engine.Capabilities()
	return nil
}

func (l *Likelihood) loadData() error {
	if err := l.engine.SetPatternWeights(l.patterns.Weights()); err != nil {
		return fmt.Errorf("set pattern weights: %w", err)
	}
	for t := 0; t < l.tipCount; t++ {
		if l.useTipPartials {
			if p := l.patterns.TipPartials(t); p != nil {
				if err := l.engine.SetTipPartials(t, p); err != nil {
					return fmt.Errorf("set tip partials for tip %d: %w", t, err)
				}
				continue
			}
		}
		if err := l.engine.SetTipStates(t, l.patterns.States(t)); err != nil {
			return fmt.Errorf("set tip states for tip %d: %w", t, err)
		}
	}
	return nil
}

// LogLikelihood evaluates the tree, recomputing only what changed since the last
// evaluation. Numerical underflow never surfaces as an error: after at most one
// rescaled retry the result is -Inf. Errors are structural (malformed tree) or
// engine failures.
func (l *Likelihood) LogLikelihood() (float64, error) {
	start := time.Now()
	l.stats = evaluationStats{}
	l.siteValid = false

	l.dirt = l.dirt.Max(l.rescaler.Begin())
	if err := l.refreshSiteModel(); err != nil {
		return 0, err
	}
	if err := l.refreshProcesses(); err != nil {
		return 0, err
	}

	root := l.tree.Root()
	l.resetQueues()
	if _, err := l.traverse(root, true); err != nil {
		return 0, err
	}

	logL, err := l.reduce(root)
	if err != nil {
		return 0, err
	}

	l.dirt = domain.Clean
	l.threshold = math.Inf(1)
	l.logL = logL

	if l.hooks.OnEvaluate != nil {
		l.hooks.OnEvaluate(context.Background(), &domain.EvaluationEvent{
			EventBase:          domain.EventBase{Timestamp: time.Now(), Type: domain.EventEvaluate},
			LogLikelihood:      logL,
			RecomputedBranches: l.stats.branches,
			DirectMatrices:     l.stats.direct,
			Operations:         l.stats.operations,
			Retried:            l.stats.retried,
			RecomputedScales:   l.rescaler.Recompute(),
			Duration:           time.Since(start),
		})
	}
	return logL, nil
}

// reduce submits the queued work and reduces the root, retrying once with fresh
// scale factors when the result is not finite and the scheme allows it.
func (l *Likelihood) reduce(root int) (float64, error) {
	for attempt := 1; ; attempt++ {
		if err := l.submit(); err != nil {
			return 0, err
		}
		logL, err := l.rootLogLikelihood(root)
		if err != nil {
			return 0, err
		}
		if !math.IsNaN(logL) && !math.IsInf(logL, 0) {
			return logL, nil
		}

		retry := l.rescaler.Underflow(attempt == 1)
		l.emitRescale(attempt, retry)
		if !retry {
			l.logger.Debug("likelihood not finite", "attempt", attempt, "scheme", l.rescaler.Scheme())
			return math.Inf(-1), nil
		}
		l.logger.Debug("likelihood underflow, retrying with scale factors", "scheme", l.rescaler.Scheme())

		// Overwrite the last attempt in place: partial and matrix slots keep their
		// buffers, scale slots flip because their factors are recomputed.
		l.stats.retried = true
		l.retried = true
		l.dirt = domain.Filthy
		l.resetQueues()
		if _, err := l.traverse(root, false); err != nil {
			return 0, err
		}
	}
}

func (l *Likelihood) emitRescale(attempt int, retry bool) {
	if l.hooks.OnRescale == nil {
		return
	}
	l.hooks.OnRescale(context.Background(), &domain.RescaleEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRescale},
		Scheme:    l.rescaler.Scheme(),
		Attempt:   attempt,
		Retry:     retry,
	})
}

func (l *Likelihood) resetQueues() {
	for e := range l.operations {
		l.matrixTargets[e] = l.matrixTargets[e][:0]
		l.matrixLengths[e] = l.matrixLengths[e][:0]
		l.operations[e] = l.operations[e][:0]
	}
}

// submit sends the batched exponentiation requests, then the partial updates, one
// call per non-empty epoch in ascending epoch order. A child is never older than
// its parent, so its operation sits in the same or a younger epoch queue.
func (l *Likelihood) submit() error {
	for e, targets := range l.matrixTargets {
		if len(targets) == 0 {
			continue
		}
		if err := l.engine.UpdateTransitionMatrices(l.eigen.Current(e), targets, l.matrixLengths[e]); err != nil {
			return fmt.Errorf("update transition matrices for epoch %d: %w", e, err)
		}
	}
	for e, ops := range l.operations {
		if len(ops) == 0 {
			continue
		}
		if err := l.engine.UpdatePartials(ops); err != nil {
			return fmt.Errorf("update partials for epoch %d: %w", e, err)
		}
	}
	return nil
}

func (l *Likelihood) rootLogLikelihood(root int) (float64, error) {
	freqs := l.rootFrequencies
	if freqs == nil {
		freqs = l.schedule.Process(l.schedule.RootEpoch(l.tree.Height(root))).Frequencies()
	}
	if !slices.Equal(freqs, l.frequencies) {
		if err := l.engine.SetStateFrequencies(freqs); err != nil {
			return 0, fmt.Errorf("set state frequencies: %w", err)
		}
		l.frequencies = append(l.frequencies[:0], freqs...)
	}
	weights := l.site.CategoryWeights()
	if !slices.Equal(weights, l.categoryWeights) {
		if err := l.engine.SetCategoryWeights(weights); err != nil {
			return 0, fmt.Errorf("set category weights: %w", err)
		}
		l.categoryWeights = append(l.categoryWeights[:0], weights...)
	}

	cumulative := domain.None
	switch {
	case l.rescaler.UseScaleFactors():
		cumulative = l.scales.Current(l.internalCount)
		if l.rescaler.Recompute() {
			l.scales.Flip(l.internalCount)
			cumulative = l.scales.Current(l.internalCount)
			if err := l.engine.ResetScaleFactors(cumulative); err != nil {
				return 0, fmt.Errorf("reset scale factors: %w", err)
			}
			if err := l.engine.AccumulateScaleFactors(l.scaleIndices, cumulative); err != nil {
				return 0, fmt.Errorf("accumulate scale factors: %w", err)
			}
		}
	case l.rescaler.useAutoScaling:
		if err := l.engine.AccumulateScaleFactors(l.scaleIndices, domain.None); err != nil {
			return 0, fmt.Errorf("accumulate scale factors: %w", err)
		}
	}

	logL, err := l.engine.CalculateRootLogLikelihood(l.partials.Current(root), cumulative)
	if err != nil {
		return 0, fmt.Errorf("calculate root log likelihood: %w", err)
	}

	pInv := l.site.ProportionInvariant()
	constant := l.patterns.ConstantPatterns()
	if pInv <= 0 || len(constant) == 0 {
		return logL, nil
	}
	if err := l.engine.SiteLogLikelihoods(l.siteLogL); err != nil {
		return 0, fmt.Errorf("site log likelihoods: %w", err)
	}
	for _, c := range constant {
		l.siteLogL[c.Pattern] = logAddExp(l.siteLogL[c.Pattern], math.Log(pInv*freqs[c.State]))
	}
	l.siteValid = true

	weightsPerPattern := l.patterns.Weights()
	logL = 0
	for i, v := range l.siteLogL {
		logL += v * weightsPerPattern[i]
	}
	return logL, nil
}

// logAddExp returns log(exp(a) + exp(b)) without leaving log space.
func logAddExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	m := math.Max(a, b)
	return m + math.Log(math.Exp(a-m)+math.Exp(b-m))
}

func (l *Likelihood) refreshSiteModel() error {
	rates := l.site.CategoryRates()
	if len(rates) != l.categoryCount {
		return fmt.Errorf("%w: %d categories, engine has %d", domain.ErrCategoryCountChanged, len(rates), l.categoryCount)
	}
	if !slices.Equal(rates, l.categoryRates) {
		if l.categoryRates != nil {
			// Every branch matrix depends on the category rates.
			l.dirt = l.dirt.Max(domain.Dirty)
		}
		l.categoryRates = append(l.categoryRates[:0], rates...)
		l.uploadRates = true
	}
	if l.uploadRates {
		if err := l.engine.SetCategoryRates(l.categoryRates); err != nil {
			return fmt.Errorf("set category rates: %w", err)
		}
		l.uploadRates = false
	}
	return nil
}

func (l *Likelihood) refreshProcesses() error {
	for e, changed := range l.processChanged {
		if !changed {
			continue
		}
		ed, ok := l.schedule.Process(e).EigenDecomposition()
		if ok && ed.StateCount() != l.stateCount {
			return fmt.Errorf("%w: eigen decomposition of epoch %d has %d states",
				domain.ErrStateCountMismatch, e, ed.StateCount())
		}
		l.eigenCapable[e] = ok
		if ok {
			l.eigen.Flip(e)
			if err := l.engine.SetEigenDecomposition(l.eigen.Current(e), ed); err != nil {
				return fmt.Errorf("set eigen decomposition for epoch %d: %w", e, err)
			}
		}
		l.processChanged[e] = false
	}
	return nil
}

// MarkProcessChanged records that the substitution process of epoch e changed.
// Every branch reaching into that epoch or an older one is recomputed.
func (l *Likelihood) MarkProcessChanged(e int) error {
	if e < 0 || e >= len(l.processChanged) {
		return fmt.Errorf("%w: epoch %d, schedule has %d", domain.ErrEpochModelMismatch, e, len(l.processChanged))
	}
	l.processChanged[e] = true
	l.threshold = math.Min(l.threshold, l.schedule.YoungerBound(e))
	return nil
}

// MarkSiteModelChanged forces every branch matrix to be recomputed. Changes in the
// category rates are also detected automatically.
func (l *Likelihood) MarkSiteModelChanged() {
	l.dirt = l.dirt.Max(domain.Dirty)
}

// MarkDataChanged reloads the tip data and recomputes everything.
func (l *Likelihood) MarkDataChanged() error {
	if err := l.loadData(); err != nil {
		return err
	}
	l.dirt = domain.Filthy
	return nil
}

// MarkAllDirty recomputes everything on the next evaluation.
func (l *Likelihood) MarkAllDirty() {
	l.dirt = domain.Filthy
}

// SetBoundaries moves the epoch boundaries. Branches straddling an old or a new
// boundary age are invalidated together with their ancestors up to the older of
// the two ages.
func (l *Likelihood) SetBoundaries(boundaries []float64) error {
	current := l.schedule.boundaries
	if len(boundaries) != len(current) {
		return fmt.Errorf("%w: %d boundaries, schedule has %d", domain.ErrEpochModelMismatch, len(boundaries), len(current))
	}
	if err := validateBoundaries(boundaries); err != nil {
		return err
	}
	for i, age := range boundaries {
		old := current[i]
		if age == old {
			continue
		}
		maxTime := math.Max(age, old) + 1e-10
		for node := 0; node < l.nodeCount; node++ {
			parent := l.tree.Parent(node)
			if parent < 0 {
				continue
			}
			h, ph := l.tree.Height(node), l.tree.Height(parent)
			if (h <= age && ph >= age) || (h <= old && ph >= old) {
				for n := node; n >= 0 && l.tree.Height(n) <= maxTime; n = l.tree.Parent(n) {
					l.cache.Invalidate(n)
				}
			}
		}
		current[i] = age
	}
	return nil
}

// Store checkpoints which buffers are current so that Restore can undo a
// speculative change. It copies index tables only, never buffer contents.
func (l *Likelihood) Store() {
	l.partials.Save()
	l.matrices.Save()
	l.eigen.Save()
	l.scales.Save()
	copy(l.storedScaleIndices, l.scaleIndices)
	l.cache.Save()
	l.schedule.save()
	l.storedCategoryRates = append(l.storedCategoryRates[:0], l.categoryRates...)
	l.storedLog = l.logL
	l.storedDirt = l.dirt
	l.retried = false
}

// Restore returns to the state captured by the last Store, or to the freshly
// constructed state when Store was never called.
func (l *Likelihood) Restore() {
	l.partials.Rollback()
	l.matrices.Rollback()
	l.eigen.Rollback()
	l.scales.Rollback()
	l.scaleIndices, l.storedScaleIndices = l.storedScaleIndices, l.scaleIndices
	l.cache.Rollback()
	l.schedule.rollback()
	l.categoryRates, l.storedCategoryRates = l.storedCategoryRates, l.categoryRates
	l.uploadRates = true
	l.logL, l.storedLog = l.storedLog, l.logL
	l.siteValid = false
	l.dirt = l.dirt.Max(l.storedDirt)
	if l.retried {
		// A retry rescales partials in place, so the checkpointed buffers no
		// longer match the checkpointed scale factors.
		l.dirt = domain.Filthy
		l.rescaler.invalidate()
	}
}

// PatternLogLikelihoods returns the per-pattern log-likelihoods of the last evaluation.
func (l *Likelihood) PatternLogLikelihoods() ([]float64, error) {
	if !l.siteValid {
		if err := l.engine.SiteLogLikelihoods(l.siteLogL); err != nil {
			return nil, fmt.Errorf("site log likelihoods: %w", err)
		}
		l.siteValid = true
	}
	return slices.Clone(l.siteLogL), nil
}

// TransitionMatrix returns the current transition matrix (all categories) of the
// branch above node.
func (l *Likelihood) TransitionMatrix(node int) ([]float64, error) {
	out := make([]float64, l.categoryCount*l.stateCount*l.stateCount)
	if err := l.engine.TransitionMatrix(l.matrices.Current(node), out); err != nil {
		return nil, err
	}
	return out, nil
}

// Branch returns the branch cache entry of node.
func (l *Likelihood) Branch(node int) BranchEntry {
	return l.cache.Entry(node)
}

// Capabilities reports the engine in use.
func (l *Likelihood) Capabilities() domain.Capabilities {
	return l.caps
}

// Scheme returns the effective rescaling scheme.
func (l *Likelihood) Scheme() domain.Scheme {
	return l.rescaler.Scheme()
}

// EverUnderflowed reports whether an evaluation has produced a non-finite likelihood.
func (l *Likelihood) EverUnderflowed() bool {
	return l.rescaler.EverUnderflowed()
}

// Snapshot captures the bookkeeping needed to resume a sampler.
func (l *Likelihood) Snapshot(id string) *domain.Checkpoint {
	cp := &domain.Checkpoint{
		ID:            id,
		NodeCount:     l.nodeCount,
		EpochCount:    l.schedule.Len(),
		Boundaries:    l.schedule.Boundaries(),
		Partials:      l.partials.Snapshot(),
		Matrices:      l.matrices.Snapshot(),
		Eigen:         l.eigen.Snapshot(),
		Scales:        l.scales.Snapshot(),
		Branches:      l.cache.records(),
		LogLikelihood: l.logL,
	}
	l.rescaler.checkpoint(cp)
	return cp
}

// Resume loads a checkpoint taken from a likelihood with the same layout. Buffer
// contents are not part of a checkpoint, so the next evaluation recomputes
// everything into the restored slots.
func (l *Likelihood) Resume(cp *domain.Checkpoint) error {
	if cp.NodeCount != l.nodeCount || cp.EpochCount != l.schedule.Len() || len(cp.Branches) != l.nodeCount {
		return fmt.Errorf("%w: checkpoint %q has %d nodes and %d epochs",
			domain.ErrCheckpointShape, cp.ID, cp.NodeCount, cp.EpochCount)
	}
	if err := validateBoundaries(cp.Boundaries); err != nil || len(cp.Boundaries) != len(l.schedule.boundaries) {
		return fmt.Errorf("%w: checkpoint %q boundaries %v", domain.ErrCheckpointShape, cp.ID, cp.Boundaries)
	}
	tables := []struct {
		table *BufferSlotTable
		state []int
	}{
		{l.partials, cp.Partials},
		{l.matrices, cp.Matrices},
		{l.eigen, cp.Eigen},
		{l.scales, cp.Scales},
	}
	for _, t := range tables {
		if err := t.table.Load(t.state); err != nil {
			return err
		}
	}
	for i, b := range cp.Branches {
		l.cache.commit(i, BranchEntry{Time: b.Time, StartEpoch: b.StartEpoch, EndEpoch: b.EndEpoch})
	}
	l.cache.Save()
	copy(l.schedule.boundaries, cp.Boundaries)
	l.schedule.save()
	for i := range l.scaleIndices {
		l.scaleIndices[i] = l.scales.Current(i)
	}
	copy(l.storedScaleIndices, l.scaleIndices)
	l.rescaler.resume(cp)

	for e := range l.processChanged {
		l.processChanged[e] = true
	}
	l.dirt = domain.Filthy
	l.storedDirt = domain.Filthy
	l.retried = false
	l.logL = cp.LogLikelihood
	l.logger.Info("likelihood resumed from checkpoint", "id", cp.ID)
	return nil
}

// Close releases the engine.
func (l *Likelihood) Close() error {
	return l.engine.Close()
}
