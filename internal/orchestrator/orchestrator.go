// Package orchestrator drives one ingestion run: planning, phase-barriered
// connector execution, deduplication and report assembly.
//
// The orchestrator is single-writer over the run state. Within a phase,
// fetches run concurrently; their results are applied to the state in
// alphabetical connector order after the phase joins.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/connector"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/dedup"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/lens"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/planner"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/queryfeat"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/usage"
)

// DefaultTimeoutSeconds bounds a fetch when connector metadata declares none.
const DefaultTimeoutSeconds = 30

// Orchestrator executes ingestion requests.
type Orchestrator struct {
	registry *connector.Registry
	usage    usage.Store
	logger   *zap.Logger

	// Per-connector instantiation config, keyed by connector name.
	configs map[string]map[string]any

	now func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfigs sets per-connector instantiation config.
func WithConfigs(configs map[string]map[string]any) Option {
	return func(o *Orchestrator) { o.configs = configs }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator. A nil usage store disables rate limiting and a
// nil logger falls back to a no-op logger.
func New(registry *connector.Registry, usageStore usage.Store, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		registry: registry,
		usage:    usageStore,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one ingestion request and returns the run state with its
// report populated. Only configuration problems return an error; operational
// failures are recorded in the report.
func (o *Orchestrator) Run(ctx context.Context, req *core.IngestionRequest, execCtx *core.ExecutionContext) (*core.State, error) {
	start := o.now()
	state := core.NewState(req.Query)
	state.Report.RunID = uuid.NewString()
	if execCtx != nil {
		state.Report.LensHash = execCtx.LensHash
	}

	var contract *lens.Contract
	if execCtx != nil {
		contract, _ = execCtx.Lens.(*lens.Contract)
	}

	var keywords lens.Keywords
	if contract != nil {
		keywords = contract.Keywords
	}
	features := queryfeat.Extract(req.Query, req, keywords)

	plan, err := o.buildPlan(req, features, contract)
	if err != nil {
		return nil, err
	}
	o.logger.Info("execution plan",
		zap.String("run_id", state.Report.RunID),
		zap.Strings("connectors", plan.Names()))

	deduped := 0 // candidates already passed through dedup
	for _, phase := range core.AllPhases() {
		adapters := plan.Phase(phase)
		if len(adapters) == 0 {
			continue
		}

		if req.BudgetUSD > 0 {
			var phaseCost float64
			for _, a := range adapters {
				phaseCost += a.Metadata.EstimatedCostUSD
			}
			if state.BudgetSpentUSD+phaseCost > req.BudgetUSD {
				state.Report.Warnings = append(state.Report.Warnings,
					fmt.Sprintf("budget: skipping %s phase (spent %.4f, phase needs %.4f, budget %.4f)",
						phase, state.BudgetSpentUSD, phaseCost, req.BudgetUSD))
				break
			}
		}

		o.runPhase(ctx, state, adapters)

		// Dedup the candidates this phase contributed.
		for i := deduped; i < len(state.Candidates); i++ {
			dedup.Accept(&state.Candidates[i], state)
		}
		deduped = len(state.Candidates)
		state.Confidence = confidence(state)

		if ctx.Err() != nil {
			state.Report.Warnings = append(state.Report.Warnings, "run cancelled: remaining phases skipped")
			break
		}
		if stop, why := o.earlyStop(req, state); stop {
			o.logger.Info("early stop", zap.String("run_id", state.Report.RunID), zap.String("reason", why))
			break
		}
	}

	state.Report.CandidatesFound = len(state.Candidates)
	state.Report.AcceptedEntities = len(state.AcceptedEntities)
	state.Report.DurationMS = o.now().Sub(start).Milliseconds()
	return state, nil
}

// buildPlan selects connectors, or builds the single-connector diagnostic
// plan when the request names one.
func (o *Orchestrator) buildPlan(req *core.IngestionRequest, features queryfeat.Features, contract *lens.Contract) (*planner.ExecutionPlan, error) {
	if req.Connector == "" {
		return planner.Select(req, features, contract, o.registry), nil
	}
	reg, ok := o.registry.Get(req.Connector)
	if !ok {
		return nil, core.ConfigError("unknown connector: %s", req.Connector)
	}
	return &planner.ExecutionPlan{
		Adapters: []planner.AdapterSpec{{Name: req.Connector, Metadata: reg.Metadata}},
	}, nil
}

// =============================================================================
// PHASE EXECUTION
// =============================================================================

// execution is one adapter's prepared call and, after the join, its result.
type execution struct {
	name       string
	meta       connector.Metadata
	mapper     connector.Mapper
	instance   connector.Connector
	query      string
	skipped    bool
	prepareErr error

	rateLimited bool
	fetchErr    error
	result      *core.FetchResult
	durationMS  int64
}

// runPhase prepares every adapter on the orchestrator goroutine, fans the
// fetches out, joins, and applies results in alphabetical order.
func (o *Orchestrator) runPhase(ctx context.Context, state *core.State, adapters []planner.AdapterSpec) {
	executions := make([]*execution, 0, len(adapters))
	for _, spec := range adapters {
		executions = append(executions, o.prepare(state, spec))
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, exec := range executions {
		if exec.skipped || exec.prepareErr != nil {
			continue
		}
		exec := exec
		group.Go(func() error {
			o.fetch(groupCtx, exec)
			return nil
		})
	}
	_ = group.Wait()

	sort.Slice(executions, func(i, j int) bool { return executions[i].name < executions[j].name })
	for _, exec := range executions {
		o.apply(state, exec)
	}
}

// prepare resolves gating, query translation and instantiation for one
// adapter. Runs on the orchestrator goroutine so it may read state.
func (o *Orchestrator) prepare(state *core.State, spec planner.AdapterSpec) *execution {
	exec := &execution{name: spec.Name, meta: spec.Metadata, query: state.Report.Query}

	reg, ok := o.registry.Get(spec.Name)
	if !ok {
		exec.prepareErr = fmt.Errorf("connector not registered: %s", spec.Name)
		return exec
	}
	exec.mapper = reg.Mapper

	if planner.ShouldSkip(spec.Metadata, state) {
		exec.skipped = true
		return exec
	}

	if reg.Translator != nil {
		translated, err := reg.Translator(state.Report.Query, state.Evidence)
		if err != nil {
			exec.prepareErr = fmt.Errorf("query translation: %w", err)
			return exec
		}
		exec.query = translated
	}

	instance, err := o.registry.Create(spec.Name, o.configs[spec.Name])
	if err != nil {
		exec.prepareErr = fmt.Errorf("create connector: %w", err)
		return exec
	}
	exec.instance = instance
	return exec
}

// fetch runs the rate-limit gate and the bounded fetch. Runs concurrently;
// touches no shared state.
func (o *Orchestrator) fetch(ctx context.Context, exec *execution) {
	if o.usage != nil && exec.meta.RateLimitPerDay > 0 {
		allowed, err := o.usage.Reserve(ctx, exec.name, o.now(), exec.meta.RateLimitPerDay)
		if err != nil {
			exec.fetchErr = fmt.Errorf("usage counter: %w", err)
			return
		}
		if !allowed {
			exec.rateLimited = true
			return
		}
	}

	timeout := exec.meta.TimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultTimeoutSeconds
	}
	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	started := o.now()
	result, err := exec.instance.Fetch(fetchCtx, exec.query)
	exec.durationMS = o.now().Sub(started).Milliseconds()
	exec.result = result
	exec.fetchErr = err
}

// apply serialises one adapter's outcome into the state.
func (o *Orchestrator) apply(state *core.State, exec *execution) {
	metrics := state.Report.Metrics(exec.name)
	metrics.ExecutionTimeMS = exec.durationMS

	switch {
	case exec.skipped:
		return

	case exec.prepareErr != nil:
		metrics.Error = exec.prepareErr.Error()
		state.Report.Errors = append(state.Report.Errors, core.ConnectorError{
			Connector: exec.name, Error: exec.prepareErr.Error(),
		})
		return

	case exec.rateLimited:
		metrics.RateLimited = true
		state.Report.Errors = append(state.Report.Errors, core.ConnectorError{
			Connector: exec.name, Error: "rate limit exceeded", RateLimited: true,
		})
		return

	case exec.fetchErr != nil:
		msg := exec.fetchErr.Error()
		if isTimeout(exec.fetchErr) {
			msg = "timeout"
		}
		metrics.Error = msg
		state.Report.Errors = append(state.Report.Errors, core.ConnectorError{
			Connector: exec.name, Error: msg, ExecutionTimeMS: exec.durationMS,
		})
		o.logger.Warn("connector failed", zap.String("connector", exec.name), zap.Error(exec.fetchErr))
		return
	}

	metrics.Executed = true
	metrics.CostUSD = exec.meta.EstimatedCostUSD
	state.BudgetSpentUSD += exec.meta.EstimatedCostUSD

	if exec.result == nil {
		return
	}
	metrics.ItemsReceived = len(exec.result.Results)

	var first *core.Candidate
	for _, item := range exec.result.Results {
		candidate, err := exec.mapper(item)
		if err != nil {
			metrics.MappingFailures++
			continue
		}
		state.Candidates = append(state.Candidates, candidate)
		metrics.CandidatesAdded++
		if first == nil {
			first = &state.Candidates[len(state.Candidates)-1]
		}
	}

	if first != nil {
		o.populateEvidence(state, exec.meta, first)
	}
}

// populateEvidence fills provided context.* keys from the connector's first
// candidate. Existing evidence is never overwritten: the earliest provider in
// plan order wins, matching dependency inference.
func (o *Orchestrator) populateEvidence(state *core.State, meta connector.Metadata, first *core.Candidate) {
	for _, key := range meta.Provides {
		if !strings.HasPrefix(key, "context.") {
			continue
		}
		if _, set := state.ContextValue(key); set {
			continue
		}
		if value := evidenceValue(key, first); value != "" {
			state.Evidence[key] = value
		}
	}
}

// evidenceValue derives a context value from a candidate: id-like keys take
// the first external id, everything else takes the name.
func evidenceValue(key string, c *core.Candidate) string {
	if strings.HasSuffix(key, "_id") || strings.HasSuffix(key, "_number") {
		kinds := make([]string, 0, len(c.IDs))
		for kind := range c.IDs {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		if len(kinds) > 0 {
			return c.IDs[kinds[0]]
		}
		return ""
	}
	return c.Name
}

// =============================================================================
// STOP CONDITIONS
// =============================================================================

// earlyStop evaluates the post-phase stop conditions.
func (o *Orchestrator) earlyStop(req *core.IngestionRequest, state *core.State) (bool, string) {
	if req.BudgetUSD > 0 && state.BudgetSpentUSD >= req.BudgetUSD {
		return true, "budget exhausted"
	}
	switch req.Mode {
	case core.ModeResolveOne:
		if req.MinConfidence > 0 && state.Confidence >= req.MinConfidence && len(state.AcceptedEntities) >= 1 {
			return true, "confidence reached"
		}
	case core.ModeDiscoverMany:
		if req.TargetEntityCount > 0 && len(state.AcceptedEntities) >= req.TargetEntityCount {
			return true, "target entity count reached"
		}
	}
	return false, ""
}

// confidence scores the best accepted entity: a base for existing, bonuses
// for strong ids and coordinates.
func confidence(state *core.State) float64 {
	best := 0.0
	for i := range state.AcceptedEntities {
		c := &state.AcceptedEntities[i].Candidate
		score := 0.5
		if c.HasStrongIDs() {
			score += 0.2
		}
		if c.HasCoordinates() {
			score += 0.2
		}
		if score > best {
			best = score
		}
	}
	return best
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || core.ClassifyError(err) == core.CodeTimeout
}
