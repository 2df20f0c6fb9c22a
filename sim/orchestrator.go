package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"go.jacobcolvin.com/eventsim/config"
	"go.jacobcolvin.com/eventsim/entity"
	"go.jacobcolvin.com/eventsim/generate"
	"go.jacobcolvin.com/eventsim/schema"
)

// ErrUnknownEventType indicates a scheduled event whose type has no
// definition.
var ErrUnknownEventType = errors.New("unknown event type")

// Orchestrator drives a simulation: it owns the virtual clock, the entity
// store, the event queue, and the active scenarios, and pushes realized
// events into its sinks.
//
// All randomness comes from one seeded source, and the scheduler breaks
// same-instant ties by insertion order, so two runs with the same seed and
// configuration emit identical event streams.
type Orchestrator struct {
	cfg       *config.Config
	registry  *schema.Registry
	store     *entity.Store
	generator *generate.Generator
	scheduler *Scheduler
	sinks     []Sink
	rand      *rand.Rand

	startTime time.Time
	simTime   time.Time

	activeScenarios []*ScenarioInstance
	eventCount      int
}

// New assembles an orchestrator from a validated configuration. Without a
// configured random_seed each run seeds from the wall clock.
func New(cfg *config.Config, sinks []Sink) (*Orchestrator, error) {
	seed := time.Now().UnixNano()
	if cfg.SimulationSettings.RandomSeed != nil {
		seed = *cfg.SimulationSettings.RandomSeed
	}

	start, err := cfg.SimulationSettings.TimeProgression.Start(time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: start_time: %w", config.ErrInvalidConfig, err)
	}

	o := &Orchestrator{
		cfg:       cfg,
		registry:  schema.NewRegistry(cfg.Schemas),
		scheduler: NewScheduler(),
		sinks:     sinks,
		rand:      rand.New(rand.NewSource(seed)), //nolint:gosec // Reproducibility needs math/rand.
		startTime: start,
		simTime:   start,
	}

	// Entity creation stamps CreatedAt from the virtual clock.
	o.store = entity.NewStore(entity.WithClock(func() time.Time { return o.simTime }))
	o.generator = generate.New(o.registry, o.store, o.rand, gofakeit.New(uint64(seed))) //nolint:gosec // Seed truncation is fine.

	return o, nil
}

// Store exposes the entity store, mainly for inspection after a run.
func (o *Orchestrator) Store() *entity.Store { return o.store }

// EventCount reports how many events have been emitted so far.
func (o *Orchestrator) EventCount() int { return o.eventCount }

// Initialize creates the configured initial entity population, primes the
// event queue, and starts initial scenarios. It must run once before [Run].
//
// Priming is deliberately not gated on entity availability; events whose
// dependencies are missing at realization time are skipped, which lets a
// simulation bootstrap itself.
func (o *Orchestrator) Initialize() error {
	counts := o.cfg.SimulationSettings.InitialEntityCounts

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		for range counts[name] {
			_, err := o.createEntity(name)
			if err != nil {
				return fmt.Errorf("initial %s entities: %w", name, err)
			}
		}

		slog.Info("created initial entities", "entity", name, "count", counts[name])
	}

	eventTypes, weights := o.eventTypeWeights(false)

	for range primeBatch {
		i, ok := weightedIndex(o.rand, weights)
		if !ok {
			break
		}

		at := o.simTime.Add(randomDelay(o.rand, 0, primeDelayMax))
		o.scheduler.Push(eventTypes[i], at, nil)
	}

	o.initiateScenarios()

	slog.Info("simulation initialized",
		"start", o.startTime,
		"queued", o.scheduler.Len(),
		"scenarios", len(o.activeScenarios))

	return nil
}

// Run processes the event queue until a termination condition is met: the
// configured duration of virtual time elapses, the total event budget is
// spent, the queue empties with nothing left to schedule, or ctx is
// canceled.
func (o *Orchestrator) Run(ctx context.Context) error {
	limit := o.cfg.SimulationSettings.DurationLimit()
	budget := o.cfg.SimulationSettings.TotalEvents

	for {
		if ctx.Err() != nil {
			slog.Info("simulation interrupted", "events", o.eventCount, "sim_time", o.simTime)

			return nil
		}

		if budget != nil && o.eventCount >= *budget {
			slog.Info("event budget reached", "total_events", *budget)

			break
		}

		if o.scheduler.Len() == 0 {
			o.replenish()

			if o.scheduler.Len() == 0 {
				slog.Info("nothing left to schedule")

				break
			}
		}

		scheduled, _ := o.scheduler.Pop()

		// The bound applies to the popped entry, not the clock before it: an
		// event scheduled past start+duration is never emitted.
		if limit > 0 && scheduled.At.Sub(o.startTime) > limit {
			slog.Info("simulation duration reached", "duration", limit)

			break
		}

		// The queue is time-ordered, so the clock only moves forward.
		o.simTime = scheduled.At

		o.processScheduled(scheduled)

		o.reapScenarios()

		if o.scheduler.Len() < queueLowWater {
			o.replenish()
		}
	}

	slog.Info("simulation complete", "events", o.eventCount, "sim_time", o.simTime)

	return nil
}

func (o *Orchestrator) processScheduled(scheduled *ScheduledEvent) {
	instance, _ := scheduled.Context[generate.KeyScenarioInstance].(*ScenarioInstance)

	event, err := o.realizeEvent(scheduled)

	switch {
	case errors.Is(err, generate.ErrEntityUnavailable):
		slog.Debug("skipping event", "event_type", scheduled.EventType, "reason", err)
	case err != nil:
		slog.Warn("event generation failed", "event_type", scheduled.EventType, "error", err)
	default:
		o.emit(event)
	}

	if instance == nil {
		return
	}

	// A failed step would leave the storyline dangling; abandon it instead.
	if event == nil {
		instance.Completed = true

		return
	}

	o.scheduleScenarioStep(instance)
}

// realizeEvent turns a queue entry into an emitted event: it binds consumed
// entities, generates the payload, and applies entity effects.
func (o *Orchestrator) realizeEvent(scheduled *ScheduledEvent) (*Event, error) {
	def, ok := o.cfg.EventTypes[scheduled.EventType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, scheduled.EventType)
	}

	ctx := scheduled.Context.Clone()
	ctx[generate.KeySimulationTime] = o.simTime

	consumed, err := o.bindConsumed(def, ctx)
	if err != nil {
		return nil, err
	}

	var payload any = map[string]any{}

	if def.PayloadSchema != nil {
		payload, err = o.generator.Generate(def.PayloadSchema, ctx)
		if err != nil {
			return nil, fmt.Errorf("payload: %w", err)
		}
	}

	event := &Event{
		EventType: scheduled.EventType,
		Payload:   payload,
		Timestamp: o.simTime,
	}

	payloadMap, _ := payload.(map[string]any)

	o.applyEffects(def, ctx, payloadMap, consumed)

	return event, nil
}

// bindConsumed resolves the event's entity dependencies into the generation
// context. Aliases already bound, typically by a scenario, keep their refs
// but are still checked against the entry's selection filter.
func (o *Orchestrator) bindConsumed(
	def config.EventTypeDefinition, ctx generate.Context,
) (map[string][]entity.Ref, error) {
	consumed := map[string][]entity.Ref{}

	if prior, ok := ctx[generate.KeyConsumedEntities].(map[string][]entity.Ref); ok {
		for alias, refs := range prior {
			consumed[alias] = refs
		}
	}

	for _, c := range def.ConsumesEntities {
		alias := c.AliasName()

		if refs, ok := boundRefs(ctx[generate.EntityKeyPrefix+alias]); ok {
			err := o.checkBound(c, refs)
			if err != nil {
				return nil, err
			}

			continue
		}

		matches, err := o.store.Find(c.TypeName(), c.Predicates(), 0)
		if err != nil {
			return nil, fmt.Errorf("consume %s: %w", alias, err)
		}

		if len(matches) < c.MinCount() {
			return nil, fmt.Errorf("%w: need %d %s entities, have %d",
				generate.ErrEntityUnavailable, c.MinCount(), c.TypeName(), len(matches))
		}

		refs := make([]entity.Ref, 0, c.MinCount())
		for _, e := range matches[:c.MinCount()] {
			refs = append(refs, e.Ref())
		}

		consumed[alias] = refs

		if len(refs) == 1 {
			ctx[generate.EntityKeyPrefix+alias] = refs[0]
		} else {
			ctx[generate.EntityKeyPrefix+alias] = refs
		}
	}

	ctx[generate.KeyConsumedEntities] = consumed

	return consumed, nil
}

// checkBound re-validates refs carried over from an earlier step: the
// entities must still exist and still satisfy the selection filter.
func (o *Orchestrator) checkBound(c config.Consumption, refs []entity.Ref) error {
	if len(refs) < c.MinCount() {
		return fmt.Errorf("%w: need %d %s entities, have %d bound",
			generate.ErrEntityUnavailable, c.MinCount(), c.TypeName(), len(refs))
	}

	for _, ref := range refs {
		e := o.store.Resolve(ref)
		if e == nil {
			return fmt.Errorf("%w: bound %s no longer exists", generate.ErrEntityUnavailable, ref)
		}

		ok, err := entity.Matches(e, c.Predicates())
		if err != nil {
			return fmt.Errorf("consume %s: %w", c.AliasName(), err)
		}

		if !ok {
			return fmt.Errorf("%w: bound %s no longer matches the selection filter",
				generate.ErrEntityUnavailable, ref)
		}
	}

	return nil
}

func boundRefs(v any) ([]entity.Ref, bool) {
	switch bound := v.(type) {
	case entity.Ref:
		return []entity.Ref{bound}, true
	case []entity.Ref:
		return bound, true
	}

	return nil, false
}

//nolint:cyclop // Effects apply in a fixed order; splitting obscures that.
func (o *Orchestrator) applyEffects(
	def config.EventTypeDefinition,
	ctx generate.Context,
	payload map[string]any,
	consumed map[string][]entity.Ref,
) {
	if def.ProducesEntity != "" {
		e := o.produceEntity(def.ProducesEntity, payload)
		o.bindProduced(ctx, e)
	}

	if def.ProducesOrUpdatesEntity != "" {
		entityType := def.ProducesOrUpdatesEntity

		var e *entity.Entity

		if o.rand.Float64() < def.UpdateProbability() {
			if all := o.store.AllOf(entityType); len(all) > 0 {
				target := all[o.rand.Intn(len(all))]
				e = o.store.UpdateData(entityType, target.ID, payload)
			}
		}

		// Nothing to update, or the draw said create.
		if e == nil {
			e = o.produceEntity(entityType, payload)
		}

		o.bindProduced(ctx, e)
	}

	for _, update := range def.UpdatesEntityState {
		o.applyStateUpdate(update, ctx, payload, consumed)
	}
}

// produceEntity creates an entity of the given type from payload data and
// initializes its state attributes.
func (o *Orchestrator) produceEntity(entityType string, data map[string]any) *entity.Entity {
	def := o.cfg.Entities[entityType]

	if data == nil {
		data = map[string]any{}
	}

	e := o.store.Create(entityType, data, def.PrimaryKey)
	o.initState(e, def)

	return e
}

// bindProduced makes a freshly produced entity addressable by later effects
// under its type name, and by its scenario alias if the driving step set one.
func (o *Orchestrator) bindProduced(ctx generate.Context, e *entity.Entity) {
	ctx[generate.EntityKeyPrefix+e.Type] = e.Ref()

	instance, ok := ctx[generate.KeyScenarioInstance].(*ScenarioInstance)
	if !ok {
		return
	}

	alias, ok := ctx[generate.KeyEntityAlias].(string)
	if !ok {
		return
	}

	instance.BindAlias(alias, e.Ref())
}

func (o *Orchestrator) applyStateUpdate(
	update config.StateUpdate,
	ctx generate.Context,
	payload map[string]any,
	consumed map[string][]entity.Ref,
) {
	ref, ok := resolveUpdateTarget(update.EntityAlias, ctx, consumed)
	if !ok {
		slog.Warn("no entity for state update", "alias", update.EntityAlias)

		return
	}

	sets := resolveAttributeValues(update.SetAttributes, payload)
	increments := resolveAttributeValues(update.IncrementAttributes, payload)

	_, err := o.store.UpdateState(ref.Type, ref.ID, sets, increments)
	if err != nil {
		slog.Warn("state update failed", "ref", ref, "error", err)
	}
}

func resolveUpdateTarget(
	alias string, ctx generate.Context, consumed map[string][]entity.Ref,
) (entity.Ref, bool) {
	switch bound := ctx[generate.EntityKeyPrefix+alias].(type) {
	case entity.Ref:
		return bound, true
	case []entity.Ref:
		if len(bound) > 0 {
			return bound[0], true
		}
	}

	if refs := consumed[alias]; len(refs) > 0 {
		return refs[0], true
	}

	return entity.Ref{}, false
}

// resolveAttributeValues replaces {from_payload_field: path} markers with the
// value at that dotted path in the payload; literals pass through.
func resolveAttributeValues(attrs map[string]any, payload map[string]any) map[string]any {
	if len(attrs) == 0 {
		return nil
	}

	out := make(map[string]any, len(attrs))

	for attr, value := range attrs {
		if m, ok := value.(map[string]any); ok {
			if path, ok := m["from_payload_field"].(string); ok {
				out[attr] = entity.NestedValue(payload, path)

				continue
			}
		}

		out[attr] = value
	}

	return out
}

// createEntity generates data for a configured entity type and stores it.
func (o *Orchestrator) createEntity(entityType string) (*entity.Entity, error) {
	def, ok := o.cfg.Entities[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: entity %q", config.ErrInvalidConfig, entityType)
	}

	s, err := o.registry.Resolve(def.SchemaName())
	if err != nil {
		return nil, err
	}

	data, err := o.generator.Generate(s, generate.Context{generate.KeySimulationTime: o.simTime})
	if err != nil {
		return nil, err
	}

	dataMap, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: schema for entity %q must generate an object", schema.ErrInvalidSchema, entityType)
	}

	e := o.store.Create(entityType, dataMap, def.PrimaryKey)
	o.initState(e, def)

	return e, nil
}

// initState seeds an entity's state attributes: from_field copies a data
// field, otherwise the declared default applies. Attributes resolving to nil
// stay unset.
func (o *Orchestrator) initState(e *entity.Entity, def config.EntityDefinition) {
	if len(def.StateAttributes) == 0 {
		return
	}

	sets := map[string]any{}

	for name, attr := range def.StateAttributes {
		if attr.FromField != "" {
			if v := e.DataField(attr.FromField); v != nil {
				sets[name] = v
			}

			continue
		}

		if attr.Default != nil {
			sets[name] = attr.Default
		}
	}

	if len(sets) == 0 {
		return
	}

	_, err := o.store.UpdateState(e.Type, e.ID, sets, nil)
	if err != nil {
		slog.Warn("state init failed", "ref", e.Ref(), "error", err)
	}
}

func (o *Orchestrator) emit(event *Event) {
	for _, sink := range o.sinks {
		err := sink.Emit(event)
		if err != nil {
			slog.Error("sink emit failed", "event_type", event.EventType, "error", err)
		}
	}

	o.eventCount++

	if o.eventCount%100 == 0 {
		slog.Info("progress", "events", o.eventCount, "sim_time", o.simTime)
	}
}

// replenish tops the queue up with events whose entity dependencies are
// currently satisfiable, weighted by frequency.
func (o *Orchestrator) replenish() {
	eventTypes, weights := o.eventTypeWeights(true)
	if len(eventTypes) == 0 {
		return
	}

	for range replenishBatch {
		i, ok := weightedIndex(o.rand, weights)
		if !ok {
			return
		}

		at := o.simTime.Add(randomDelay(o.rand, replenishDelayMin, replenishDelayMax))
		o.scheduler.Push(eventTypes[i], at, nil)
	}
}

// eventTypeWeights lists event types and their frequency weights in name
// order, optionally filtered to those generable right now.
func (o *Orchestrator) eventTypeWeights(feasibleOnly bool) ([]string, []float64) {
	names := make([]string, 0, len(o.cfg.EventTypes))
	for name := range o.cfg.EventTypes {
		names = append(names, name)
	}

	sort.Strings(names)

	eventTypes := make([]string, 0, len(names))
	weights := make([]float64, 0, len(names))

	for _, name := range names {
		def := o.cfg.EventTypes[name]

		if feasibleOnly && !o.canGenerate(def) {
			continue
		}

		eventTypes = append(eventTypes, name)
		weights = append(weights, def.Weight())
	}

	return eventTypes, weights
}

func (o *Orchestrator) canGenerate(def config.EventTypeDefinition) bool {
	for _, c := range def.ConsumesEntities {
		if o.store.Count(c.TypeName(), c.Predicates()) < c.MinCount() {
			return false
		}
	}

	return true
}

// weightedIndex draws an index proportionally to weights. It reports false
// when the weights sum to zero or less, consuming no randomness.
func weightedIndex(r *rand.Rand, weights []float64) (int, bool) {
	var total float64
	for _, w := range weights {
		total += w
	}

	if total <= 0 {
		return 0, false
	}

	target := r.Float64() * total

	for i, w := range weights {
		target -= w
		if target < 0 {
			return i, true
		}
	}

	return len(weights) - 1, true
}

func randomDelay(r *rand.Rand, minDelay, maxDelay time.Duration) time.Duration {
	return minDelay + time.Duration(r.Float64()*float64(maxDelay-minDelay))
}
