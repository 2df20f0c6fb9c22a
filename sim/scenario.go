package sim

import (
	"sort"

	"go.jacobcolvin.com/eventsim/config"
	"go.jacobcolvin.com/eventsim/entity"
	"go.jacobcolvin.com/eventsim/generate"
)

// maxActiveScenarios bounds how many storylines run concurrently.
const maxActiveScenarios = 5

// ScenarioInstance is one in-flight run of a scenario definition. Steps of
// the same instance share its context, so an entity produced by one step is
// addressable by later steps through EntityAliases.
type ScenarioInstance struct {
	Name          string
	Context       generate.Context
	CurrentStep   int
	Completed     bool
	EntityAliases map[string]entity.Ref
}

// BindAlias records an entity produced on behalf of this instance and makes
// it visible to later steps' payload generation and state updates.
func (s *ScenarioInstance) BindAlias(alias string, ref entity.Ref) {
	s.EntityAliases[alias] = ref
	s.Context[generate.EntityKeyPrefix+alias] = ref
}

// initiateScenarios starts new scenario instances until the active set is
// full or nothing else can start. At most one instance of a given scenario
// runs at a time, so a storyline's event order is never interleaved with
// itself.
func (o *Orchestrator) initiateScenarios() {
	if len(o.cfg.Scenarios) == 0 {
		return
	}

	for len(o.activeScenarios) < maxActiveScenarios {
		names, weights := o.startableScenarios()
		if len(names) == 0 {
			return
		}

		i, ok := weightedIndex(o.rand, weights)
		if !ok {
			return
		}

		instance := o.startScenario(names[i])
		if instance == nil {
			return
		}

		o.activeScenarios = append(o.activeScenarios, instance)
		o.scheduleScenarioStep(instance)
	}
}

// startableScenarios lists scenarios with no active instance whose entity
// requirements are currently satisfiable, in name order.
func (o *Orchestrator) startableScenarios() ([]string, []float64) {
	active := make(map[string]bool, len(o.activeScenarios))
	for _, instance := range o.activeScenarios {
		active[instance.Name] = true
	}

	names := make([]string, 0, len(o.cfg.Scenarios))
	for name := range o.cfg.Scenarios {
		names = append(names, name)
	}

	sort.Strings(names)

	startable := make([]string, 0, len(names))
	weights := make([]float64, 0, len(names))

	for _, name := range names {
		if active[name] {
			continue
		}

		def := o.cfg.Scenarios[name]
		if len(def.Steps) == 0 || !o.requirementsMet(def.RequiresInitialEntities) {
			continue
		}

		weight := def.InitiationWeight
		if weight == 0 {
			weight = 1
		}

		startable = append(startable, name)
		weights = append(weights, weight)
	}

	return startable, weights
}

func (o *Orchestrator) requirementsMet(requirements []config.Consumption) bool {
	for _, req := range requirements {
		if o.store.Count(req.TypeName(), req.Predicates()) < req.MinCount() {
			return false
		}
	}

	return true
}

// startScenario binds the scenario's required entities and returns a fresh
// instance, or nil if a requirement can no longer be satisfied.
func (o *Orchestrator) startScenario(name string) *ScenarioInstance {
	def := o.cfg.Scenarios[name]

	ctx := generate.Context{}
	consumed := map[string][]entity.Ref{}

	for _, req := range def.RequiresInitialEntities {
		matches, err := o.store.Find(req.TypeName(), req.Predicates(), req.MinCount())
		if err != nil || len(matches) < req.MinCount() {
			return nil
		}

		refs := make([]entity.Ref, 0, len(matches))
		for _, e := range matches {
			refs = append(refs, e.Ref())
		}

		alias := req.AliasName()
		consumed[alias] = refs

		if len(refs) == 1 {
			ctx[generate.EntityKeyPrefix+alias] = refs[0]
		} else {
			ctx[generate.EntityKeyPrefix+alias] = refs
		}
	}

	if len(consumed) > 0 {
		ctx[generate.KeyConsumedEntities] = consumed
	}

	return &ScenarioInstance{
		Name:          name,
		Context:       ctx,
		EntityAliases: map[string]entity.Ref{},
	}
}

// scheduleScenarioStep enqueues the instance's current step and advances it.
// Past the last step the instance is marked completed instead.
func (o *Orchestrator) scheduleScenarioStep(instance *ScenarioInstance) {
	def := o.cfg.Scenarios[instance.Name]

	if instance.CurrentStep >= len(def.Steps) {
		instance.Completed = true

		return
	}

	step := def.Steps[instance.CurrentStep]

	ctx := instance.Context.Clone()
	ctx[generate.KeyScenarioInstance] = instance

	if len(step.PayloadOverrides) > 0 {
		ctx[generate.KeyPayloadOverrides] = step.PayloadOverrides
	}

	if step.EntityAlias != "" {
		ctx[generate.KeyEntityAlias] = step.EntityAlias
	}

	at := o.simTime.Add(randomDelay(o.rand, scenarioStepDelayMin, scenarioStepDelayMax))
	o.scheduler.Push(step.EventType, at, ctx)

	instance.CurrentStep++
}

// reapScenarios drops completed instances and tops the active set back up.
func (o *Orchestrator) reapScenarios() {
	kept := o.activeScenarios[:0]

	for _, instance := range o.activeScenarios {
		if !instance.Completed {
			kept = append(kept, instance)
		}
	}

	o.activeScenarios = kept

	o.initiateScenarios()
}
