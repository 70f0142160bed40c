// Package registry holds the agent factories and the typed service
// capability map workflow steps dispatch through.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/arbiterhq/arbiter/pkg/protocol"
)

type Registry struct {
	logger         *slog.Logger
	agentFactories map[string]protocol.AgentFactory
	services       map[string]map[string]protocol.ServiceAction
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:         log,
		agentFactories: make(map[string]protocol.AgentFactory),
		services:       make(map[string]map[string]protocol.ServiceAction),
	}
}

func (r *Registry) RegisterAgent(factory protocol.AgentFactory) {
	r.agentFactories[factory.ID()] = factory
}

func (r *Registry) CreateAgent(agentID string, config map[string]any) (protocol.Agent, error) {
	factory, ok := r.agentFactories[agentID]
	if !ok {
		return nil, fmt.Errorf("agent '%s' not registered", agentID)
	}

	return factory.Create(config)
}

// AgentIDs returns the ids of every registered agent, sorted so "all
// enabled agents" batches are deterministic.
func (r *Registry) AgentIDs() []string {
	ids := make([]string, 0, len(r.agentFactories))
	for id := range r.agentFactories {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func (r *Registry) IsAgentRegistered(agentID string) bool {
	_, exists := r.agentFactories[agentID]

	return exists
}

// RegisterService binds (service, action) to a typed function. Bindings are
// resolved when a workflow definition is loaded, not when a step runs.
func (r *Registry) RegisterService(service, action string, fn protocol.ServiceAction) {
	actions, ok := r.services[service]
	if !ok {
		actions = make(map[string]protocol.ServiceAction)
		r.services[service] = actions
	}

	actions[action] = fn
}

func (r *Registry) ResolveService(service, action string) (protocol.ServiceAction, error) {
	actions, ok := r.services[service]
	if !ok {
		return nil, fmt.Errorf("service '%s' not registered", service)
	}

	fn, ok := actions[action]
	if !ok {
		return nil, fmt.Errorf("action '%s' not registered for service '%s'", action, service)
	}

	return fn, nil
}
