package agent

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Supervisor runs a swarm of agents, isolating each agent's failures: a
// panic in one agent's decision cycle is recovered and logged so a
// misbehaving participant cannot halt the market.
type Supervisor struct {
	agents []Agent
}

// NewSupervisor creates a supervisor over the given agents.
func NewSupervisor(agents ...Agent) *Supervisor {
	return &Supervisor{agents: agents}
}

// Start launches all agents and blocks until the context is canceled and
// every agent has returned.
func (s *Supervisor) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, a := range s.agents {
		a := a
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Str("agent", a.Name()).
						Interface("panic", r).
						Msg("Agent terminated by panic; market continues")
				}
			}()
			a.Start(ctx)
		}()
	}
	wg.Wait()
}
