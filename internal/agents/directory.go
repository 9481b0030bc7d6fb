package agents

// Directory is an in-memory Provider used by the simulation host and tests.
type Directory struct {
	agents map[AgentID]*Agent
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{agents: make(map[AgentID]*Agent)}
}

// Put registers or replaces an agent record.
func (d *Directory) Put(a *Agent) {
	d.agents[a.ID] = a
}

// Agent implements Provider.
func (d *Directory) Agent(id AgentID) (*Agent, bool) {
	a, ok := d.agents[id]
	return a, ok
}

// All returns every registered agent. Order is unspecified.
func (d *Directory) All() []*Agent {
	out := make([]*Agent, 0, len(d.agents))
	for _, a := range d.agents {
		out = append(out, a)
	}
	return out
}
