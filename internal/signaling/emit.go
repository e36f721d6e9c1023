package signaling

// Target selects the recipients of an emission: the listed connections plus
// the members of Channel, minus Except. Every recipient gets one copy.
type Target struct {
	Conns   []string
	Channel string
	Except  []string
}

// Emission is one outbound event produced by a handler.
type Emission struct {
	Target  Target
	Event   string
	Payload any
}

func toConn(id, event string, payload any) Emission {
	return Emission{Target: Target{Conns: []string{id}}, Event: event, Payload: payload}
}

func toChannel(channel, event string, payload any, except ...string) Emission {
	return Emission{Target: Target{Channel: channel, Except: except}, Event: event, Payload: payload}
}

// recipients resolves a target against the registry.
func (r *Registry) recipients(t Target) []string {
	skip := make(set, len(t.Except))
	for _, id := range t.Except {
		skip[id] = struct{}{}
	}

	var out []string
	add := func(id string) {
		if _, seen := skip[id]; seen {
			return
		}
		skip[id] = struct{}{}
		out = append(out, id)
	}

	for _, id := range t.Conns {
		add(id)
	}
	if t.Channel != "" {
		for _, id := range r.Members(t.Channel) {
			add(id)
		}
	}
	return out
}

// Deliver sends each emission to its recipients and returns how many sends
// were accepted by a transport.
func (r *Registry) Deliver(emissions []Emission) int {
	sent := 0
	for _, e := range emissions {
		for _, id := range r.recipients(e.Target) {
			if r.SendTo(id, e.Event, e.Payload) {
				sent++
			}
		}
	}
	return sent
}
