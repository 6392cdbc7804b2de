package Chatbot

import (
	"sort"
	"strings"
)

// Registry holds the assistants by name.
type Registry struct {
	bots map[string]*Bot
}

func NewRegistry(queries QuerySource) *Registry {
	r := &Registry{bots: make(map[string]*Bot)}
	for _, b := range []*Bot{NewCentralMonitorBot(), NewQueryBot(queries), NewTaskBot()} {
		r.bots[b.Name()] = b
	}
	return r
}

func (r *Registry) Get(name string) (Responder, bool) {
	b, ok := r.bots[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return b, true
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.bots))
	for n := range r.bots {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Install adds static rules to their bots. A rule without a bot goes to
// every bot. Returns the number of rules installed.
func (r *Registry) Install(rules []StaticRule) int {
	n := 0
	for _, sr := range rules {
		for name, b := range r.bots {
			if sr.Bot == "" || strings.EqualFold(sr.Bot, name) {
				b.AddRules(sr.Rule())
				n++
			}
		}
	}
	return n
}
