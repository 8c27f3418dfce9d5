// Package llmtest provides scripted completion gateways for tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Rule answers a call whose system or user text contains Match.
type Rule struct {
	Match string
	Reply string
	Err   error
}

// Router is a Completer that answers from the first matching rule and
// records every call. It is safe for concurrent use.
type Router struct {
	Rules []Rule

	mu    sync.Mutex
	calls []Call
}

type Call struct {
	System string
	User   string
}

func (r *Router) Complete(ctx context.Context, system, user string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{System: system, User: user})
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, rule := range r.Rules {
		if strings.Contains(system, rule.Match) || strings.Contains(user, rule.Match) {
			if rule.Err != nil {
				return "", rule.Err
			}
			return rule.Reply, nil
		}
	}
	return "", fmt.Errorf("llmtest: no rule matches call")
}

// Calls returns a copy of the recorded calls.
func (r *Router) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsMatching counts recorded calls whose system or user text contains s.
func (r *Router) CallsMatching(s string) int {
	n := 0
	for _, c := range r.Calls() {
		if strings.Contains(c.System, s) || strings.Contains(c.User, s) {
			n++
		}
	}
	return n
}
