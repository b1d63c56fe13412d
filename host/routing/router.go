package routing

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/walletkit/pluginhost/domain/entities"
	"github.com/walletkit/pluginhost/domain/hosterrors"
)

// Router resolves a qualified domain method call to its target entities,
// per the two-phase process in C5: domain resolution against the method
// table, then entity selection by scope specificity.
type Router struct {
	registry *Registry

	mu      sync.RWMutex
	methods map[string]entities.DomainMethod // "domain.method" -> declared strategy
}

// NewRouter creates a Router backed by registry. The method table starts
// empty; callers register each domain method a loaded manifest declares via
// RegisterMethod before routing calls to it.
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry, methods: make(map[string]entities.DomainMethod)}
}

// RegisterMethod adds domain's method to the table the router consults for
// strategy (singleton/broadcast) and aggregation rule. Re-registering the
// same qualified name with an identical definition is a no-op; the caller
// is responsible for the uniqueness check across distinct manifests — the
// same method name is shared by construction when two plugins serve the
// same domain.
func (rt *Router) RegisterMethod(domain entities.Domain, m entities.DomainMethod) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.methods[qualify(domain, m.Name)] = m
}

func qualify(domain entities.Domain, method string) string {
	return string(domain) + "." + method
}

// resolved is one candidate entity with its best scope-match specificity.
type resolved struct {
	entityID entities.EntityId
	score    int
}

// Resolve implements the two-phase routing described in §4.5: the method
// name maps to a domain and strategy, then scope matching selects the
// target entity or entities.
func (rt *Router) Resolve(domain entities.Domain, method, scope string) ([]entities.EntityId, entities.MethodStrategy, error) {
	qualified := qualify(domain, method)

	rt.mu.RLock()
	dm, ok := rt.methods[qualified]
	rt.mu.RUnlock()
	if !ok {
		return nil, "", &hosterrors.MethodNotFoundError{Method: qualified}
	}

	candidates := rt.candidatesFor(domain, scope)
	if len(candidates) == 0 {
		return nil, "", &hosterrors.RoutingUnmatchedError{Method: qualified}
	}

	switch dm.Strategy {
	case entities.StrategyBroadcast:
		ids := make([]entities.EntityId, len(candidates))
		for i, c := range candidates {
			ids[i] = c.entityID
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return ids, dm.Strategy, nil

	case entities.StrategySingleton:
		top := topScored(candidates)
		if len(top) > 1 {
			return nil, "", &hosterrors.RoutingAmbiguousError{Method: qualified, Candidates: len(top)}
		}
		return []entities.EntityId{top[0].entityID}, dm.Strategy, nil

	default:
		return nil, "", &hosterrors.MethodNotFoundError{Method: qualified}
	}
}

// ResolveExplicit validates that entityID exists, implements domain, and
// returns it directly, bypassing scope matching. This is the "caller named
// an EntityId explicitly" branch of §4.5 entity selection.
func (rt *Router) ResolveExplicit(domain entities.Domain, entityID entities.EntityId) (entities.PluginId, error) {
	reg, ok := rt.registry.Get(entityID)
	if !ok || reg.Domain != domain {
		return "", &hosterrors.RoutingUnmatchedError{Method: string(domain) + ":" + string(entityID)}
	}
	return reg.PluginID, nil
}

func (rt *Router) candidatesFor(domain entities.Domain, scope string) []resolved {
	var out []resolved
	for _, reg := range rt.registry.InDomain(domain) {
		if score, matched := bestMatch(reg.ScopingRules, scope); matched {
			out = append(out, resolved{entityID: reg.EntityID, score: score})
		}
	}
	return out
}

// bestMatch reports whether scope satisfies any of rules, and if so the
// specificity score of the most specific rule that matched. An entity with
// no scoping rules is treated as global and matches every scope, at the
// lowest possible specificity.
func bestMatch(rules []string, scope string) (int, bool) {
	if len(rules) == 0 {
		return specificity(""), true
	}

	matched := false
	best := -1
	for _, rule := range rules {
		if !globMatches(rule, scope) {
			continue
		}
		matched = true
		if s := specificity(rule); s > best {
			best = s
		}
	}
	return best, matched
}

func globMatches(rule, scope string) bool {
	if rule == "" || rule == "**" {
		return true
	}
	if scope == "" {
		return false
	}
	ok, err := doublestar.Match(rule, scope)
	return err == nil && ok
}

// specificity scores a scope rule so that the most fully-qualified pattern
// (no wildcard segments) outranks a chain-wildcarded pattern, which in turn
// outranks the global "" / "**" rule. Fewer wildcard characters and a
// longer literal pattern both increase specificity.
func specificity(rule string) int {
	if rule == "" || rule == "**" {
		return math.MinInt
	}
	wildcards := strings.Count(rule, "*") + strings.Count(rule, "?")
	return len(rule) - wildcards*1000
}

func topScored(candidates []resolved) []resolved {
	best := candidates[0].score
	for _, c := range candidates[1:] {
		if c.score > best {
			best = c.score
		}
	}
	var out []resolved
	for _, c := range candidates {
		if c.score == best {
			out = append(out, c)
		}
	}
	return out
}
