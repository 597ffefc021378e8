package correlate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/evidence-toolkit/core/pkg/oracle"
	"github.com/evidence-toolkit/core/pkg/schema"
	"github.com/evidence-toolkit/core/pkg/store"
)

// commonFirstNames is the closed set the merge policy treats as requiring a
// unique identifier before merging on first-name agreement alone.
var commonFirstNames = map[string]bool{
	"john": true, "james": true, "robert": true, "michael": true, "david": true,
	"mary": true, "jennifer": true, "linda": true, "patricia": true, "susan": true,
	"paul": true, "smith": true, "jones": true,
}

// resolveEntities runs the opt-in AI entity-resolution pass: pairs of
// canonicalized entities sharing an indicator are submitted to
// oracle.ResolveEntityPair, accepted merges are unioned, and every accepted
// merge is recorded as a "correlate" custody entry naming both variants.
func resolveEntities(ctx context.Context, oc oracle.Client, st *store.Store, caseID string, hashes []string, entities []*schema.Entity) ([]*schema.Entity, error) {
	uf := newUnionFind(len(entities))
	rejected := make(map[[2]int]bool)

	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			if uf.find(i) == uf.find(j) {
				continue
			}
			if normalize(entities[i].CanonicalName) == normalize(entities[j].CanonicalName) {
				continue
			}
			if rejected[[2]int{i, j}] {
				continue
			}
			if !shareIndicator(entities[i], entities[j]) {
				continue
			}
			decision, _, err := oc.ResolveEntityPair(ctx, oracle.EntityPairRequest{
				VariantA:  entities[i].CanonicalName,
				VariantB:  entities[j].CanonicalName,
				ContextsA: occurrenceContexts(entities[i]),
				ContextsB: occurrenceContexts(entities[j]),
			})
			if err != nil {
				return nil, fmt.Errorf("correlate: resolve_entity_pair(%q, %q): %w", entities[i].CanonicalName, entities[j].CanonicalName, err)
			}
			if !acceptMerge(entities[i].CanonicalName, entities[j].CanonicalName, decision) {
				rejected[[2]int{i, j}] = true
				continue
			}
			uf.union(i, j)
			if st != nil {
				note := fmt.Sprintf("merged entity variants %q and %q: %s", entities[i].CanonicalName, entities[j].CanonicalName, decision.Reasoning)
				recordMergeCustody(st, caseID, hashes, note)
			}
		}
	}

	groups := make(map[int][]*schema.Entity)
	for i, e := range entities {
		root := uf.find(i)
		groups[root] = append(groups[root], e)
	}

	merged := make([]*schema.Entity, 0, len(groups))
	for _, members := range groups {
		merged = append(merged, mergeGroup(members))
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].CanonicalName < merged[j].CanonicalName })
	return merged, nil
}

// acceptMerge applies the merge policy thresholds.
func acceptMerge(nameA, nameB string, d *schema.EntityMatchDecision) bool {
	if d == nil || !d.IsSameEntity {
		return false
	}
	for _, signal := range d.ConflictingSignals {
		if strings.Contains(strings.ToLower(signal), "surname") {
			return false
		}
	}
	if isCommonFirstNameOnly(nameA) || isCommonFirstNameOnly(nameB) {
		return d.Confidence >= 0.90 && hasUniqueIdentifier(d.SupportingSignals)
	}
	return d.Confidence >= 0.85
}

func isCommonFirstNameOnly(name string) bool {
	fields := strings.Fields(strings.ToLower(name))
	return len(fields) == 1 && commonFirstNames[fields[0]]
}

func hasUniqueIdentifier(signals []string) bool {
	for _, s := range signals {
		low := strings.ToLower(s)
		if strings.Contains(low, "email") || strings.Contains(low, "phone") || strings.Contains(low, "@") {
			return true
		}
	}
	return false
}

// shareIndicator reports whether two entities share a merge-eligible
// indicator: matching email domain, overlapping context tokens (standing
// in for "same organization"), or name-prefix/initial agreement.
func shareIndicator(a, b *schema.Entity) bool {
	if domain(a) != "" && domain(a) == domain(b) {
		return true
	}
	if sharesToken(contextTokens(a), contextTokens(b)) {
		return true
	}
	return namePrefixAgrees(a.CanonicalName, b.CanonicalName)
}

func domain(e *schema.Entity) string {
	for _, o := range e.Occurrences {
		if i := strings.Index(o.VariantName, "@"); i >= 0 {
			return strings.ToLower(o.VariantName[i+1:])
		}
	}
	return ""
}

func contextTokens(e *schema.Entity) map[string]bool {
	out := make(map[string]bool)
	for _, o := range e.Occurrences {
		for _, w := range strings.Fields(strings.ToLower(o.Context)) {
			out[w] = true
		}
	}
	return out
}

func sharesToken(a, b map[string]bool) bool {
	for w := range a {
		if len(w) > 3 && b[w] {
			return true
		}
	}
	return false
}

func namePrefixAgrees(a, b string) bool {
	fa, fb := strings.Fields(strings.ToLower(a)), strings.Fields(strings.ToLower(b))
	if len(fa) == 0 || len(fb) == 0 {
		return false
	}
	return fa[0] == fb[0] || (len(fa[0]) == 1 && strings.HasPrefix(fb[0], fa[0])) || (len(fb[0]) == 1 && strings.HasPrefix(fa[0], fb[0]))
}

func occurrenceContexts(e *schema.Entity) []string {
	out := make([]string, 0, len(e.Occurrences))
	for _, o := range e.Occurrences {
		out = append(out, o.Context)
	}
	return out
}

// mergeGroup combines members into one Entity, the canonical display name
// being the variant with the highest aggregate occurrence count, ties
// broken lexicographically.
func mergeGroup(members []*schema.Entity) *schema.Entity {
	if len(members) == 1 {
		return members[0]
	}
	best := members[0]
	for _, m := range members[1:] {
		if len(m.Occurrences) > len(best.Occurrences) ||
			(len(m.Occurrences) == len(best.Occurrences) && m.CanonicalName < best.CanonicalName) {
			best = m
		}
	}
	out := &schema.Entity{CanonicalName: best.CanonicalName, Type: best.Type}
	for _, m := range members {
		out.Occurrences = append(out.Occurrences, m.Occurrences...)
	}
	return out
}

func recordMergeCustody(st *store.Store, caseID string, hashes []string, note string) {
	entry := schema.ChainOfCustodyEntry{
		Timestamp:        time.Now().UTC(),
		Actor:            "correlator",
		Action:           schema.CustodyCorrelate,
		Note:             fmt.Sprintf("case %s: %s", caseID, note),
		EvidenceAffected: hashes,
	}
	for _, h := range hashes {
		_ = st.AppendCustody(h, entry)
	}
}

// unionFind is a disjoint-set structure over entity indices, giving the
// entity merge an idempotent grouping independent of pair visit order.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(i, j int) {
	ri, rj := u.find(i), u.find(j)
	if ri != rj {
		u.parent[ri] = rj
	}
}
