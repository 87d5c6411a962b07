// Package build translates a format-agnostic config model into a live
// variable graph. Blocks may reference each other in any declaration order;
// the builder resolves references over multiple passes and rejects unknown
// names and reference cycles before any sampling state exists.
package build

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/mcmcgo/internal/config"
	"github.com/vk/mcmcgo/internal/ctxlog"
	"github.com/vk/mcmcgo/internal/dist"
	"github.com/vk/mcmcgo/internal/model"
)

// Build constructs the variable graph described by cfg. Graph options are
// passed through to model.New, so the caller controls the random source
// used for initial value draws.
func Build(ctx context.Context, cfg *config.Model, opts ...model.Option) (*model.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	declared := make(map[string]bool)
	for _, s := range cfg.Stochastics {
		declared[s.Name] = true
	}
	for _, d := range cfg.Deterministics {
		declared[d.Name] = true
	}
	for _, p := range cfg.Potentials {
		declared[p.Name] = true
	}

	g := model.New(opts...)
	b := &builder{g: g, declared: declared}

	// Blocks may reference variables declared later, so construction runs
	// in passes: each pass adds every block whose references already exist.
	// No progress with blocks remaining means a reference cycle.
	pendingS := cfg.Stochastics
	pendingD := cfg.Deterministics
	pendingP := cfg.Potentials

	for len(pendingS)+len(pendingD)+len(pendingP) > 0 {
		progress := false

		var nextS []*config.Stochastic
		for _, s := range pendingS {
			ready, err := b.refsResolved(stochasticRefs(s), s.Name)
			if err != nil {
				return nil, err
			}
			if !ready {
				nextS = append(nextS, s)
				continue
			}
			if err := b.addStochastic(s); err != nil {
				return nil, err
			}
			progress = true
		}

		var nextD []*config.Deterministic
		for _, d := range pendingD {
			ready, err := b.refsResolved(exprRefs(d.Expr), d.Name)
			if err != nil {
				return nil, err
			}
			if !ready {
				nextD = append(nextD, d)
				continue
			}
			if err := b.addDeterministic(d); err != nil {
				return nil, err
			}
			progress = true
		}

		var nextP []*config.Potential
		for _, p := range pendingP {
			ready, err := b.refsResolved(exprRefs(p.Expr), p.Name)
			if err != nil {
				return nil, err
			}
			if !ready {
				nextP = append(nextP, p)
				continue
			}
			if err := b.addPotential(p); err != nil {
				return nil, err
			}
			progress = true
		}

		if !progress {
			var stuck []string
			for _, s := range nextS {
				stuck = append(stuck, s.Name)
			}
			for _, d := range nextD {
				stuck = append(stuck, d.Name)
			}
			for _, p := range nextP {
				stuck = append(stuck, p.Name)
			}
			sort.Strings(stuck)
			return nil, fmt.Errorf("reference cycle involving: %s", strings.Join(stuck, ", "))
		}
		pendingS, pendingD, pendingP = nextS, nextD, nextP
	}

	logger.Debug("Variable graph built.",
		"stochastics", len(g.Stochastics()),
		"deterministics", len(g.Deterministics()),
		"potentials", len(g.Potentials()))
	return g, nil
}

type builder struct {
	g        *model.Graph
	declared map[string]bool
}

// refsResolved reports whether every referenced name already has a node.
// References to names no block declares fail immediately.
func (b *builder) refsResolved(refs []string, owner string) (bool, error) {
	for _, ref := range refs {
		if !b.declared[ref] {
			return false, fmt.Errorf("%s references unknown variable %q", owner, ref)
		}
		if _, ok := b.g.ByName(ref); !ok {
			return false, nil
		}
	}
	return true, nil
}

func (b *builder) addStochastic(s *config.Stochastic) error {
	d, ok := dist.Lookup(s.Dist)
	if !ok {
		return fmt.Errorf("stochastic %q: unknown distribution %q (available: %s)",
			s.Name, s.Dist, strings.Join(dist.Names(), ", "))
	}

	required := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		required[p] = true
	}
	for name := range s.Params {
		if !required[name] {
			return fmt.Errorf("stochastic %q: distribution %q has no parameter %q",
				s.Name, s.Dist, name)
		}
	}

	parents := make(map[string]model.ParentRef, len(d.Params))
	for _, param := range d.Params {
		expr, ok := s.Params[param]
		if !ok {
			return fmt.Errorf("stochastic %q: distribution %q requires parameter %q",
				s.Name, s.Dist, param)
		}
		ref, err := b.bindParam(s.Name, param, expr)
		if err != nil {
			return err
		}
		parents[param] = ref
	}

	_, err := b.g.AddStochastic(s.Name, model.StochasticDef{
		Logp:     d.Logp,
		Rand:     d.Rand,
		Parents:  parents,
		Value:    s.Value,
		Observed: s.Observed,
		Discrete: d.Discrete,
		NoTrace:  s.NoTrace,
	})
	return err
}

// bindParam turns one parameter expression into a parent reference. A
// constant expression is evaluated once; a bare variable reference binds the
// node directly; anything else becomes an untraced deterministic node so the
// distribution still sees a single scalar parent.
func (b *builder) bindParam(owner, param string, expr hcl.Expression) (model.ParentRef, error) {
	refs := exprRefs(expr)
	if len(refs) == 0 {
		v, err := evalConstant(expr)
		if err != nil {
			return model.ParentRef{}, fmt.Errorf("stochastic %q, parameter %q: %w", owner, param, err)
		}
		return model.ConstParent(v), nil
	}

	if traversal, diags := hcl.AbsTraversalForExpr(expr); !diags.HasErrors() && len(traversal) == 1 {
		node, _ := b.g.ByName(traversal.RootName())
		return model.NodeParent(node.ID()), nil
	}

	parents := make(map[string]model.ParentRef, len(refs))
	for _, ref := range refs {
		node, _ := b.g.ByName(ref)
		parents[ref] = model.NodeParent(node.ID())
	}
	d, err := b.g.AddDeterministic(owner+"."+param, model.DeterministicDef{
		Eval:    exprEval(expr),
		Parents: parents,
		NoTrace: true,
	})
	if err != nil {
		return model.ParentRef{}, err
	}
	return model.NodeParent(d.ID()), nil
}

func (b *builder) addDeterministic(d *config.Deterministic) error {
	_, err := b.g.AddDeterministic(d.Name, model.DeterministicDef{
		Eval:    exprEval(d.Expr),
		Parents: b.nodeParents(exprRefs(d.Expr)),
		NoTrace: d.NoTrace,
	})
	return err
}

func (b *builder) addPotential(p *config.Potential) error {
	_, err := b.g.AddPotential(p.Name, model.PotentialDef{
		Logp:    exprEval(p.Expr),
		Parents: b.nodeParents(exprRefs(p.Expr)),
	})
	return err
}

func (b *builder) nodeParents(refs []string) map[string]model.ParentRef {
	parents := make(map[string]model.ParentRef, len(refs))
	for _, ref := range refs {
		node, _ := b.g.ByName(ref)
		parents[ref] = model.NodeParent(node.ID())
	}
	return parents
}

// stochasticRefs collects every variable referenced by any parameter of a
// stochastic block.
func stochasticRefs(s *config.Stochastic) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, expr := range s.Params {
		for _, ref := range exprRefs(expr) {
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
	}
	sort.Strings(refs)
	return refs
}
