package step

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/vk/mcmcgo/internal/model"
	"golang.org/x/exp/rand"
)

// DrawFromPrior jointly updates a block of dataless variables by drawing each
// directly from its prior, ancestors first. Variables with no observed
// descendants have no likelihood to weigh a proposal against, so the draw is
// always accepted and no Metropolis machinery is needed.
type DrawFromPrior struct {
	name string
	g    *model.Graph
	rng  *rand.Rand
	// generations holds the covered variables ancestors-first, so each draw
	// sees freshly drawn parent values.
	generations [][]*model.Stochastic
	vars        []*model.Stochastic
}

// NewDrawFromPrior builds the block method from the generations returned by
// CrawlDataless (leaves first); they are stepped in reverse.
func NewDrawFromPrior(g *model.Graph, generations [][]*model.Stochastic, rng *rand.Rand) *DrawFromPrior {
	reversed := make([][]*model.Stochastic, len(generations))
	var vars []*model.Stochastic
	var names []string
	for i, gen := range generations {
		reversed[len(generations)-1-i] = gen
	}
	for _, gen := range reversed {
		for _, s := range gen {
			vars = append(vars, s)
			names = append(names, s.Name())
		}
	}
	return &DrawFromPrior{
		name:        "draw_from_prior:" + strings.Join(names, ","),
		g:           g,
		rng:         rng,
		generations: reversed,
		vars:        vars,
	}
}

func (d *DrawFromPrior) Name() string { return d.name }

func (d *DrawFromPrior) Variables() []*model.Stochastic { return d.vars }

func (d *DrawFromPrior) Step() error {
	for _, gen := range d.generations {
		for _, s := range gen {
			if _, err := s.Draw(d.rng); err != nil {
				return fmt.Errorf("%s: %w", d.name, err)
			}
		}
	}
	return nil
}

// Tune is a no-op: prior draws have no tunable parameters.
func (d *DrawFromPrior) Tune(logger *slog.Logger) (bool, error) { return false, nil }

func (d *DrawFromPrior) CurrentState() map[string]float64 { return map[string]float64{} }

func (d *DrawFromPrior) RestoreState(state map[string]float64) {}

// CrawlDataless discovers the dataless region of the graph: variables with no
// observed descendants at all, reachable by crawling upward from leaves with
// no extended children. Returned generations are leaves-first; each
// generation's members have all their extended children inside the crawled
// set, can draw from their prior, and are not observed.
func CrawlDataless(g *model.Graph) [][]*model.Stochastic {
	var lastGen []*model.Stochastic
	for _, s := range g.Stochastics() {
		if s.Observed() || !s.HasRand() {
			continue
		}
		if len(g.ExtendedChildren(s.ID())) == 0 {
			lastGen = append(lastGen, s)
		}
	}
	if len(lastGen) == 0 {
		return nil
	}

	dataless := make(model.NodeSet)
	for _, s := range lastGen {
		dataless.Add(s.ID())
	}
	generations := [][]*model.Stochastic{lastGen}

	for {
		candidates := make(model.NodeSet)
		for _, s := range generations[len(generations)-1] {
			candidates.AddAll(g.ExtendedParents(s.ID()))
		}

		var next []*model.Stochastic
		for _, id := range candidates.Sorted() {
			if dataless.Has(id) {
				continue
			}
			p, ok := g.Node(id).(*model.Stochastic)
			if !ok || p.Observed() || !p.HasRand() {
				continue
			}
			allDataless := true
			for child := range g.ExtendedChildren(id) {
				if !dataless.Has(child) {
					allDataless = false
					break
				}
			}
			if allDataless {
				next = append(next, p)
			}
		}
		if len(next) == 0 {
			return generations
		}
		for _, s := range next {
			dataless.Add(s.ID())
		}
		generations = append(generations, next)
	}
}
