package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/mcmcgo/internal/config"
	"github.com/vk/mcmcgo/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL model loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file reachable from the given paths and merges the
// declared blocks into one model, in file then source order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl model files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, s := range root.Stochastics {
			block, err := l.translateStochastic(s)
			if err != nil {
				return nil, fmt.Errorf("in file %s: %w", file, err)
			}
			model.Stochastics = append(model.Stochastics, block)
		}
		for _, d := range root.Deterministics {
			model.Deterministics = append(model.Deterministics, l.translateDeterministic(d))
		}
		for _, p := range root.Potentials {
			model.Potentials = append(model.Potentials, &config.Potential{
				Name: p.Name,
				Expr: p.Expr,
			})
		}
	}

	logger.Debug("HCL loading complete.",
		"stochastics", len(model.Stochastics),
		"deterministics", len(model.Deterministics),
		"potentials", len(model.Potentials))
	return model, nil
}

// translateStochastic converts the HCL-specific stochastic schema into the
// agnostic model, lifting the remaining body attributes into the parameter
// expression map.
func (l *Loader) translateStochastic(s *stochasticBlock) (*config.Stochastic, error) {
	params, err := bodyAttributes(s.Params)
	if err != nil {
		return nil, fmt.Errorf("in stochastic %q: %w", s.Name, err)
	}
	return &config.Stochastic{
		Name:     s.Name,
		Dist:     s.Dist,
		Params:   params,
		Value:    s.Value,
		Observed: s.Observed,
		NoTrace:  s.Trace != nil && !*s.Trace,
	}, nil
}

// translateDeterministic converts the HCL-specific deterministic schema into
// the agnostic model.
func (l *Loader) translateDeterministic(d *deterministicBlock) *config.Deterministic {
	return &config.Deterministic{
		Name:    d.Name,
		Expr:    d.Expr,
		NoTrace: d.Trace != nil && !*d.Trace,
	}
}

// bodyAttributes converts a block body into a map of unevaluated
// expressions.
func bodyAttributes(body hcl.Body) (map[string]hcl.Expression, error) {
	if body == nil {
		return nil, nil
	}
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid parameters: %w", diags)
	}
	exprMap := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		exprMap[name] = attr.Expr
	}
	return exprMap, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of the .hcl
// files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, wasSeen := seen[p]; !wasSeen {
						allFiles = append(allFiles, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) == ".hcl" {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
