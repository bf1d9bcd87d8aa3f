// Command cascade runs a declarative pipeline fixture (a YAML document of
// add/remove operations plus a step chain) and prints the resulting
// materialized tree. It exists to give the engine an end-to-end,
// runnable surface, the way cmd/graft/main.go does for the parse/merge
// engine it wraps.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/voxelbrain/goptions"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/wayneeseguin/cascade/internal/config"
	"github.com/wayneeseguin/cascade/internal/utils/ansi"
	"github.com/wayneeseguin/cascade/log"
	"github.com/wayneeseguin/cascade/pkg/cascade"
	"github.com/wayneeseguin/cascade/pkg/cascade/canon"
)

// Version holds the current version of cascade.
var Version = "(development)"

var getopts = func(o interface{}) {
	if err := goptions.Parse(o); err != nil {
		goptions.PrintHelp()
		os.Exit(1)
	}
}

type mainOpts struct {
	BatchSize     int                `goptions:"--batch-size, description='Batch threshold before a flush (default from config)'"`
	FlushInterval time.Duration      `goptions:"--flush-interval, description='Idle-timer flush interval (default from config)'"`
	Output        string             `goptions:"--output, description='yaml or json'"`
	NoColor       bool               `goptions:"--no-color, description='Disable ansi coloring even on a terminal'"`
	Config        string             `goptions:"--config, description='Path to a cascade config YAML file'"`
	Help          bool               `goptions:"--help, -h"`
	Files         goptions.Remainder `goptions:"description='Pipeline fixture YAML files to run'"`
}

func main() {
	opts := mainOpts{Output: "", BatchSize: 0}
	getopts(&opts)

	if opts.Help || len(opts.Files) == 0 {
		goptions.PrintHelp()
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if opts.Config != "" {
		mgr := config.NewManager()
		if err := mgr.Load(opts.Config); err != nil {
			fmt.Fprintln(os.Stderr, ansi.Sprintf("@R{cascade: %s}", err))
			os.Exit(1)
		}
		cfg = mgr.Get()
	}

	shouldColor := isatty.IsTerminal(os.Stdout.Fd()) && !opts.NoColor && cfg.Engine.ColorOutput
	ansi.Color(shouldColor)

	if opts.BatchSize > 0 {
		cfg.Engine.BatchThreshold = opts.BatchSize
	}
	if opts.FlushInterval > 0 {
		cfg.Engine.FlushInterval = opts.FlushInterval
	}
	outputFormat := cfg.Engine.OutputFormat
	if opts.Output != "" {
		outputFormat = opts.Output
	}

	maxWorkers := cfg.Performance.Concurrency.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = len(opts.Files)
	}

	var g errgroup.Group
	g.SetLimit(maxWorkers)
	results := make([][]byte, len(opts.Files))
	for i, path := range opts.Files {
		i, path := i, path
		g.Go(func() error {
			out, err := runFixture(path, cfg, outputFormat)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, ansi.Sprintf("@R{cascade: %s}", err))
		os.Exit(1)
	}

	for _, out := range results {
		os.Stdout.Write(out)
	}
}

// fixture is the declarative shape a pipeline run is read from: a step
// chain (data-only steps; define_property/filter need Go compute
// functions and so are builder-only, not fixture-expressible) plus the
// ordered add/remove operations to replay against it.
type fixture struct {
	Steps      []fixtureStep      `yaml:"steps"`
	Operations []fixtureOperation `yaml:"operations"`
}

type fixtureStep struct {
	Type               string   `yaml:"type"`
	Scope              []string `yaml:"scope"`
	ChildScope         []string `yaml:"child_scope"`
	GroupingProps      []string `yaml:"grouping_props"`
	ArrayName          string   `yaml:"array_name"`
	ItemProperty       string   `yaml:"item_property"`
	ComparisonProperty string   `yaml:"comparison_property"`
	OutputProperty     string   `yaml:"output_property"`
}

type fixtureOperation struct {
	Op    string                 `yaml:"op"` // "add" or "remove"
	Key   string                 `yaml:"key"`
	Props map[string]interface{} `yaml:"props"`
}

func runFixture(path string, cfg *config.Config, outputFormat string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fx fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}

	input := cascade.NewInputStep()
	var current cascade.Source = input
	for _, s := range fx.Steps {
		current, err = applyFixtureStep(current, s)
		if err != nil {
			return nil, err
		}
	}

	p := cascade.NewPipeline(input, current, cfg.Engine.BatchThreshold, cfg.Engine.FlushInterval)
	defer p.Dispose()

	for _, op := range fx.Operations {
		log.DEBUG("cascade: replaying %s %s", op.Op, op.Key)
		switch op.Op {
		case "add":
			p.Add(cascade.Key(op.Key), cascade.Props(op.Props))
		case "remove":
			p.Remove(cascade.Key(op.Key), cascade.Props(op.Props))
		default:
			return nil, fmt.Errorf("unknown operation %q", op.Op)
		}
	}
	p.ForceFlush()

	return renderTree(p.Tree(), outputFormat)
}

func applyFixtureStep(upstream cascade.Source, s fixtureStep) (cascade.Source, error) {
	scope := cascade.SegPath(s.Scope)
	childScope := cascade.SegPath(s.ChildScope)

	switch s.Type {
	case "group_by":
		return cascade.NewGroupByStep(upstream, scope, s.GroupingProps, s.ArrayName, canon.Canonicalize), nil
	case "sum":
		return cascade.NewSumAggregateStep(upstream, childScope, s.ItemProperty, s.OutputProperty), nil
	case "count":
		return cascade.NewCountAggregateStep(upstream, childScope, s.OutputProperty), nil
	case "min":
		return cascade.NewMinAggregateStep(upstream, childScope, s.ItemProperty, s.OutputProperty), nil
	case "max":
		return cascade.NewMaxAggregateStep(upstream, childScope, s.ItemProperty, s.OutputProperty), nil
	case "average":
		return cascade.NewAverageAggregateStep(upstream, childScope, s.ItemProperty, s.OutputProperty), nil
	case "pick_min":
		return cascade.NewPickByMinStep(upstream, childScope, s.ComparisonProperty, s.OutputProperty), nil
	case "pick_max":
		return cascade.NewPickByMaxStep(upstream, childScope, s.ComparisonProperty, s.OutputProperty), nil
	case "drop_property":
		return cascade.NewDropPropertyStep(upstream, scope, s.OutputProperty), nil
	default:
		return nil, fmt.Errorf("unsupported fixture step type %q", s.Type)
	}
}

// rowsToDocs converts materialized Rows to their YAML/JSON rendering shape:
// each row's key alongside its flattened properties, with nested arrays
// recursively rendered the same way.
func rowsToDocs(rows []*cascade.Row) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		doc := map[string]interface{}{"key": string(r.Key)}
		for k, v := range r.Props {
			if nested, ok := v.([]*cascade.Row); ok {
				doc[k] = rowsToDocs(nested)
				continue
			}
			doc[k] = v
		}
		out = append(out, doc)
	}
	return out
}

func renderTree(rows []*cascade.Row, format string) ([]byte, error) {
	docs := rowsToDocs(rows)
	switch format {
	case "json":
		return json.MarshalIndent(docs, "", "  ")
	default:
		return yaml.Marshal(docs)
	}
}
