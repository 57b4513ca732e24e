package main

import (
	"flag"
	"io"
	"strings"

	"github.com/Laisky/errors/v2"

	"github.com/songquanpeng/contract-tester/common"
	cfg "github.com/songquanpeng/contract-tester/common/config"
	"github.com/songquanpeng/contract-tester/probe/plan"
)

// config captures the run configuration derived from flags and environment variables.
type config struct {
	Endpoint string
	Fields   []string
	PlanPath string
	OutDir   string
	NoOracle bool
	Seed     uint64
}

// loadConfig parses args. Flags left unset fall back to the plan file, then to the environment.
func loadConfig(args []string, stderr io.Writer) (config, *plan.Plan, error) {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		c      config
		fields string
	)
	fs.StringVar(&c.Endpoint, "endpoint", "", "full URL of the endpoint under test, e.g. https://api.example.com/api/signup")
	fs.StringVar(&fields, "fields", "", `fields to vary: names or 1-based indices separated by commas, or "all"`)
	fs.StringVar(&c.PlanPath, "plan", "", "YAML test plan file")
	fs.StringVar(&c.OutDir, "out", cfg.ResultsDir, "directory the result document is written to")
	fs.BoolVar(&c.NoOracle, "no-oracle", !cfg.OracleEnabled, "skip oracle rules and scenarios")
	fs.Uint64Var(&c.Seed, "seed", 0, "seed for reproducible variations, 0 draws fresh randomness")
	if err := fs.Parse(args); err != nil {
		return config{}, nil, errors.Wrap(err, "parse flags")
	}
	if fs.NArg() > 0 && c.Endpoint == "" {
		c.Endpoint = fs.Arg(0)
	}
	c.Fields = plan.ParseSelection(fields)
	c.OutDir = common.ExpandPath(c.OutDir)

	var p *plan.Plan
	if c.PlanPath != "" {
		var err error
		if p, err = plan.Load(c.PlanPath); err != nil {
			return config{}, nil, errors.Wrap(err, "load plan")
		}
		if c.Endpoint == "" {
			c.Endpoint = p.Endpoint
		}
	}

	c.Endpoint = strings.TrimSpace(c.Endpoint)
	if c.Endpoint == "" {
		return config{}, nil, errors.New("an endpoint is required: pass -endpoint or set it in the plan")
	}
	return c, p, nil
}
