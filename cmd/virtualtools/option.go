package main

import "time"

// Options is the root command. The struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	Config  string        `short:"f" long:"config" description:"config YAML path or URL"`
	Cache   string        `long:"cache" description:"plan cache location, overrides cache_path"`
	Timeout time.Duration `long:"timeout" default:"2m" description:"deadline for a single command"`
	Faults  bool          `long:"faults" description:"enable fault injection for UNRELIABLE_* tools"`
	Verbose bool          `short:"v" long:"verbose" description:"log every runtime event"`

	Solve *SolveCmd `command:"solve" description:"Answer a question and validate it against an expected value"`
	Seed  *SeedCmd  `command:"seed"  description:"Insert plans from YAML/JSON plan files into the cache"`
	List  *ListCmd  `command:"list"  description:"List cached questions and their plans"`
	Tools *ToolsCmd `command:"tools" description:"List the available tools"`
}

// Init instantiates the sub-command referenced by the first argument so that
// flags.Parse can populate its fields.
func (o *Options) Init(firstArg string) {
	switch firstArg {
	case "solve":
		o.Solve = &SolveCmd{}
	case "seed":
		o.Seed = &SeedCmd{}
	case "list":
		o.List = &ListCmd{}
	case "tools":
		o.Tools = &ToolsCmd{}
	}
}
