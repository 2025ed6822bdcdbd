package main

import (
	"log"
	"strings"

	"github.com/jessevdk/go-flags"
)

// options holds the parsed global flags for the running sub-command.
var options = &Options{}

// Run parses flags and executes the selected command.
func Run(args []string) {
	options = &Options{}
	options.Init(firstCommand(args))

	parser := flags.NewParser(options, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		log.Fatalf("%v", err)
	}
}

// firstCommand returns the first argument that is not a global flag or its value.
func firstCommand(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-f" || a == "--config" || a == "--cache" || a == "--timeout":
			i++
		case strings.HasPrefix(a, "-"):
		default:
			return a
		}
	}
	return ""
}
