// Package flagx reads the bootstrap flags (config file, env file) before the
// main flag set is parsed, and separates flags from tutorctl commands.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the subset of args made of allowed flags and their
// values. Both "-c conf.json" and "--config=conf.json" forms are kept.
// The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--flag=value" or "-f=value"
		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		// "-f value"; the value is taken only if it does not look like a flag
		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// Positional returns args from the first token that is not a flag or a flag
// value. Every flag is assumed to take a value, either as "-f=v" or as the
// following token.
func Positional(args []string) []string {
	for i := 0; i < len(args); i++ {
		if !strings.HasPrefix(args[i], "-") {
			return args[i:]
		}
		if !strings.Contains(args[i], "=") {
			i++
		}
	}
	return nil
}

// stringFlag parses a single string flag that may be spelled with any of
// names. The last occurrence wins. Unrelated arguments are ignored.
func stringFlag(args []string, usage string, names ...string) string {
	var value string

	allowed := make([]string, 0, len(names))
	fs := flag.NewFlagSet("bootstrap", flag.ContinueOnError)
	fs.SetOutput(discard{})
	for _, n := range names {
		allowed = append(allowed, "-"+n)
		fs.StringVar(&value, n, "", usage)
	}
	_ = fs.Parse(FilterArgs(args, allowed))

	return value
}

// JsonConfigFlags returns the path given by -c or -config, or "".
func JsonConfigFlags() string {
	return stringFlag(os.Args[1:], "Path to config file", "config", "c")
}

// EnvFileFlag returns the path given by -env, or "".
func EnvFileFlag() string {
	return stringFlag(os.Args[1:], "Path to .env file", "env")
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
