package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/jonwraymond/abicache/cache"
	"github.com/jonwraymond/abicache/chain"
)

// nodeFlags are the chain node flags shared by the client commands.
type nodeFlags struct {
	url     string
	apiKey  string
	timeout time.Duration
	retries int
	noColor bool
}

func (n *nodeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&n.url, "url", os.Getenv("ABICACHE_CHAIN_URL"), "chain API base `url`")
	fs.StringVar(&n.apiKey, "api-key", "", "API key sent in "+chain.DefaultAPIKeyHeader)
	fs.DurationVar(&n.timeout, "timeout", 10*time.Second, "overall timeout")
	fs.IntVar(&n.retries, "retries", 2, "retries per request")
	fs.BoolVar(&n.noColor, "no-color", false, "disable colored output")
}

// cache returns a SchemaCache in front of the configured node.
func (n *nodeFlags) cache() (*cache.SchemaCache, error) {
	if n.url == "" {
		return nil, fmt.Errorf("%w: -url is required", errUsage)
	}
	opts := []chain.Option{
		chain.WithRetry(n.retries, 200*time.Millisecond, 2*time.Second),
		chain.WithUserAgent(chain.DefaultUserAgent + "/" + version),
	}
	if n.apiKey != "" {
		opts = append(opts, chain.WithAPIKey(chain.DefaultAPIKeyHeader, n.apiKey))
	}
	client, err := chain.NewClient(n.url, opts...)
	if err != nil {
		return nil, err
	}
	return cache.New(client), nil
}

// setColor turns colored output on only when w is a terminal and neither
// -no-color nor NO_COLOR asks otherwise.
func (n *nodeFlags) setColor(w io.Writer) {
	color.NoColor = !useColor(w, n.noColor)
}

func useColor(w io.Writer, disabled bool) bool {
	if disabled || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
