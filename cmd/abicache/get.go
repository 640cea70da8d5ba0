package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/samber/lo"

	"github.com/jonwraymond/abicache/cache"
)

var (
	okFprintf   = color.New(color.FgGreen).FprintfFunc()
	missFprintf = color.New(color.FgYellow).FprintfFunc()
	failFprintf = color.New(color.FgRed).FprintfFunc()
)

func runGet(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var node nodeFlags
	node.register(fs)
	asJSON := fs.Bool("json", false, "print the ABIs as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	accounts := fs.Args()
	sc, err := node.cache()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return fmt.Errorf("%w: get needs at least one account", errUsage)
	}
	node.setColor(stdout)

	ctx, cancel := context.WithTimeout(ctx, node.timeout)
	defer cancel()

	_ = sc.Prefetch(ctx, lo.ToAnySlice(accounts)...)

	var failed int
	results := make(map[string]any, len(accounts))
	for _, account := range accounts {
		a, err := sc.GetABI(ctx, account)
		switch {
		case err == nil:
			results[account] = a
			if !*asJSON {
				okFprintf(stdout, "%-13s %s structs=%d actions=%d tables=%d\n",
					account, a.Version, len(a.Structs), len(a.Actions), len(a.Tables))
			}
		case errors.Is(err, cache.ErrNotFound):
			results[account] = nil
			if !*asJSON {
				missFprintf(stdout, "%-13s no abi\n", account)
			}
		default:
			failed++
			failFprintf(stderr, "%-13s %v\n", account, err)
		}
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d accounts failed", failed, len(accounts))
	}
	return nil
}
