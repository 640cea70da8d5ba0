package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	"github.com/jonwraymond/abicache/abi"
	"github.com/jonwraymond/abicache/cache"
)

// errDiffer reports that the compared ABIs differ. Like diff(1), it exits 1.
var errDiffer = errors.New("abis differ")

var (
	addFprint  = color.New(color.FgGreen).FprintFunc()
	delFprint  = color.New(color.FgRed).FprintFunc()
	hunkFprint = color.New(color.FgCyan).FprintFunc()
)

// runDiff compares a local ABI file, JSON or binary, with the ABI a node
// serves for account, printing a unified diff of their JSON forms.
func runDiff(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("diff", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var node nodeFlags
	node.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	sc, err := node.cache()
	if err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%w: diff needs an account and a file", errUsage)
	}
	account, path := fs.Arg(0), fs.Arg(1)
	node.setColor(stdout)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	local, err := abi.From(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, node.timeout)
	defer cancel()
	remote, err := sc.GetABI(ctx, account)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return err
	}

	before, err := abiText(local)
	if err != nil {
		return err
	}
	after, err := abiText(remote)
	if err != nil {
		return err
	}
	edits := myers.ComputeEdits(span.URIFromPath(path), before, after)
	if len(edits) == 0 {
		return nil
	}
	unified := gotextdiff.ToUnified(path, account+"@"+node.url, before, edits)
	printUnified(stdout, fmt.Sprint(unified))
	return errDiffer
}

// abiText renders a as indented JSON. A missing ABI renders as nothing.
func abiText(a *abi.ABI) (string, error) {
	if a == nil {
		return "", nil
	}
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func printUnified(w io.Writer, text string) {
	for line := range strings.Lines(text) {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprint(w, line)
		case strings.HasPrefix(line, "+"):
			addFprint(w, line)
		case strings.HasPrefix(line, "-"):
			delFprint(w, line)
		case strings.HasPrefix(line, "@@"):
			hunkFprint(w, line)
		default:
			fmt.Fprint(w, line)
		}
	}
}
