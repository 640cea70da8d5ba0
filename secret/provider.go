package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves a reference as an environment variable name, with an
// optional prefix: with prefix "ABICACHE_", ref "CHAIN_KEY" reads
// ABICACHE_CHAIN_KEY.
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider builds an EnvProvider from {"prefix": "..."}.
func NewEnvProvider(cfg map[string]any) (Provider, error) {
	var opts struct {
		Prefix string `json:"prefix"`
	}
	if err := decodeOptions(cfg, &opts); err != nil {
		return nil, err
	}
	return &EnvProvider{Prefix: opts.Prefix}, nil
}

// Name returns "env".
func (p *EnvProvider) Name() string { return "env" }

// Resolve looks up the variable; an unset variable is ErrNotFound.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	key := p.Prefix + ref
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("%w: env %s", ErrNotFound, key)
	}
	return v, nil
}

// Close is a no-op.
func (p *EnvProvider) Close() error { return nil }

// FileProvider resolves a reference as a file path relative to Dir. Trailing
// newlines are trimmed. References escaping Dir are rejected.
type FileProvider struct {
	Dir string
}

// NewFileProvider builds a FileProvider from {"dir": "..."}. An empty dir
// means the working directory.
func NewFileProvider(cfg map[string]any) (Provider, error) {
	var opts struct {
		Dir string `json:"dir"`
	}
	if err := decodeOptions(cfg, &opts); err != nil {
		return nil, err
	}
	return &FileProvider{Dir: opts.Dir}, nil
}

// Name returns "file".
func (p *FileProvider) Name() string { return "file" }

// Resolve reads the referenced file.
func (p *FileProvider) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !filepath.IsLocal(ref) {
		return "", fmt.Errorf("%w: %q is not a local path", ErrInvalidRef, ref)
	}
	data, err := os.ReadFile(filepath.Join(p.Dir, ref))
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: file %s", ErrNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("secret: read %s: %w", ref, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Close is a no-op.
func (p *FileProvider) Close() error { return nil }

var (
	_ Provider = (*EnvProvider)(nil)
	_ Provider = (*FileProvider)(nil)
)
