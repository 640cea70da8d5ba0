package secret_test

import (
	"context"
	"fmt"
	"os"

	"github.com/jonwraymond/abicache/secret"
)

func ExampleResolver_ResolveValue() {
	_ = os.Setenv("ABICACHE_CHAIN_KEY", "k-123")
	defer os.Unsetenv("ABICACHE_CHAIN_KEY")

	env, _ := secret.DefaultRegistry.Create("env", map[string]any{"prefix": "ABICACHE_"})
	r := secret.NewResolver(true, env)
	defer r.Close()

	v, err := r.ResolveValue(context.Background(), "Bearer secretref:env:CHAIN_KEY")
	fmt.Println(v, err)
	// Output:
	// Bearer k-123 <nil>
}

func ExampleExpandEnvStrict() {
	_, err := secret.ExpandEnvStrict("${ABICACHE_UNSET_EXAMPLE}")
	fmt.Println(err)
	// Output:
	// secret: missing required environment variables: ABICACHE_UNSET_EXAMPLE
}
