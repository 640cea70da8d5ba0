package secret

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

// envToken matches $$, ${NAME} and $NAME, leftmost first, so an escaped
// dollar never starts a reference.
var envToken = regexp.MustCompile(`\$(?:\$|\{([A-Za-z_]\w*)\}|([A-Za-z_]\w*))`)

// ExpandEnvStrict expands environment references in s. ${NAME} must be set;
// $NAME expands to "" when unset, as in os.ExpandEnv. $$ is a literal $.
// Every unset ${NAME} is listed, sorted, in an error wrapping ErrMissingEnv.
func ExpandEnvStrict(s string) (string, error) {
	var missing []string
	out := envToken.ReplaceAllStringFunc(s, func(tok string) string {
		m := envToken.FindStringSubmatch(tok)
		switch {
		case m[1] != "":
			v, ok := os.LookupEnv(m[1])
			if !ok {
				missing = append(missing, m[1])
			}
			return v
		case m[2] != "":
			return os.Getenv(m[2])
		default:
			return "$"
		}
	})
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(slices.Compact(missing), ", "))
	}
	return out, nil
}
