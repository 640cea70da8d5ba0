package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonwraymond/abicache/abi"
	"github.com/jonwraymond/abicache/config"
)

const tokenJSON = `{"version":"eosio::abi/1.1","structs":[{"name":"transfer","base":"","fields":[{"name":"from","type":"name"},{"name":"to","type":"name"}]}],"actions":[{"name":"transfer","type":"transfer","ricardian_contract":""}]}`

const unknownAccountBody = `{"code":500,"message":"Internal Service Error","error":{"code":3060002,"name":"account_query_exception","what":"Account Query Exception","details":[]}}`

// newNode serves get_raw_abi: eosio.token has an ABI, alice has none and
// every other account is unknown.
func newNode(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(nodeHandler(t))
	t.Cleanup(srv.Close)
	return srv
}

func nodeHandler(t *testing.T) http.Handler {
	t.Helper()
	a, err := abi.FromJSON([]byte(tokenJSON))
	if err != nil {
		t.Fatal(err)
	}
	bin, err := a.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	abis := map[string]string{"eosio.token": base64.StdEncoding.EncodeToString(bin), "alice": ""}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AccountName string `json:"account_name"`
		}
		if r.URL.Path != "/v1/chain/get_raw_abi" || json.NewDecoder(r.Body).Decode(&req) != nil {
			http.NotFound(w, r)
			return
		}
		enc, ok := abis[req.AccountName]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, unknownAccountBody)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"account_name": req.AccountName, "abi": enc})
	})
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no command"},
		{name: "unknown command", args: []string{"fetch"}},
		{name: "get without url", args: []string{"get", "-url", "", "eosio"}},
		{name: "get without accounts", args: []string{"get", "-url", "http://127.0.0.1:1"}},
		{name: "serve with arguments", args: []string{"serve", "extra"}},
		{name: "diff without file", args: []string{"diff", "-url", "http://127.0.0.1:1", "eosio"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, &stdout, &stderr)
			if !errors.Is(err, errUsage) {
				t.Fatalf("run(%q) error = %v, want errUsage", tt.args, err)
			}
			if exitCode(err) != 2 {
				t.Errorf("exitCode = %d, want 2", exitCode(err))
			}
		})
	}
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"version"}, &stdout, io.Discard); err != nil {
		t.Fatal(err)
	}
	if got := stdout.String(); got != "abicache dev\n" {
		t.Errorf("version output = %q", got)
	}
}

func TestRunGet(t *testing.T) {
	node := newNode(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"get", "-no-color", "-retries", "0", "-url", node.URL, "eosio.token", "alice"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("get error = %v, stderr = %s", err, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "eosio.token") || !strings.Contains(out, "eosio::abi/1.1 structs=1 actions=1 tables=0") {
		t.Errorf("stdout = %q, want the token summary", out)
	}
	if !strings.Contains(out, "alice") || !strings.Contains(out, "no abi") {
		t.Errorf("stdout = %q, want alice reported without an abi", out)
	}
}

func TestRunGet_JSON(t *testing.T) {
	node := newNode(t)

	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"get", "-json", "-url", node.URL, "eosio.token"}, &stdout, io.Discard); err != nil {
		t.Fatal(err)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	a, err := abi.FromJSON(got["eosio.token"])
	if err != nil {
		t.Fatalf("eosio.token: %v", err)
	}
	if a.Version != "eosio::abi/1.1" {
		t.Errorf("Version = %q", a.Version)
	}
}

func TestRunGet_Failure(t *testing.T) {
	node := newNode(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"get", "-no-color", "-retries", "0", "-url", node.URL, "eosio.token", "nobody"}, &stdout, &stderr)
	if err == nil || errors.Is(err, errUsage) {
		t.Fatalf("get error = %v, want a lookup failure", err)
	}
	if exitCode(err) != 1 {
		t.Errorf("exitCode = %d, want 1", exitCode(err))
	}
	if !strings.Contains(stderr.String(), "nobody") {
		t.Errorf("stderr = %q, want the failed account", stderr.String())
	}
	if !strings.Contains(stdout.String(), "eosio.token") {
		t.Errorf("stdout = %q, want the resolved account still printed", stdout.String())
	}
}

func TestBuildServer(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "token.json"), []byte(tokenJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Parse([]byte(`
cache:
  seeds: [{account: eosio.token, file: token.json}]
observe:
  logging: {enabled: false}
`))
	if err != nil {
		t.Fatal(err)
	}

	srv, shutdown, err := buildServer(context.Background(), cfg, dir)
	if err != nil {
		t.Fatalf("buildServer() error = %v", err)
	}
	defer shutdown()

	for path, want := range map[string]int{
		"/v1/abi/eosio.token": http.StatusOK,
		"/v1/abi/eosio":       http.StatusNotFound,
		"/healthz":            http.StatusOK,
	} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Errorf("GET %s = %d, want %d: %s", path, rec.Code, want, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/v1/abi/eosio", strings.NewReader(tokenJSON)))
	if rec.Code != http.StatusForbidden {
		t.Errorf("anonymous PUT = %d, want 403", rec.Code)
	}
}

func TestBuildServer_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing seed", yaml: "cache: {seeds: [{account: eosio, file: missing.json}]}"},
		{name: "no credentials", yaml: "auth: {allowAnonymous: false}"},
		{name: "unresolved chain key", yaml: "chain: {url: http://127.0.0.1:1, apiKey: 'secretref:env:ABICACHE_TEST_UNSET_KEY'}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Parse([]byte(tt.yaml + "\nobserve: {logging: {enabled: false}}\n"))
			if err != nil {
				t.Fatal(err)
			}
			if _, _, err := buildServer(context.Background(), cfg, t.TempDir()); err == nil {
				t.Error("buildServer() = nil error")
			}
		})
	}
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abicache.yaml")
	if err := os.WriteFile(path, []byte("observe: {logging: {enabled: false}}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := run(ctx, []string{"serve", "-config", path, "-addr", "127.0.0.1:0"}, io.Discard, io.Discard); err != nil {
		t.Fatalf("serve error = %v, want clean shutdown", err)
	}
}
