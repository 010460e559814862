package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/repometa/internal/domain/model"
	"github.com/ericfisherdev/repometa/internal/domain/port/driven"
	"github.com/ericfisherdev/repometa/internal/schema"
)

// fakeGitHub serves the handful of REST endpoints the commands call and
// records the Authorization header of every request.
type fakeGitHub struct {
	mu    sync.Mutex
	auths []string
}

func (f *fakeGitHub) lastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.auths) == 0 {
		return ""
	}
	return f.auths[len(f.auths)-1]
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.auths = append(f.auths, r.Header.Get("Authorization"))
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	reset := time.Now().Add(time.Hour).Unix()

	switch r.URL.Path {
	case "/repos/octocat/Hello-World":
		fmt.Fprint(w, `{"id":1296269,"name":"Hello-World","full_name":"octocat/Hello-World",
			"owner":{"login":"octocat"},"default_branch":"main","private":false,
			"visibility":"public","stargazers_count":80,"pushed_at":"2026-03-01T12:30:00Z"}`)
	case "/repos/octocat/Hello-World/contributors":
		fmt.Fprint(w, `[{"login":"octocat","contributions":42,"type":"User"},
			{"login":"dependabot[bot]","contributions":3,"type":"Bot"}]`)
	case "/rate_limit":
		fmt.Fprintf(w, `{"resources":{"core":{"limit":5000,"remaining":4999,"used":1,"reset":%d}},
			"rate":{"limit":5000,"remaining":4999,"used":1,"reset":%d}}`, reset, reset)
	case "/user/repos":
		fmt.Fprint(w, `[{"id":1,"name":"Hello-World","visibility":"public","owner":{"login":"octocat"},
			"permissions":{"admin":true,"push":true,"pull":true}},
			{"id":3,"name":"docs","visibility":"private","private":true,"owner":{"login":"github"},
			"permissions":{"admin":false,"push":false,"pull":true}}]`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found","documentation_url":"https://docs.github.com/rest"}`)
	}
}

var envKeys = []string{
	"REPOMETA_GITHUB_TOKEN", "REPOMETA_API_URL", "REPOMETA_TIMEOUT", "REPOMETA_DB_PATH",
	"REPOMETA_LISTEN_ADDR", "REPOMETA_LOG_LEVEL", "REPOMETA_HTTP_CACHE",
	"REPOMETA_WAIT_SECONDARY_LIMIT", "REPOMETA_SECRET_KEY", "REPOMETA_SNAPSHOT_PATH",
	"REPOMETA_SNAPSHOT_SCHEMA_PATH", "REPOMETA_ENV_FILE", "REPOMETA_CONFIG_FILE",
}

// setupEnv isolates the process environment, moves into a temp directory and
// points the client at a fake GitHub API. Returns the fake and the temp dir.
func setupEnv(t *testing.T) (*fakeGitHub, string) {
	t.Helper()

	for _, key := range envKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}

	dir := t.TempDir()
	t.Chdir(dir)

	fake := &fakeGitHub{}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	t.Setenv("REPOMETA_API_URL", server.URL+"/")

	return fake, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestRepoGet_JSON(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "repo", "get", "octocat/Hello-World", "-o", "json")
	require.NoError(t, err)

	var view repositoryView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "octocat", view.Owner)
	assert.Equal(t, "Hello-World", view.Name)
	assert.Equal(t, "main", view.DefaultBranch)
	assert.Equal(t, 80, view.Stars)
	assert.Equal(t, "2026-03-01T12:30:00Z", view.PushedAt)
}

func TestRepoGet_TwoArgsAndTable(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "repo", "get", "octocat", "Hello-World")
	require.NoError(t, err)
	assert.Contains(t, out, "default_branch")
	assert.Contains(t, out, "main")
}

func TestRepoGet_Errors(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "repo", "get", "octocat/missing")
	require.Error(t, err)
	assert.Equal(t, "not_found", ErrorKind(err))

	_, err = run(t, "repo", "get", "no-slash")
	require.Error(t, err)
	assert.Equal(t, "invalid_argument", ErrorKind(err))

	_, err = run(t, "repo", "get", "octocat/Hello-World", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestRepoGet_UsesConfiguredToken(t *testing.T) {
	fake, _ := setupEnv(t)
	t.Setenv("REPOMETA_GITHUB_TOKEN", "ghp_env")

	_, err := run(t, "repo", "get", "octocat/Hello-World")
	require.NoError(t, err)
	assert.Equal(t, "Bearer ghp_env", fake.lastAuth())
}

func TestRepoContributors(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "repo", "contributors", "octocat/Hello-World", "--limit", "5", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "login: octocat")
	assert.Contains(t, out, "bot: true")
}

func TestRepoHistory_RequiresDatabase(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "repo", "history", "octocat/Hello-World")
	require.Error(t, err)
	assert.Equal(t, "not_configured", ErrorKind(err))
}

func TestRepoHistory_RecordsEveryFetch(t *testing.T) {
	_, dir := setupEnv(t)
	t.Setenv("REPOMETA_DB_PATH", filepath.Join(dir, "repometa.db"))

	for range 2 {
		_, err := run(t, "repo", "get", "octocat/Hello-World")
		require.NoError(t, err)
	}

	out, err := run(t, "repo", "history", "octocat/Hello-World", "-o", "json")
	require.NoError(t, err)

	var views []snapshotView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "octocat/Hello-World", views[0].Repository.FullName)
	assert.Greater(t, views[0].ID, views[1].ID)
}

func TestRepoGet_Cached(t *testing.T) {
	fake, dir := setupEnv(t)
	t.Setenv("REPOMETA_DB_PATH", filepath.Join(dir, "repometa.db"))

	_, err := run(t, "repo", "get", "octocat/Hello-World", "--cached")
	require.Error(t, err)
	assert.Equal(t, "not_found", ErrorKind(err))

	_, err = run(t, "repo", "get", "octocat/Hello-World")
	require.NoError(t, err)
	calls := len(fake.auths)

	out, err := run(t, "repo", "get", "octocat/Hello-World", "--cached", "-o", "json")
	require.NoError(t, err)
	assert.Len(t, fake.auths, calls, "cached read makes no API call")

	var view snapshotView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "octocat/Hello-World", view.Repository.FullName)
	assert.NotEmpty(t, view.RecordedAt)
}

func TestRateLimit(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "ratelimit")
	require.NoError(t, err)
	assert.Contains(t, out, "core")
	assert.Contains(t, out, "4999")
}

func TestSnapshot_GeneratesFiles(t *testing.T) {
	_, dir := setupEnv(t)

	out, err := run(t, "snapshot")
	require.NoError(t, err)
	assert.Contains(t, out, "octocat")
	assert.Contains(t, out, "admin")

	data, err := os.ReadFile(filepath.Join(dir, "repos.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hello-World:")

	_, err = os.Stat(filepath.Join(dir, "repos.schema.json"))
	require.NoError(t, err)

	out, err = run(t, "schema", "validate", "repos.schema.json", "repos.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestSnapshot_ReadsExistingFile(t *testing.T) {
	fake, dir := setupEnv(t)
	existing := "acme:\n    widgets:\n        id: 9\n        visibility: internal\n        permissions:\n            admin: false\n            push: true\n            pull: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "repos.yaml"), []byte(existing), 0o600))
	writeInferredSchema(t, existing, filepath.Join(dir, "repos.schema.json"))

	out, err := run(t, "snapshot")
	require.NoError(t, err)
	assert.Contains(t, out, "widgets")
	assert.Contains(t, out, "push")
	assert.Empty(t, fake.auths, "existing snapshot needs no API call")
}

func TestSnapshot_RegeneratesWhenSchemaMissing(t *testing.T) {
	fake, dir := setupEnv(t)
	existing := "acme:\n    widgets:\n        id: 9\n        visibility: internal\n        permissions:\n            admin: false\n            push: true\n            pull: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "repos.yaml"), []byte(existing), 0o600))

	out, err := run(t, "snapshot")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello-World")
	assert.NotContains(t, out, "widgets")
	assert.NotEmpty(t, fake.auths)

	_, err = os.Stat(filepath.Join(dir, "repos.schema.json"))
	require.NoError(t, err)
}

func TestSnapshot_RejectsDocumentNotMatchingSchema(t *testing.T) {
	_, dir := setupEnv(t)
	_, err := run(t, "snapshot")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "repos.yaml"), []byte("octocat: 5\n"), 0o600))

	_, err = run(t, "snapshot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

// writeInferredSchema stores the JSON Schema inferred from a YAML document.
func writeInferredSchema(t *testing.T, doc, path string) {
	t.Helper()

	var decoded any
	require.NoError(t, yaml.Unmarshal([]byte(doc), &decoded))
	inferred, err := schema.InferJSONSchema(decoded)
	require.NoError(t, err)
	data, err := json.Marshal(inferred)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestConfigShow_MasksSecrets(t *testing.T) {
	setupEnv(t)
	t.Setenv("REPOMETA_GITHUB_TOKEN", "ghp_secret")

	out, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "ghp_secret")
	assert.Contains(t, out, "REPOMETA_LOG_LEVEL")
}

func TestConfigSchema_IgnoresInvalidEnvironment(t *testing.T) {
	setupEnv(t)
	t.Setenv("REPOMETA_LOG_LEVEL", "verbose")

	out, err := run(t, "config", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"log_level"`)

	_, err = run(t, "config", "show")
	require.Error(t, err)
	assert.Equal(t, "validation", ErrorKind(err))
}

func TestSchemaInfer(t *testing.T) {
	_, dir := setupEnv(t)
	path := filepath.Join(dir, "sample.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: demo\nport: 8080\ntags: [a, b]\n"), 0o600))

	out, err := run(t, "schema", "infer", path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	props := doc["properties"].(map[string]any)
	assert.Equal(t, "integer", props["port"].(map[string]any)["type"])
	assert.Equal(t, "array", props["tags"].(map[string]any)["type"])
}

func TestSchemaValidate_Rejects(t *testing.T) {
	_, dir := setupEnv(t)
	schemaPath := filepath.Join(dir, "s.json")
	docPath := filepath.Join(dir, "d.yaml")
	require.NoError(t, os.WriteFile(schemaPath,
		[]byte(`{"type":"object","properties":{"port":{"type":"integer"}},"required":["port"]}`), 0o600))
	require.NoError(t, os.WriteFile(docPath, []byte("port: not-a-number\n"), 0o600))

	_, err := run(t, "schema", "validate", schemaPath, docPath)
	assert.Error(t, err)
}

func TestAuth_SetTokenAndClear(t *testing.T) {
	fake, dir := setupEnv(t)
	t.Setenv("REPOMETA_DB_PATH", filepath.Join(dir, "repometa.db"))
	t.Setenv("REPOMETA_SECRET_KEY", strings.Repeat("0f", 32))

	out, err := run(t, "auth", "set-token", "--token", "ghp_stored")
	require.NoError(t, err)
	assert.Contains(t, out, "token stored")

	_, err = run(t, "repo", "get", "octocat/Hello-World")
	require.NoError(t, err)
	assert.Equal(t, "Bearer ghp_stored", fake.lastAuth(), "stored token is used when none is configured")

	_, err = run(t, "auth", "clear")
	require.NoError(t, err)

	_, err = run(t, "repo", "get", "octocat/Hello-World")
	require.NoError(t, err)
	assert.Equal(t, "", fake.lastAuth())
}

func TestAuth_ListHidesValues(t *testing.T) {
	_, dir := setupEnv(t)
	t.Setenv("REPOMETA_DB_PATH", filepath.Join(dir, "repometa.db"))
	t.Setenv("REPOMETA_SECRET_KEY", strings.Repeat("0f", 32))

	_, err := run(t, "auth", "set-token", "--token", "ghp_listed")
	require.NoError(t, err)

	out, err := run(t, "auth", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "github")
	assert.NotContains(t, out, "ghp_listed")
}

func TestAuth_RecoversAfterKeyChange(t *testing.T) {
	fake, dir := setupEnv(t)
	t.Setenv("REPOMETA_DB_PATH", filepath.Join(dir, "repometa.db"))
	t.Setenv("REPOMETA_SECRET_KEY", strings.Repeat("0f", 32))

	_, err := run(t, "auth", "set-token", "--token", "ghp_old")
	require.NoError(t, err)

	t.Setenv("REPOMETA_SECRET_KEY", strings.Repeat("a1", 32))

	// The unreadable token is ignored rather than blocking every command.
	_, err = run(t, "repo", "get", "octocat/Hello-World")
	require.NoError(t, err)
	assert.Equal(t, "", fake.lastAuth())

	_, err = run(t, "auth", "clear")
	require.NoError(t, err)

	_, err = run(t, "auth", "set-token", "--token", "ghp_new")
	require.NoError(t, err)

	_, err = run(t, "repo", "get", "octocat/Hello-World")
	require.NoError(t, err)
	assert.Equal(t, "Bearer ghp_new", fake.lastAuth())
}

func TestAuth_RequiresDatabaseAndKey(t *testing.T) {
	_, dir := setupEnv(t)

	_, err := run(t, "auth", "set-token", "--token", "ghp")
	assert.ErrorIs(t, err, errDatabaseRequired)

	t.Setenv("REPOMETA_DB_PATH", filepath.Join(dir, "repometa.db"))
	_, err = run(t, "auth", "set-token", "--token", "ghp")
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
	assert.Equal(t, "not_configured", ErrorKind(err))
}

func TestServeAndHealthcheck(t *testing.T) {
	setupEnv(t)

	a := &app{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	require.NoError(t, a.loadConfig())
	require.NoError(t, a.wire(context.Background()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln) }()

	addr := ln.Addr().String()
	require.Eventually(t, func() bool {
		return checkHealth(context.Background(), addr) == nil
	}, 2*time.Second, 20*time.Millisecond)

	resp, err := http.Get("http://" + addr + "/api/v1/repos/octocat/Hello-World")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = run(t, "healthcheck", "--addr", addr)
	assert.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	assert.Error(t, checkHealth(context.Background(), addr))
}

func TestLoopbackAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", loopbackAddr("0.0.0.0:8080"))
	assert.Equal(t, "127.0.0.1:9090", loopbackAddr(":9090"))
	assert.Equal(t, "10.0.0.5:8080", loopbackAddr("10.0.0.5:8080"))
	assert.Equal(t, "garbage", loopbackAddr("garbage"))
}

func TestPermissionLevel(t *testing.T) {
	assert.Equal(t, "admin", permissionLevel(model.Permissions{Admin: true, Pull: true}))
	assert.Equal(t, "push", permissionLevel(model.Permissions{Push: true}))
	assert.Equal(t, "pull", permissionLevel(model.Permissions{Pull: true}))
	assert.Equal(t, "none", permissionLevel(model.Permissions{}))
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&driven.RateLimitError{}, "rate_limit"},
		{fmt.Errorf("x: %w", driven.ErrNotFound), "not_found"},
		{fmt.Errorf("x: %w", driven.ErrAuth), "auth"},
		{fmt.Errorf("x: %w: %w", driven.ErrTransport, context.DeadlineExceeded), "transport"},
		{&schema.DuplicateFieldError{Name: "port"}, "duplicate_field"},
		{errors.Join(&schema.MissingFieldError{Field: "port"}), "missing_field"},
		{&schema.TypeCoercionError{Field: "port"}, "type_coercion"},
		{&schema.ValidationError{Field: "port"}, "validation"},
		{errors.New("other"), "error"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ErrorKind(tc.err), tc.err.Error())
	}
}
