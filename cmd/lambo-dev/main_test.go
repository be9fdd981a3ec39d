package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadEvent(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		content     string
		expectError bool
		expected    string
	}{
		{
			name:     "json passes through",
			file:     "event.json",
			content:  `{"httpMethod":"GET","path":"/"}`,
			expected: `{"httpMethod":"GET","path":"/"}`,
		},
		{
			name: "yaml is converted",
			file: "event.yaml",
			content: `httpMethod: GET
path: /
headers:
  accept: [a, b]
  x-empty: null
`,
			expected: `{"httpMethod":"GET","path":"/","headers":{"accept":["a","b"],"x-empty":null}}`,
		},
		{
			name:        "empty yaml",
			file:        "event.yaml",
			content:     "",
			expectError: true,
		},
		{
			name:        "invalid yaml",
			file:        "event.yml",
			content:     "httpMethod: [",
			expectError: true,
		},
		{
			name:        "unknown extension",
			file:        "event.txt",
			content:     "GET /",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := loadEvent(writeFile(t, tt.file, tt.content))
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(payload))
		})
	}

	_, err := loadEvent(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadEvent_YAMLKeepsKeyOrder(t *testing.T) {
	path := writeFile(t, "event.yaml", `path: /echo
httpMethod: POST
multiValueHeaders:
  x-b: [two, "2"]
  x-a: [one]
  base: &base [shared]
  copy: *base
isBase64Encoded: false
body: 42
`)

	payload, err := loadEvent(path)
	require.NoError(t, err)
	assert.Equal(t,
		`{"path":"/echo","httpMethod":"POST","multiValueHeaders":{"x-b":["two","2"],"x-a":["one"],"base":["shared"],"copy":["shared"]},"isBase64Encoded":false,"body":"42"}`,
		string(payload))
}

func TestInvokeCommand(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	event := writeFile(t, "root.yaml", "httpMethod: GET\npath: /\n")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"invoke", "--event", event})
	require.NoError(t, cmd.Execute())

	var result struct {
		StatusCode int               `json:"statusCode"`
		Headers    map[string]string `json:"headers"`
		Body       string            `json:"body"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, "application/json", result.Headers["Content-Type"])
	assert.JSONEq(t, `{"name":"bob"}`, result.Body)
}

func TestInvokeCommand_Fixture(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"invoke", "--event", filepath.Join("testdata", "get-root.yaml")})
	require.NoError(t, cmd.Execute())

	var result struct {
		StatusCode int               `json:"statusCode"`
		Headers    map[string]string `json:"headers"`
		Body       string            `json:"body"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, "fixture-get-root", result.Headers["X-Request-ID"])
	assert.JSONEq(t, `{"name":"bob"}`, result.Body)
}

func TestInvokeCommand_MalformedEvent(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	event := writeFile(t, "bad.json", `{"httpMethod":"GET"}`)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"invoke", "--event", event})
	assert.Error(t, cmd.Execute())
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCmd()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "invoke"}, names)
}
