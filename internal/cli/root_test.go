package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "catalogctl", cmd.Use)

	for _, name := range []string{"explain", "signature"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestGolden(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"explain_text", []string{"explain", `tag:React level:beginner tag:Go intro to "web dev"`}},
		{"explain_diagnostics", []string{"explain", `title: foo:bar "oops`}},
		{"explain_json", []string{"explain", "--format", "json", "tag:Go intro"}},
		{"signature_text", []string{"signature", "tag:React level:beginner", "LEVEL:Beginner TAG:react"}},
		{"signature_json", []string{"signature", "--format", "json", "tag:React level:beginner", "LEVEL:Beginner TAG:react"}},
		{"signature_fields", []string{"signature", "--fields", "author=contains", "author:Jane level:beginner"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			newGoldie(t).Assert(t, tt.name, []byte(out))
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, "explain", "--format", "yaml", "tag:go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		fields string
	}{
		{"missing operator", "tag"},
		{"unknown operator", "tag=like"},
		{"reserved name", "freeText=contains"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "signature", "--fields", tt.fields, "tag:go")
			require.Error(t, err)
		})
	}
}

func TestVocabularyFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: 8080
database:
  driver: memory
namespaces:
  listing:
    fields:
      description: contains
`), 0o600))

	out, err := run(t, "signature", "--config", path, "-n", "listing", "description:Intro tag:go")
	require.NoError(t, err)
	assert.Equal(t, "description~\"intro\";freeText~\"tag:go\"\n", out)

	_, err = run(t, "signature", "--config", path, "-n", "courses", "tag:go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `namespace "courses" not found`)
}

func TestExplain_EmptyQueryBrowsesAll(t *testing.T) {
	out, err := run(t, "explain")
	require.NoError(t, err)
	assert.Contains(t, out, "signature: *\n")
}
