package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testWorkflow struct {
	Name      string   `json:"name"`
	Active    bool     `json:"active"`
	NodeCount int      `json:"node_count"`
	Tags      []string `json:"tags"`
}

func TestNew(t *testing.T) {
	t.Run("valid expression", func(t *testing.T) {
		f, err := New("active")
		require.NoError(t, err)
		assert.NotNil(t, f)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := New("active &&")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid filter expression")
	})

	t.Run("non boolean result rejected at compile time", func(t *testing.T) {
		_, err := New(`"just a string"`)
		require.Error(t, err)
	})
}

func TestMatch(t *testing.T) {
	wf := testWorkflow{
		Name:      "deploy-prod",
		Active:    true,
		NodeCount: 5,
		Tags:      []string{"prod", "deploy"},
	}

	tests := []struct {
		name       string
		expression string
		want       bool
	}{
		{"boolean field", "active", true},
		{"comparison", "node_count > 3", true},
		{"comparison false", "node_count > 10", false},
		{"string predicate", `name startsWith "deploy"`, true},
		{"membership", `"prod" in tags`, true},
		{"conjunction", `active && node_count >= 5`, true},
		{"undefined variable is falsy", `missing_field == "x"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.expression)
			require.NoError(t, err)

			got, err := f.Match(wf)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchMapInput(t *testing.T) {
	f, err := New(`status == "running"`)
	require.NoError(t, err)

	got, err := f.Match(map[string]any{"status": "running"})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestApply(t *testing.T) {
	items := []testWorkflow{
		{Name: "a", Active: true, NodeCount: 2},
		{Name: "b", Active: false, NodeCount: 8},
		{Name: "c", Active: true, NodeCount: 9},
	}

	f, err := New("active && node_count > 5")
	require.NoError(t, err)

	matched, err := Apply(f, items)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "c", matched[0].Name)
}

func TestMatchNonObject(t *testing.T) {
	f, err := New("active")
	require.NoError(t, err)

	_, err = f.Match([]string{"not", "an", "object"})
	require.Error(t, err)
}
