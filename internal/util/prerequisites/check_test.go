package prerequisites

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_ToolFound(t *testing.T) {
	// "go" is guaranteed to be present when running tests.
	results := Check([]Tool{{Name: "go", Required: true}})

	require.Len(t, results.Results, 1)
	assert.True(t, results.Results[0].Found)
	assert.NotEmpty(t, results.Results[0].Path)
	assert.Empty(t, results.Missing)
	assert.False(t, results.HasErrors())
	assert.NoError(t, results.Error())
}

func TestCheck_ToolMissing(t *testing.T) {
	tool := Tool{
		Name:       "definitely-not-a-real-binary-xyz",
		Required:   true,
		InstallURL: "https://example.com",
	}
	results := Check([]Tool{tool})

	require.Len(t, results.Missing, 1)
	assert.True(t, results.HasErrors())

	err := results.Error()
	require.Error(t, err)
	assert.Contains(t, err.Error(), tool.Name)
	assert.Contains(t, err.Error(), tool.InstallURL)
}

func TestCheck_OptionalToolMissingIsNotError(t *testing.T) {
	results := Check([]Tool{{Name: "definitely-not-a-real-binary-xyz", Required: false}})

	assert.Len(t, results.Missing, 1)
	assert.False(t, results.HasErrors())
	assert.NoError(t, results.Error())
}

func TestResolveCopyTool_ExplicitPathMissing(t *testing.T) {
	_, err := ResolveCopyTool("/nonexistent/azcopy")
	assert.Error(t, err)
}
