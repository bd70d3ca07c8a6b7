package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallBuiltinTemplates_WritesAllThree(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, InstallBuiltinTemplates(s))

	templates, errs := s.ListTemplates()
	assert.Empty(t, errs)
	assert.Len(t, templates, 3)

	found, err := s.FindByTemplateName(TemplateAutonomous)
	require.NoError(t, err)
	assert.Equal(t, "tpl-autonomous", found.ID)
}

func TestInstallBuiltinTemplates_DoesNotClobberExisting(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, InstallBuiltinTemplates(s))

	edited, err := s.Load("tpl-simple")
	require.NoError(t, err)
	edited.Description = "hand-edited"
	require.NoError(t, s.Save(edited))

	require.NoError(t, InstallBuiltinTemplates(s))

	reloaded, err := s.Load("tpl-simple")
	require.NoError(t, err)
	assert.Equal(t, "hand-edited", reloaded.Description)
}
