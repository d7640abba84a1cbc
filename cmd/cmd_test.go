package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ginjaninja78/budget-report/internal/export"
	"github.com/ginjaninja78/budget-report/pkg/utils"
)

func TestResolveFormats(t *testing.T) {
	configured := []export.Format{export.FormatXLS}

	got, err := resolveFormats(nil, configured)
	require.NoError(t, err)
	assert.Equal(t, configured, got)

	got, err = resolveFormats([]string{"XLSX", ".xls"}, configured)
	require.NoError(t, err)
	assert.Equal(t, []export.Format{export.FormatXLSX, export.FormatXLS}, got)

	_, err = resolveFormats([]string{"pdf"}, configured)
	assert.ErrorIs(t, err, export.ErrUnknownFormat)
}

func TestBuildLogger(t *testing.T) {
	l, err := buildLogger("warn", false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = buildLogger("warn", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = buildLogger("loud", false)
	assert.Error(t, err)
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data_program.json"), []byte("[]"), 0644))

	fm := utils.NewFileManager(dir, t.TempDir(), "")
	files, err := collectInputs(fm, nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "data_program.json", files[0].Name)

	_, err = collectInputs(utils.NewFileManager(t.TempDir(), "", ""), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON files found")
}
