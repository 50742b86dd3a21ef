package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/gitter/cmd"
	logadapter "github.com/MyCarrier-DevOps/gitter/internal/adapters/logger"
	"github.com/MyCarrier-DevOps/gitter/internal/adapters/output"
	"github.com/MyCarrier-DevOps/gitter/internal/domain"
	"github.com/MyCarrier-DevOps/gitter/internal/infrastructure/config"
)

type recordingLogger struct {
	fields []map[string]interface{}
}

func (l *recordingLogger) Info(_ context.Context, _ string, f map[string]interface{}) {
	l.fields = append(l.fields, f)
}
func (l *recordingLogger) Debug(_ context.Context, _ string, f map[string]interface{}) {
	l.fields = append(l.fields, f)
}
func (l *recordingLogger) Warn(_ context.Context, _ string, f map[string]interface{}) {
	l.fields = append(l.fields, f)
}
func (l *recordingLogger) Error(_ context.Context, _ string, _ error, f map[string]interface{}) {
	l.fields = append(l.fields, f)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvGitPath, "/opt/git/bin/git")
	t.Setenv(config.EnvCommandTimeout, "15s")

	cfg, err := loadConfig()

	require.NoError(t, err)
	assert.Equal(t, "/opt/git/bin/git", cfg.GitPath)
	assert.Equal(t, 15*time.Second, cfg.CommandTimeout)
	assert.Equal(t, config.DefaultEncoding, cfg.Encoding)
}

func TestLoadConfig_Error(t *testing.T) {
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvCommandTimeout, "later")

	_, err := loadConfig()

	assert.ErrorIs(t, err, config.ErrInvalidTimeout)
}

func TestNewAccessor(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		wantErr  bool
	}{
		{name: "default encoding", encoding: ""},
		{name: "utf-8", encoding: "utf-8"},
		{name: "legacy code page", encoding: "windows-1251"},
		{name: "unknown encoding", encoding: "klingon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := newAccessor(&cmd.AppConfig{GitPath: "git", Encoding: tt.encoding}, "/repo", nil)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "/repo", acc.WorkingDirectory())
		})
	}
}

func TestNewOutputWriter(t *testing.T) {
	var buf bytes.Buffer

	w, err := newOutputWriter(&buf, "text")
	require.NoError(t, err)
	require.NoError(t, w.WriteValue(domain.ConfigParameterData{Name: "a.b", Value: "c"}))
	assert.Equal(t, "c\n", buf.String())

	_, err = newOutputWriter(&buf, "xml")
	assert.ErrorIs(t, err, output.ErrUnknownFormat)
}

func TestComponentLogger(t *testing.T) {
	inner := &recordingLogger{}

	tagged := componentLogger(logadapter.NewZapAdapter(inner), "gitcli")
	tagged.Info(context.Background(), "msg", nil)
	require.Len(t, inner.fields, 1)
	assert.Equal(t, "gitcli", inner.fields[0]["component"])

	plain := componentLogger(inner, "gitcli")
	assert.Same(t, inner, plain)
}
