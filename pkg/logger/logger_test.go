package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger := newLogger()

	formatter, ok := logger.Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	assert.Equal(t, time.RFC3339Nano, formatter.TimestampFormat)
	assert.True(t, formatter.FullTimestamp)
}

func TestGetLogger(t *testing.T) {
	t.Run("falls back to the global logger", func(t *testing.T) {
		retrieved := G(context.Background())
		assert.Equal(t, L.Logger, retrieved.Logger)
	})

	t.Run("nil context", func(t *testing.T) {
		//nolint:staticcheck // exercising the nil guard
		assert.Equal(t, L, G(nil))
	})

	t.Run("returns the context logger", func(t *testing.T) {
		custom := logrus.NewEntry(logrus.New()).WithField("page", "index.md")
		ctx := WithLogger(context.Background(), custom)

		retrieved := G(ctx)
		assert.Equal(t, "index.md", retrieved.Data["page"])
	})
}

func TestWithFields(t *testing.T) {
	base := logrus.NewEntry(logrus.New()).WithField("page", "index.md")
	ctx := WithLogger(context.Background(), base)

	ctx = WithFields(ctx, logrus.Fields{"directive": "image-grid", "line": 12})

	entry := G(ctx)
	assert.Equal(t, "index.md", entry.Data["page"])
	assert.Equal(t, "image-grid", entry.Data["directive"])
	assert.Equal(t, 12, entry.Data["line"])
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	setLoggerFormat(l, "json")

	ctx := WithLogger(context.Background(), logrus.NewEntry(l))
	G(ctx).WithField("directive", "image").Info("directive finished")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["logLevel"])
	assert.Equal(t, "directive finished", entry["message"])
	assert.Equal(t, "image", entry["directive"])

	timestamp, ok := entry["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339Nano, timestamp)
	assert.NoError(t, err)
}

func TestSetLogLevel(t *testing.T) {
	original := L.Logger.GetLevel()
	defer L.Logger.SetLevel(original)

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())

	assert.Error(t, SetLogLevel("chatty"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())
}

func TestSetLogFormat(t *testing.T) {
	original := L.Logger.Formatter
	defer func() { L.Logger.Formatter = original }()

	SetLogFormat("json")
	assert.IsType(t, &logrus.JSONFormatter{}, L.Logger.Formatter)

	SetLogFormat("text")
	assert.IsType(t, &logrus.TextFormatter{}, L.Logger.Formatter)
}
