package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
)

func newObservedLogger(t *testing.T) (*RollbarLogger, *observer.ObservedLogs) {
	t.Helper()
	obsCore, logs := observer.New(zapcore.DebugLevel)
	return NewRollbarLogger(zap.New(obsCore), &core.Config{Env: "TEST"}), logs
}

func TestRollbarLogger(t *testing.T) {
	logger, logs := newObservedLogger(t)
	usr := user.User{ID: "u1", Username: "jdoe"}

	logger.Info("hello")
	logger.Error("failed", errors.New("boom"), usr, map[string]interface{}{"path": "/api"})

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "hello", entries[0].Message)
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

		assert.Equal(t, "failed", entries[1].Message)
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		ctx := entries[1].ContextMap()
		assert.Equal(t, "u1", ctx["user_id"])
		assert.Contains(t, ctx["error0"], "boom")
		assert.Equal(t, map[string]interface{}{"path": "/api"}, ctx["extras2"])
	}
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger, _ := newObservedLogger(t)
	err := errors.New("boom")

	rbArgs, fields := logger.prepare("msg", []interface{}{err, user.User{ID: "u1"}, user.User{ID: "u2"}})
	assert.Equal(t, []interface{}{"msg", err}, rbArgs)
	assert.Len(t, fields, 2) // error + a single user
}
