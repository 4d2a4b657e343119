package activitymap_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-core"
	"github.com/goliatone/go-auth-core/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventRoleChanged,
		Actor:     auth.ActorRef{ID: "admin-42", Type: "user"},
		UserID:    "user-100",
		Metadata: map[string]any{
			"email": "bob@example.com",
			"role":  auth.RoleNameViewer,
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	assert.Equal(t, "admin-42", out.ActorID)
	assert.Equal(t, string(auth.ActivityEventRoleChanged), out.Verb)
	assert.Equal(t, activitymap.OutcomeSuccess, out.Outcome)
	assert.Equal(t, "principal", out.ObjectType)
	assert.Equal(t, "user-100", out.ObjectID)
	assert.Equal(t, "auth", out.Channel)
	assert.True(t, out.OccurredAt.Equal(ts))

	assert.Equal(t, auth.RoleNameViewer, out.Metadata["role"])
	assert.Equal(t, "user", out.Metadata[activitymap.MetadataKeyActorType])

	assert.Len(t, event.Metadata, 2, "source metadata must remain unchanged")
}

func TestNormalizeFailures(t *testing.T) {
	t.Parallel()

	event := auth.ActivityEvent{
		EventType: auth.ActivityEventLoginFailure,
		Actor:     auth.ActorRef{Type: "unknown"},
		Metadata: map[string]any{
			"email":                       "Bob@Example.com",
			activitymap.MetadataKeyReason: "password_mismatch",
			"error":                       "sql: connection reset",
		},
	}

	out := activitymap.Normalize(event, activitymap.WithObjectIDResolver(activitymap.EmailObjectID))

	assert.Equal(t, activitymap.OutcomeFailure, out.Outcome)
	assert.Equal(t, "system", out.ActorID)
	assert.Equal(t, "bob@example.com", out.ObjectID)
	assert.Equal(t, "password_mismatch", out.Metadata[activitymap.MetadataKeyReason])
	assert.NotContains(t, out.Metadata, "error")
	assert.Contains(t, event.Metadata, "error")
	assert.False(t, out.OccurredAt.IsZero())
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	event := auth.ActivityEvent{
		EventType: auth.ActivityEventRoleAssigned,
		Actor:     auth.ActorRef{Type: "user"},
		UserID:    "user-200",
		Metadata: map[string]any{
			"role":                           auth.RoleNameEditor,
			activitymap.MetadataKeyActorType: "existing",
		},
	}

	out := activitymap.Normalize(
		event,
		activitymap.WithDefaultChannel("security"),
		activitymap.WithDefaultObjectType("account"),
		activitymap.WithObjectIDResolver(func(e auth.ActivityEvent) string {
			if v, ok := e.Metadata["role"].(string); ok {
				return v
			}
			return ""
		}),
	)

	assert.Equal(t, "security", out.Channel)
	assert.Equal(t, "account", out.ObjectType)
	assert.Equal(t, auth.RoleNameEditor, out.ObjectID)
	assert.Equal(t, "existing", out.Metadata[activitymap.MetadataKeyActorType])
}

func TestNormalizeActorFallbackChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  auth.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses actor id when present",
			event:  auth.ActivityEvent{Actor: auth.ActorRef{ID: "actor-1"}, UserID: "user-1"},
			expect: "actor-1",
		},
		{
			name:   "uses user id when actor id missing",
			event:  auth.ActivityEvent{Actor: auth.ActorRef{ID: ""}, UserID: "user-2"},
			expect: "user-2",
		},
		{
			name:   "uses default fallback when actor and user missing",
			event:  auth.ActivityEvent{},
			expect: "system",
		},
		{
			name:   "uses configured fallback when actor and user missing",
			event:  auth.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("cli")},
			expect: "cli",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			assert.Equal(t, tc.expect, out.ActorID)
		})
	}
}

func TestNewSink(t *testing.T) {
	t.Parallel()

	var got []activitymap.Normalized
	sink := activitymap.NewSink(func(_ context.Context, r activitymap.Normalized) error {
		got = append(got, r)
		return nil
	}, activitymap.WithDefaultChannel("authd"))

	require.NoError(t, sink.Record(context.Background(), auth.ActivityEvent{
		EventType: auth.ActivityEventRegisterSuccess,
		UserID:    "user-1",
	}))

	require.Len(t, got, 1)
	assert.Equal(t, "authd", got[0].Channel)
	assert.Equal(t, "user-1", got[0].ObjectID)

	failing := activitymap.NewSink(func(context.Context, activitymap.Normalized) error {
		return errors.New("queue full")
	})
	assert.Error(t, failing.Record(context.Background(), auth.ActivityEvent{}))

	assert.NoError(t, activitymap.NewSink(nil).Record(context.Background(), auth.ActivityEvent{}))
}

type capturedEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	entries []capturedEntry
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *captureLogger) add(level, msg string, args []any) {
	l.entries = append(l.entries, capturedEntry{level: level, msg: msg, args: args})
}

func TestLoggerEmitter(t *testing.T) {
	t.Parallel()

	logger := &captureLogger{}
	sink := activitymap.NewSink(activitymap.LoggerEmitter(logger))

	require.NoError(t, sink.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventLoginSuccess}))
	require.NoError(t, sink.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventRoleFailure}))

	require.Len(t, logger.entries, 2)
	assert.Equal(t, "info", logger.entries[0].level)
	assert.Equal(t, "warn", logger.entries[1].level)
	assert.Equal(t, "audit", logger.entries[1].msg)
	assert.Contains(t, logger.entries[1].args, string(auth.ActivityEventRoleFailure))
}
