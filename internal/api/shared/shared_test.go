package shared

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phrazzld/eventhost/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	withTrace := SetTraceID(ctx)
	traceID := GetTraceID(withTrace)
	assert.Len(t, traceID, 32)
	_, err := hex.DecodeString(traceID)
	assert.NoError(t, err)

	assert.NotEqual(t, traceID, GetTraceID(SetTraceID(ctx)))
	assert.Empty(t, GetTraceID(context.WithValue(ctx, TraceIDKey, 123)))
}

func TestSubject(t *testing.T) {
	_, ok := GetSubject(context.Background())
	assert.False(t, ok)

	_, ok = GetSubject(SetSubject(context.Background(), ""))
	assert.False(t, ok)

	subject, ok := GetSubject(SetSubject(context.Background(), "admin"))
	assert.True(t, ok)
	assert.Equal(t, "admin", subject)
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name string `json:"name" validate:"required"`
	}

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", `{"name":"a"}`, false},
		{"malformed", `{"name":`, true},
		{"trailing value", `{"name":"a"}{"name":"b"}`, true},
		{"too large", `{"name":"` + strings.Repeat("x", MaxBodyBytes) + `"}`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.input))
			var got body
			err := DecodeJSON(httptest.NewRecorder(), r, &got)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "a", got.Name)
			}
		})
	}

	assert.Error(t, ValidateRequest(&body{}))
	assert.NoError(t, ValidateRequest(&body{Name: "x"}))
}

func TestRespondWithErrorAndLog(t *testing.T) {
	l, buf := logger.NewTestLogger()

	ctx := logger.WithLogger(SetTraceID(context.Background()), l)
	r := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to publish event",
		errors.New("dial postgres://user:secret@db/events"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to publish event", resp.Error)
	assert.Equal(t, GetTraceID(ctx), resp.TraceID)
	assert.NotContains(t, w.Body.String(), "secret")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ERROR", entries[0]["level"])
	assert.NotContains(t, entries[0]["error"], "secret")
	assert.Equal(t, GetTraceID(ctx), entries[0]["trace_id"])
}

func TestRespondWithError(t *testing.T) {
	l, buf := logger.NewTestLogger()
	r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(logger.WithLogger(context.Background(), l))
	w := httptest.NewRecorder()

	RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid request format"}`, w.Body.String())

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "DEBUG", entries[0]["level"])
}
