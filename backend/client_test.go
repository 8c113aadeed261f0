package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emrahtokalak/supportflow/models"
)

func TestChatSendsContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))

		body, _ := io.ReadAll(r.Body)
		var raw map[string]any
		require.NoError(t, json.Unmarshal(body, &raw))
		require.Equal(t, "Where is my order?", raw["message"])
		require.Nil(t, raw["session_id"])
		require.Nil(t, raw["customer_info"])
		require.Equal(t, "gemma3:latest", raw["model"])

		_, _ = w.Write([]byte(`{"session_id":"abc12345-x","response":"On its way","category":"order","requires_human":false,"turn_count":1,"status":"success"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithHTTPClient(srv.Client()))
	resp, err := c.Chat(context.Background(), models.ChatRequest{Message: "Where is my order?", Model: "gemma3:latest"})
	require.NoError(t, err)
	turn := resp.Turn()
	require.Equal(t, "abc12345-x", turn.SessionID)
	require.Equal(t, "On its way", turn.Reply)
	require.Equal(t, "order", turn.Category)
	require.Equal(t, 1, turn.TurnCount)
}

func TestChatBackendErrorCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"model unavailable"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithHTTPClient(srv.Client()))
	_, err := c.Chat(context.Background(), models.ChatRequest{Message: "hi"})
	require.Error(t, err)
	require.True(t, IsBackend(err))
	require.False(t, IsTransport(err))
	require.Equal(t, "model unavailable", Detail(err))
}

func TestBackendErrorWithoutDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithHTTPClient(srv.Client()))
	_, err := c.Escalate(context.Background(), models.EscalateRequest{SessionID: "s1", Reason: "x"})
	require.True(t, IsBackend(err))
	require.Contains(t, err.Error(), "502")
}

func TestNonJSONSuccessIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithHTTPClient(srv.Client()))
	_, err := c.Health(context.Background())
	require.True(t, IsTransport(err))
}

func TestUnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url)
	_, err := c.Health(context.Background())
	require.True(t, IsTransport(err))
	require.Equal(t, "could not reach the support API", Detail(err))
}

func TestTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.Health(context.Background())
	require.True(t, IsTransport(err))
}

func TestSessionStatusParsesNaiveTimestamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/session/abc/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"session_id":"abc","is_active":true,"turn_count":3,"requires_human":true,"escalation_reason":"billing dispute","session_duration_minutes":4.5,"last_activity":"2026-10-16T09:30:15.123456"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithHTTPClient(srv.Client()))
	snap, err := c.SessionStatus(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, 3, snap.TurnCount)
	require.True(t, snap.RequiresHuman)
	require.Equal(t, "billing dispute", snap.EscalationReason)
	require.InDelta(t, 4.5, snap.DurationMinutes, 0.0001)
	require.Equal(t, 2026, snap.LastActivity.Year())
	require.Equal(t, 30, snap.LastActivity.Minute())
}

func TestEscalateAndAdminEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/session/abc/escalate", func(w http.ResponseWriter, r *http.Request) {
		var req models.EscalateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "abc", req.SessionID)
		require.Equal(t, "billing dispute", req.Reason)
		require.Equal(t, "agent_001", req.HumanAgentID)
		_, _ = w.Write([]byte(`{"status":"success","message":"marked"}`))
	})
	mux.HandleFunc("/admin/sessions/requiring-human", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sessions":[{"session_id":"abc","created_at":"2026-10-16T09:00:00","turn_count":2,"escalation_reason":"billing dispute","customer_info":{"name":"Ada"},"last_message":"help"}],"count":1}`))
	})
	mux.HandleFunc("/admin/cleanup-sessions", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"cleaned_sessions":2,"message":"2 sessions cleaned"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL + "/")
	ctx := context.Background()

	esc, err := c.Escalate(ctx, models.EscalateRequest{SessionID: "abc", Reason: "billing dispute", HumanAgentID: "agent_001"})
	require.NoError(t, err)
	require.Equal(t, "success", esc.Status)

	pending, err := c.SessionsRequiringHuman(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, pending.Count)
	require.Equal(t, "Ada", pending.Sessions[0].CustomerInfo["name"])

	cleaned, err := c.CleanupSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, cleaned.CleanedSessions)
}

func TestChatWithoutSessionIDIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"hi"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Chat(context.Background(), models.ChatRequest{Message: "hi"})
	require.True(t, IsTransport(err))
}
