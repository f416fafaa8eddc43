package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/groupops/engine/group"
	"github.com/compozy/groupops/pkg/config"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *GatewayClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewGatewayClient(&config.GatewayConfig{
		BaseURL: srv.URL,
		APIKey:  config.SensitiveString("secret-key"),
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestGatewayClient_ListGroups(t *testing.T) {
	t.Run("Should decode groups and send the api key", func(t *testing.T) {
		client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/sessions/42/groups", r.URL.Path)
			assert.Equal(t, "secret-key", r.Header.Get("X-API-Key"))
			writeJSON(w, http.StatusOK, []map[string]any{
				{"id": "g1@g.us", "name": "[AGODA] Sales", "isAdmin": true},
				{"id": "g2@g.us", "name": "AJ Marketing", "isAdmin": false},
			})
		})
		groups, err := client.ListGroups(context.Background(), "42")
		require.NoError(t, err)
		assert.Equal(t, []group.Group{
			{ID: "g1@g.us", Name: "[AGODA] Sales", IsAdmin: true},
			{ID: "g2@g.us", Name: "AJ Marketing", IsAdmin: false},
		}, groups)
	})
}

func TestGatewayClient_IsMember(t *testing.T) {
	t.Run("Should report membership from the body", func(t *testing.T) {
		client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/sessions/42/groups/g1/participants/62811111111", r.URL.Path)
			writeJSON(w, http.StatusOK, map[string]any{"member": true})
		})
		ok, err := client.IsMember(context.Background(), "42", "g1", "62811111111")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Should treat not found as not a member", func(t *testing.T) {
		client := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "participant not found"})
		})
		ok, err := client.IsMember(context.Background(), "42", "g1", "62811111111")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestGatewayClient_AddMember(t *testing.T) {
	t.Run("Should post the participant list", func(t *testing.T) {
		client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/sessions/42/groups/g1/participants", r.URL.Path)
			var body map[string][]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []string{"62811111111"}, body["participants"])
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		})
		require.NoError(t, client.AddMember(context.Background(), "42", "g1", "62811111111"))
	})
}

func TestGatewayClient_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		kind   error
	}{
		{http.StatusConflict, ErrConflict},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrTransient},
		{http.StatusBadRequest, ErrTransient},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("Should map status %d", tc.status), func(t *testing.T) {
			client := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tc.status, map[string]any{"message": "boom"})
			})
			err := client.Promote(context.Background(), "42", "g1", "62811111111")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
			var rerr *Error
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, tc.status, rerr.Status)
			assert.Equal(t, "boom", rerr.Message)
			assert.Equal(t, "promote", rerr.Op)
		})
	}

	t.Run("Should map transport failures to transient", func(t *testing.T) {
		client, err := NewGatewayClient(&config.GatewayConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
		require.NoError(t, err)
		err = client.Demote(context.Background(), "42", "g1", "x")
		assert.ErrorIs(t, err, ErrTransient)
	})
}

func TestGatewayClient_ListAdmins(t *testing.T) {
	t.Run("Should map superadmin to owner and drop plain members", func(t *testing.T) {
		client := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/sessions/42/groups/g1/admins", r.URL.Path)
			writeJSON(w, http.StatusOK, []map[string]any{
				{"id": "owner@s.whatsapp.net", "admin": "superadmin"},
				{"id": "a1@s.whatsapp.net", "admin": "admin"},
				{"id": "m1@s.whatsapp.net", "admin": nil},
			})
		})
		admins, err := client.ListAdmins(context.Background(), "42", "g1")
		require.NoError(t, err)
		assert.Equal(t, []group.Admin{
			{Key: "owner@s.whatsapp.net", Role: group.RoleOwner},
			{Key: "a1@s.whatsapp.net", Role: group.RoleAdmin},
		}, admins)
	})
}

func TestErrorSignatures(t *testing.T) {
	t.Run("Should detect rate limits by type and text", func(t *testing.T) {
		assert.True(t, IsRateLimit(&Error{Op: "x", Kind: ErrRateLimited}))
		assert.True(t, IsRateLimit(errors.New("rate-overlimit")))
		assert.True(t, IsRateLimit(errors.New("Too Many Requests")))
		assert.False(t, IsRateLimit(errors.New("boom")))
		assert.False(t, IsRateLimit(nil))
	})

	t.Run("Should detect conflicts by type and text", func(t *testing.T) {
		assert.True(t, IsConflict(fmt.Errorf("wrap: %w", ErrConflict)))
		assert.True(t, IsConflict(errors.New("participant already in group")))
		assert.False(t, IsConflict(errors.New("boom")))
	})

	t.Run("Should classify gateway errors by status and not by message text", func(t *testing.T) {
		client := newTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"message": "failed to add 6281240942911@s.whatsapp.net: already requested",
			})
		})
		err := client.AddMember(context.Background(), "42", "g1", "6281240942911")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransient)
		assert.False(t, IsConflict(err))
		assert.False(t, IsRateLimit(err))
		assert.False(t, IsConflict(fmt.Errorf("add member: %w", err)))
	})

	t.Run("Should still honor the kind of a gateway error", func(t *testing.T) {
		assert.True(t, IsConflict(&Error{Op: "add member", Status: 409, Message: "x", Kind: ErrConflict}))
		assert.True(t, IsRateLimit(fmt.Errorf("wrap: %w", &Error{Op: "promote", Status: 429, Kind: ErrRateLimited})))
	})
}

func TestDisplayNumber(t *testing.T) {
	cases := map[string]string{
		"":                                "Unknown",
		"6281234567890@s.whatsapp.net":    "6281234567890",
		"081234567890@s.whatsapp.net":     "6281234567890",
		"6281234567890:12@s.whatsapp.net": "6281234567890",
		"123456789012345@lid":             "123456789012",
		"62811111111":                     "62811111111",
	}
	for in, want := range cases {
		t.Run("Should render "+in, func(t *testing.T) {
			assert.Equal(t, want, DisplayNumber(in))
		})
	}
}
