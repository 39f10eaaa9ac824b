package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledAlwaysPasses(t *testing.T) {
	assert.NoError(t, Disabled{}.Verify(context.Background(), "", ""))
}

func TestTurnstileSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "sek", r.Form.Get("secret"))
		require.Equal(t, "tok", r.Form.Get("response"))
		require.Equal(t, "10.0.0.1", r.Form.Get("remoteip"))
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	v := NewTurnstile(srv.URL, "sek")
	assert.NoError(t, v.Verify(context.Background(), "tok", "10.0.0.1"))
}

func TestTurnstileFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"rejected token", `{"success":false,"error-codes":["invalid-input-response"]}`},
		{"garbage response", `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			v := NewTurnstile(srv.URL, "sek")
			assert.ErrorIs(t, v.Verify(context.Background(), "tok", ""), ErrVerifyFailed)
		})
	}
}

func TestTurnstileEmptyToken(t *testing.T) {
	v := NewTurnstile("http://unusedable.invalid", "sek")
	assert.ErrorIs(t, v.Verify(context.Background(), "  ", ""), ErrVerifyFailed)
}

func TestTurnstileUnreachableFailsClosed(t *testing.T) {
	v := NewTurnstile("http://127.0.0.1:1", "sek")
	assert.ErrorIs(t, v.Verify(context.Background(), "tok", ""), ErrVerifyFailed)
}
