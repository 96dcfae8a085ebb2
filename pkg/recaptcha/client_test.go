package recaptcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostForm.Get("secret"))
		assert.Equal(t, "token", r.PostForm.Get("response"))
		assert.Equal(t, "1.2.3.4", r.PostForm.Get("remoteip"))
		w.Write([]byte(`{"success":true,"score":0.9,"action":"contact"}`))
	}))
	defer srv.Close()

	resp, err := NewClient("secret").WithVerifyURL(srv.URL).Verify(context.Background(), "token", "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Score)
	assert.InDelta(t, 0.9, *resp.Score, 1e-9)
}

func TestClient_VerifyErrorCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	resp, err := NewClient("secret").WithVerifyURL(srv.URL).Verify(context.Background(), "bad", "")
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Score)
	assert.Equal(t, []string{"invalid-input-response"}, resp.ErrorCodes)
}

func TestClient_VerifyHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient("secret").WithVerifyURL(srv.URL).Verify(context.Background(), "t", "")
	assert.Error(t, err)
}
