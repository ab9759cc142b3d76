package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taleweave/internal/webhook/signer"
)

func TestSendSuccess(t *testing.T) {
	payload := []byte(`{"event":"consent.granted","timestamp":"2026-01-02T03:04:05Z","data":{"story_id":"s1"}}`)
	sig := signer.Sign(payload, "secret")

	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, sig, r.Header.Get(HeaderSignature))
		assert.Equal(t, "1", r.Header.Get(HeaderAttempt))
		assert.Equal(t, "Taleweave-Webhook/1.0", r.Header.Get("User-Agent"))

		buf := make([]byte, len(payload))
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])

		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	res := New().Send(context.Background(), srv.URL, payload, sig, 1)

	require.True(t, res.Success)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Empty(t, res.ErrorMessage)
	// The wire body must be the exact signed bytes.
	assert.Equal(t, string(payload), gotBody)
	assert.True(t, signer.Verify([]byte(gotBody), "secret", sig))
}

func TestSendServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := New().Send(context.Background(), srv.URL, []byte(`{}`), "sha256=ff", 2)

	assert.False(t, res.Success)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.False(t, res.PermanentFailure())
	assert.Contains(t, res.ResponseBody, "boom")
}

func TestSendClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	res := New().Send(context.Background(), srv.URL, []byte(`{}`), "sha256=ff", 1)

	assert.False(t, res.Success)
	assert.True(t, res.PermanentFailure())
}

func TestSendTruncatesResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(strings.Repeat("x", 5000))) //nolint:errcheck
	}))
	defer srv.Close()

	res := New().Send(context.Background(), srv.URL, []byte(`{}`), "sha256=ff", 1)

	require.True(t, res.Success)
	assert.Len(t, res.ResponseBody, 1000)
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	exec := New(WithTimeout(50 * time.Millisecond))
	start := time.Now()
	res := exec.Send(context.Background(), srv.URL, []byte(`{}`), "sha256=ff", 1)

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.ErrorMessage)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSendConnectionRefused(t *testing.T) {
	// Reserve a port and close it so nothing is listening.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := New().Send(context.Background(), url, []byte(`{}`), "sha256=ff", 1)

	assert.False(t, res.Success)
	assert.Zero(t, res.StatusCode)
	assert.NotEmpty(t, res.ErrorMessage)
}
