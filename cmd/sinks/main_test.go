package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claim-intake-service/internal/modal"
)

func TestReviewerSink(t *testing.T) {
	var out bytes.Buffer
	srv := httptest.NewServer(newRouter("/review", reviewerHandler(&out, "http://claims.local/")))
	defer srv.Close()

	body := `{"claimDescription":{"objectDescription":"Bicycle","locationOfIncident":"Unknown — needs clarification"},"callbackId":"cb1.a.b"}`
	resp, err := http.Post(srv.URL+"/review", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, out.String(), "Bicycle")
	assert.Contains(t, out.String(), "curl -X POST http://claims.local/callbacks/cb1.a.b/resolve")
	assert.Contains(t, out.String(), `"request_info"`)
}

func TestUserSink(t *testing.T) {
	var out bytes.Buffer
	srv := httptest.NewServer(newRouter("", userHandler(&out, "http://claims.local")))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(`{"sessionId":"k-1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, out.String(), "http://claims.local/ui/chat/k-1")

	resp2, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestRenderReview_FlagsOpenFields(t *testing.T) {
	out := renderReview(modal.ReviewRequest{
		ClaimDescription: modal.ClaimDescription{ObjectDescription: "Bicycle"},
		CallbackID:       "cb1.x.y",
	}, "http://claims.local")
	assert.Contains(t, out, "objectDescription")
	assert.Contains(t, out, "cb1.x.y")
}
