package mailing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGatewaySendAccepted(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transmissions", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"results":{"total_accepted_recipients":1,"id":"msg-123"}}`))
	}))
	defer srv.Close()

	g := NewHTTPGateway("test-key", srv.URL)
	res, err := g.SendEmail(context.Background(), OutboundMessage{
		From: "it@example.com", FromName: "IT Desk",
		To: "target@example.com", Subject: "Password expiry",
		HTMLBody: "<body>tracked</body>",
	})
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "msg-123", res.MessageID)

	opts := got["options"].(map[string]interface{})
	assert.Equal(t, false, opts["open_tracking"])
	assert.Equal(t, false, opts["click_tracking"])
}

func TestHTTPGatewaySendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"message":"invalid recipient","code":"1902"}]}`))
	}))
	defer srv.Close()

	g := NewHTTPGateway("test-key", srv.URL)
	res, err := g.SendEmail(context.Background(), OutboundMessage{To: "bad"})
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, "invalid recipient", res.Reason)
}
