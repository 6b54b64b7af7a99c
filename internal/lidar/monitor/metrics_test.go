package monitor

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rangeimage/internal/testutil"
)

func TestWebServer_Metrics(t *testing.T) {
	ws := newServer(t, WebServerConfig{})
	require.NoError(t, ws.Consume(testImage(t)))

	code, _, _ := get(ws, "/health")
	testutil.AssertStatusCode(t, code, http.StatusOK)
	code, _, _ = get(ws, "/api/range-image/snapshots")
	testutil.AssertStatusCode(t, code, http.StatusServiceUnavailable)

	for _, path := range []string{"/wp-login.php", "/.env", "/nope/1"} {
		code, _, _ = get(ws, path)
		testutil.AssertStatusCode(t, code, http.StatusNotFound)
	}

	code, body, _ := get(ws, "/metrics")
	testutil.AssertStatusCode(t, code, http.StatusOK)
	testutil.AssertBodyContains(t, body, "rangeimage_images_consumed_total 1")
	testutil.AssertBodyContains(t, body, `rangeimage_last_build{stat="written"} 3`)
	testutil.AssertBodyContains(t, body, `rangeimage_last_build{stat="points"} 3`)
	testutil.AssertBodyContains(t, body, `rangeimage_http_requests_total{code="200",method="GET",path="/health"} 1`)
	testutil.AssertBodyContains(t, body, `rangeimage_http_requests_total{code="503",method="GET",path="/api/range-image/snapshots"} 1`)
	testutil.AssertBodyContains(t, body, `rangeimage_http_requests_total{code="404",method="GET",path="other"} 3`)
	assert.NotContains(t, body, "wp-login")
	assert.NotContains(t, body, "/nope/1")
}

func TestServerMetrics_Independent(t *testing.T) {
	a := newServer(t, WebServerConfig{})
	b := newServer(t, WebServerConfig{})
	require.NoError(t, a.Consume(testImage(t)))

	_, body, _ := get(b, "/metrics")
	testutil.AssertBodyContains(t, body, "rangeimage_images_consumed_total 0")
}
