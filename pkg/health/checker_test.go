package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPEndpointChecker_HealthyEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	check := HTTPEndpointChecker(server.URL)
	assert.NoError(t, check())
}

func TestHTTPEndpointChecker_UnhealthyEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	check := HTTPEndpointChecker(server.URL)
	err := check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestHTTPEndpointChecker_UnreachableEndpoint(t *testing.T) {
	check := HTTPEndpointChecker("http://127.0.0.1:1/healthz")
	assert.Error(t, check())
}

func TestChainChecker(t *testing.T) {
	valid := ChainChecker(func() bool { return true })
	assert.NoError(t, valid())

	compromised := ChainChecker(func() bool { return false })
	err := compromised()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain validation failed")
}

func TestChainChecker_ReEvaluatesEachCall(t *testing.T) {
	healthy := true
	check := ChainChecker(func() bool { return healthy })

	assert.NoError(t, check())
	healthy = false
	assert.Error(t, check())
}
