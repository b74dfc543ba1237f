package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"vc-gateway/internal/authority"
	"vc-gateway/internal/issuance"
	issuancehandler "vc-gateway/internal/issuance/handler"
	"vc-gateway/internal/ledger"
	"vc-gateway/internal/platform/health"
	"vc-gateway/internal/reconcile"
	"vc-gateway/internal/stats"
	statshandler "vc-gateway/internal/stats/handler"
)

// cannedDoer answers every authority request with the same response.
type cannedDoer struct {
	status int
	body   string
}

func (d *cannedDoer) Do(_ *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: d.status,
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}, nil
}

type RouterSuite struct {
	suite.Suite
	router http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupSuite() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	authorityClient := authority.New(authority.Config{
		BaseURL: "https://auth.example",
		HTTPClient: &cannedDoer{
			status: 200,
			body:   `{"credentialId":"abc-123","status":"ACCEPTED"}`,
		},
		Logger: log,
	})

	ledgerSvc, err := ledger.New(context.Background(), ledger.NewMemoryStore(),
		ledger.WithLogger(log))
	require.NoError(s.T(), err)

	reconciler := reconcile.New(authorityClient, reconcile.WithLogger(log))
	issuanceSvc := issuance.New(ledgerSvc, reconciler, authorityClient, log)

	s.router = NewRouter(Deps{
		Issuance: issuancehandler.New(issuanceSvc, log),
		Stats:    statshandler.New(stats.New(ledgerSvc)),
		Health:   health.New("test"),
		Logger:   log,
	})
}

func (s *RouterSuite) TestHealthEndpoints() {
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		s.Equal(http.StatusOK, rr.Code, path)
	}
}

func (s *RouterSuite) TestMetricsEndpoint() {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, rr.Code)
}

func (s *RouterSuite) TestRequestIDHeaderSet() {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ledger", nil))
	s.Equal(http.StatusOK, rr.Code)
	s.NotEmpty(rr.Header().Get("X-Request-ID"))
}

func (s *RouterSuite) TestContentTypeEnforcedOnWrites() {
	req := httptest.NewRequest(http.MethodPost, "/api/credential/lookup",
		bytes.NewReader([]byte(`{"transactionId":"tx-1"}`)))
	req.Header.Set("Content-Type", "text/plain")

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	s.Equal(http.StatusUnsupportedMediaType, rr.Code)
}

func (s *RouterSuite) TestLookupThroughFullStack() {
	req := httptest.NewRequest(http.MethodPost, "/api/credential/lookup",
		bytes.NewReader([]byte(`{"transactionId":"tx-router-1"}`)))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	s.Require().Equal(http.StatusOK, rr.Code)

	var result issuance.LookupResult
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &result))
	s.Equal("abc-123", result.Record.CID)
	s.True(result.Record.Collected)

	statsReq := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	statsRR := httptest.NewRecorder()
	s.router.ServeHTTP(statsRR, statsReq)
	s.Require().Equal(http.StatusOK, statsRR.Code)

	var snap stats.Snapshot
	s.Require().NoError(json.Unmarshal(statsRR.Body.Bytes(), &snap))
	s.GreaterOrEqual(snap.Total, 1)
}
