package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ballastfund/ballast/internal/domain"
	"github.com/ballastfund/ballast/internal/events"
	"github.com/ballastfund/ballast/internal/manager"
	"github.com/ballastfund/ballast/internal/modules/audit"
	"github.com/ballastfund/ballast/internal/modules/registry"
	"github.com/ballastfund/ballast/internal/modules/risk"
	"github.com/ballastfund/ballast/internal/modules/strategies"
)

const (
	testFund  = "fund"
	testOwner = "owner"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := zerolog.Nop()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	auditRepo := audit.NewRepository(db, log)
	require.NoError(t, auditRepo.InitSchema())
	riskRepo := risk.NewSnapshotRepository(db, log)
	require.NoError(t, riskRepo.InitSchema())
	registryRepo := registry.NewRepository(db, log)
	require.NoError(t, registryRepo.InitSchema())

	require.NoError(t, registryRepo.Upsert(registry.Implementation{
		ID: "impl-a", Active: true, Liquid: true, Assets: []domain.Asset{"USDC"},
	}))
	require.NoError(t, registryRepo.Upsert(registry.Implementation{
		ID: "impl-b", Active: true, Liquid: true, Assets: []domain.Asset{"USDC"},
	}))

	bus := events.NewBus(log)
	audit.NewRecorder(auditRepo, bus, log)

	mgr := manager.New(manager.Config{
		Asset:      "USDC",
		Registry:   registry.NewService(registryRepo, log),
		RiskEngine: risk.NewEngine(riskRepo, log),
		TiltParams: domain.TiltParameters{MaxTiltBps: 1500, MaxStepBps: 1000, TiltCooldown: 6 * time.Hour},
		BandParams: domain.RebalanceBandParameters{
			RebalanceBandBps: 200, MinRebalanceBandBps: 50, MaxRebalanceBandBps: 1000,
			BandUpdateCooldown: 24 * time.Hour,
		},
		Fund:  testFund,
		Owner: testOwner,
	}, bus, log)

	require.NoError(t, mgr.Initialize(
		[]domain.Strategy{
			strategies.NewSimVault("vault-a", "impl-a"),
			strategies.NewSimVault("vault-b", "impl-b"),
		},
		[]uint32{7000, 3000},
	))

	return New(Config{Port: 0}, mgr, auditRepo, riskRepo, registryRepo, bus, log)
}

func doRequest(t *testing.T, s *Server, method, path, callerPrincipal string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if callerPrincipal != "" {
		req.Header.Set(CallerHeader, callerPrincipal)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestGetWeights(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/manager/weights", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Asset      string                   `json:"asset"`
		BandBps    uint32                   `json:"band_bps"`
		Strategies []domain.StrategyWeights `json:"strategies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "USDC", resp.Asset)
	assert.Equal(t, uint32(200), resp.BandBps)
	require.Len(t, resp.Strategies, 2)
	assert.Equal(t, uint32(7000), resp.Strategies[0].EffectiveBps)
}

func TestSetTilt(t *testing.T) {
	s := newTestServer(t)

	t.Run("owner can tilt", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/manager/tilt", testOwner,
			map[string]any{"tilt_bps": []int32{1000, -1000}, "rationale": "shift"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("cooldown maps to 429", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/manager/tilt", testOwner,
			map[string]any{"tilt_bps": []int32{500, -500}})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("non-owner maps to 403", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodPost, "/api/manager/tilt", testFund,
			map[string]any{"tilt_bps": []int32{500, -500}})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestAllocateAndTotalAssets(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/fund/allocate", testFund,
		map[string]any{"amount": 1000})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/manager/total-assets", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_assets":1000`)
}

func TestAllocate_NonFundForbidden(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/fund/allocate", testOwner,
		map[string]any{"amount": 1000})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeallocate(t *testing.T) {
	s := newTestServer(t)

	doRequest(t, s, http.MethodPost, "/api/fund/allocate", testFund,
		map[string]any{"amount": 1000})

	rec := doRequest(t, s, http.MethodPost, "/api/fund/deallocate", testFund,
		map[string]any{"amount": 400})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"freed":400`)
}

func TestRebalance_ZeroBudgetIsBadRequest(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/manager/rebalance", testOwner,
		map[string]any{"max_assets_to_move": 0, "max_legs": 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmergencyStop(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/manager/emergency-stop", testOwner, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/manager/emergency-stop", testFund, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"emergency_stopped":true`)
}

func TestOwnerTransferFlow(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/manager/owner/transfer", testOwner,
		map[string]any{"candidate": "new-owner"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/manager/owner/accept", "stranger", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/manager/owner/accept", "new-owner", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"owner":"new-owner"`)
}

func TestAuditEventsEndpoint(t *testing.T) {
	s := newTestServer(t)

	doRequest(t, s, http.MethodPost, "/api/fund/allocate", testFund,
		map[string]any{"amount": 500})

	rec := doRequest(t, s, http.MethodGet, "/api/audit/events?type=allocation_executed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"allocation_executed"`)
}

func TestRiskEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/risk/current", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tier"`)

	rec = doRequest(t, s, http.MethodGet, "/api/risk/history?limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRegistryEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/registry/implementations", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"impl-a"`)
	assert.Contains(t, rec.Body.String(), `"impl-b"`)
}

func TestDriftEndpoint(t *testing.T) {
	s := newTestServer(t)

	doRequest(t, s, http.MethodPost, "/api/fund/allocate", testFund,
		map[string]any{"amount": 1000})

	rec := doRequest(t, s, http.MethodGet, "/api/manager/drift", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"drift_bps"`)
}
