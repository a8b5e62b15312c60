package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobvert/jobvert/internal/domain"
)

func usageFixture() []domain.PlanUsage {
	tiers := domain.ListTiers()
	return []domain.PlanUsage{
		domain.NewPlanUsage(tiers[0], 1, 1),
		domain.NewPlanUsage(tiers[1], 3, 1),
		domain.NewPlanUsage(tiers[2], 0, 0),
	}
}

func TestQuotaHandler_AnonymousGetsEmptyUsage(t *testing.T) {
	h := NewQuotaHandler(&stubQuotaService{}, &stubCompanyService{}, testLogger())

	rec := doRequest(h.HandleGetQuota, mustNewRequest(t, http.MethodGet, "/api/subscription/quota", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		PlanUsage []domain.PlanUsage `json:"planUsage"`
		Selection *domain.Selection  `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.PlanUsage)
	assert.Empty(t, resp.PlanUsage)
	assert.Nil(t, resp.Selection)
}

func TestQuotaHandler_NoCompanyGetsEmptyUsage(t *testing.T) {
	companies := &stubCompanyService{err: domain.NotFound("", "company", "x")}
	h := NewQuotaHandler(&stubQuotaService{}, companies, testLogger())

	r := withUser(mustNewRequest(t, http.MethodGet, "/api/subscription/quota", nil), &domain.User{ID: uuid.New()})
	rec := doRequest(h.HandleGetQuota, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		PlanUsage []domain.PlanUsage `json:"planUsage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.PlanUsage)
}

func TestQuotaHandler_ReturnsUsageAndSelection(t *testing.T) {
	lastUsed := domain.PlanArbuste
	company := &domain.Company{ID: uuid.New(), LastUsedListingPlan: &lastUsed}
	h := NewQuotaHandler(&stubQuotaService{usage: usageFixture()}, &stubCompanyService{company: company}, testLogger())

	r := withUser(mustNewRequest(t, http.MethodGet, "/api/subscription/quota", nil), &domain.User{ID: uuid.New()})
	rec := doRequest(h.HandleGetQuota, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		PlanUsage []domain.PlanUsage `json:"planUsage"`
		Selection *domain.Selection  `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.PlanUsage, 3)
	assert.Equal(t, domain.PlanBonsai, resp.PlanUsage[0].Plan)

	// Arbuste is last used and still has capacity.
	require.NotNil(t, resp.Selection)
	assert.Equal(t, domain.PlanArbuste, resp.Selection.Plan)
	assert.Equal(t, domain.ReasonLastUsed, resp.Selection.Reason)
}

func TestQuotaHandler_ListPlans(t *testing.T) {
	h := NewQuotaHandler(&stubQuotaService{}, &stubCompanyService{}, testLogger())

	rec := doRequest(h.HandleListPlans, mustNewRequest(t, http.MethodGet, "/api/plans", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Plans []planResponse `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Plans, 3)
	assert.Equal(t, domain.PlanBonsai, resp.Plans[0].Name)
	assert.Equal(t, 1, resp.Plans[0].BundleSize)
	assert.Equal(t, 30, resp.Plans[0].DurationDays)
	assert.Equal(t, 79, resp.Plans[0].PriceMonthly)
	assert.Equal(t, domain.PlanForet, resp.Plans[2].Name)
	assert.Equal(t, 10, resp.Plans[2].BundleSize)
}
