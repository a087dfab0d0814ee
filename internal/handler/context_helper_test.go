package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/carebridge-api/internal/middleware"
	"github.com/carebridge/carebridge-api/internal/models"
)

func testContext(t *testing.T, target string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c
}

func TestClaimsFromContext(t *testing.T) {
	c := testContext(t, "/shifts")
	assert.Nil(t, claimsFromContext(c))

	c.Set(middleware.ContextUserKey, "not-claims")
	assert.Nil(t, claimsFromContext(c))

	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleSupportWorker})
	claims := claimsFromContext(c)
	require.NotNil(t, claims)
	assert.Equal(t, "u1", claims.UserID)
}

func TestPageParamsDefaults(t *testing.T) {
	page, size := pageParams(testContext(t, "/goals"))
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)

	page, size = pageParams(testContext(t, "/goals?page=3&page_size=50"))
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, size)

	page, size = pageParams(testContext(t, "/goals?page=-1&page_size=abc"))
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)
}

func TestQueryTimeAcceptsBothLayouts(t *testing.T) {
	ts := queryTime(testContext(t, "/shifts?date_from=2026-03-01T09:00:00Z"), "date_from")
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), *ts)

	ts = queryTime(testContext(t, "/shifts?date_from=2026-03-01"), "date_from")
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *ts)

	assert.Nil(t, queryTime(testContext(t, "/shifts?date_from=yesterday"), "date_from"))
	assert.Nil(t, queryTime(testContext(t, "/shifts"), "date_from"))
}

func TestQueryBool(t *testing.T) {
	val := queryBool(testContext(t, "/incidents?critical=true"), "critical")
	require.NotNil(t, val)
	assert.True(t, *val)

	assert.Nil(t, queryBool(testContext(t, "/incidents"), "critical"))
	assert.Nil(t, queryBool(testContext(t, "/incidents?critical=maybe"), "critical"))
}
