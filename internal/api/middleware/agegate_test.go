package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAgeGate_ExemptPathsPassWithoutCookie(t *testing.T) {
	gate := AgeGate(okHandler())

	for _, path := range []string{
		"/age-verification",
		"/admin/coupons",
		"/api/coupons/validate",
		"/health",
		"/static/logo.png",
	} {
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, "path %s must be exempt", path)
	}
}

func TestAgeGate_RedirectsWithoutSession(t *testing.T) {
	gate := AgeGate(okHandler())

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/shop", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/age-verification", rec.Header().Get("Location"))
}

func TestAgeGate_EmptyCookieValueStillRedirects(t *testing.T) {
	gate := AgeGate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/shop", nil)
	req.AddCookie(&http.Cookie{Name: AgeSessionCookie, Value: ""})
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestAgeGate_SessionCookiePasses(t *testing.T) {
	gate := AgeGate(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/shop", nil)
	req.AddCookie(&http.Cookie{Name: AgeSessionCookie, Value: "some-session-id"})
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAuth(t *testing.T) {
	guarded := AdminAuth("secret-token")(okHandler())

	t.Run("valid token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/coupons", nil)
		req.Header.Set("Authorization", "Bearer secret-token")
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong token rejected generically", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/coupons", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Unauthorized")
	})

	t.Run("missing header rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/coupons", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unconfigured token denies everything", func(t *testing.T) {
		open := AdminAuth("")(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/admin/coupons", nil)
		req.Header.Set("Authorization", "Bearer ")
		rec := httptest.NewRecorder()
		open.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
