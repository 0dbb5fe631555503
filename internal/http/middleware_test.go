package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0123456789"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func authTestRouter() (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	var seenUserID string
	router.GET("/protected", JWTAuthMiddleware(testJWTSecret), func(c *gin.Context) {
		seenUserID = c.GetString("userID")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router, &seenUserID
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	router, _ := authTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestJWTAuthRejectsBadToken(t *testing.T) {
	router, _ := authTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestJWTAuthPrefersUIDClaim(t *testing.T) {
	router, seenUserID := authTestRouter()

	token := signToken(t, jwt.MapClaims{"uid": "user-42", "sub": "ignored"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if *seenUserID != "user-42" {
		t.Fatalf("expected uid claim, got %q", *seenUserID)
	}
}

func TestJWTAuthFallsBackToSubClaim(t *testing.T) {
	router, seenUserID := authTestRouter()

	token := signToken(t, jwt.MapClaims{"sub": "user-7"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if *seenUserID != "user-7" {
		t.Fatalf("expected sub claim, got %q", *seenUserID)
	}
}

func TestInternalAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/internal", InternalAuthMiddleware("internal-secret-value-0123456789abcdef"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal", nil)
	req.Header.Set("X-Internal-Secret", "wrong")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: expected 401, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/internal", nil)
	req.Header.Set("X-Internal-Secret", "internal-secret-value-0123456789abcdef")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("correct secret: expected 200, got %d", w.Code)
	}
}

func TestRateLimiterEnforcesWindow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("user-1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("user-1") {
		t.Fatal("fourth request should be rejected")
	}
	if !rl.Allow("user-2") {
		t.Fatal("limits must be per key")
	}
}

func TestRateLimiterSlidesWindow(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)

	if !rl.Allow("user-1") {
		t.Fatal("first request should pass")
	}
	if rl.Allow("user-1") {
		t.Fatal("second request inside the window should be rejected")
	}

	time.Sleep(30 * time.Millisecond)
	if !rl.Allow("user-1") {
		t.Fatal("request after the window should pass")
	}
}
