package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
)

func TestValidateJWT(t *testing.T) {
	token, err := NewToken("u1", "user_u1", "user")
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	claims, err := ValidateJWT("Bearer " + token)
	if err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != "user" {
		t.Errorf("claims = %q/%q, want u1/user", claims.UserID, claims.Role)
	}

	for _, header := range []string{
		"",
		token,
		"Basic " + token,
		"Bearer not-a-jwt",
	} {
		if _, err := ValidateJWT(header); err == nil {
			t.Errorf("header %q accepted, want error", header)
		}
	}
}

func TestAuthenticateRejectsMalformedHeader(t *testing.T) {
	handler := Authenticate(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		t.Error("handler reached with a bad token")
	})

	for _, header := range []string{"garbage", "Bearer bad.token.here"} {
		r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		r.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		handler(w, r, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status %d, want 401", header, w.Code)
		}
	}
}
