package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestGetLoginURL_ContainsRequiredParams(t *testing.T) {
	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "client-123",
		RedirectURL: "https://example.com/auth/google/callback",
	})

	loginURL := p.GetLoginURL("state-abc")

	parsed, err := url.Parse(loginURL)
	if err != nil {
		t.Fatalf("failed to parse login URL: %v", err)
	}

	q := parsed.Query()
	if q.Get("client_id") != "client-123" {
		t.Errorf("client_id = %q, want %q", q.Get("client_id"), "client-123")
	}
	if q.Get("state") != "state-abc" {
		t.Errorf("state = %q, want %q", q.Get("state"), "state-abc")
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q, want %q", q.Get("response_type"), "code")
	}
	if !strings.Contains(q.Get("scope"), "email") {
		t.Errorf("scope should contain email: %q", q.Get("scope"))
	}
	// 毎回アカウント選択画面を表示すること
	if q.Get("prompt") != "select_account" {
		t.Errorf("prompt = %q, want %q", q.Get("prompt"), "select_account")
	}
}

func TestExchangeCode_Success(t *testing.T) {
	var tokenReqBody url.Values

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse token request form: %v", err)
		}
		tokenReqBody = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "token-xyz",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-xyz" {
			t.Errorf("Authorization header = %q, want %q", got, "Bearer token-xyz")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"sub":   "google-user-123",
			"email": "runner@example.com",
			"name":  "Test Runner",
		})
	}))
	defer userInfoServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:     "client-123",
		ClientSecret: "secret-456",
		RedirectURL:  "https://example.com/callback",
		TokenURL:     tokenServer.URL,
		UserInfoURL:  userInfoServer.URL,
	})

	info, err := p.ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}

	if info.ProviderUserID != "google-user-123" {
		t.Errorf("ProviderUserID = %q, want %q", info.ProviderUserID, "google-user-123")
	}
	if info.Email != "runner@example.com" {
		t.Errorf("Email = %q, want %q", info.Email, "runner@example.com")
	}
	if info.DisplayName != "Test Runner" {
		t.Errorf("DisplayName = %q, want %q", info.DisplayName, "Test Runner")
	}
	if info.Provider != "google" {
		t.Errorf("Provider = %q, want %q", info.Provider, "google")
	}

	// トークン交換リクエストの内容検証
	if tokenReqBody.Get("code") != "auth-code" {
		t.Errorf("token request code = %q, want %q", tokenReqBody.Get("code"), "auth-code")
	}
	if tokenReqBody.Get("grant_type") != "authorization_code" {
		t.Errorf("grant_type = %q, want %q", tokenReqBody.Get("grant_type"), "authorization_code")
	}
}

func TestExchangeCode_TokenEndpointError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer tokenServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		TokenURL: tokenServer.URL,
	})

	if _, err := p.ExchangeCode(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected error for token endpoint failure")
	}
}

func TestExchangeCode_EmptyAccessToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token_type": "Bearer"})
	}))
	defer tokenServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		TokenURL: tokenServer.URL,
	})

	if _, err := p.ExchangeCode(context.Background(), "auth-code"); err == nil {
		t.Fatal("expected error for empty access token")
	}
}

func TestExchangeCode_UserInfoEndpointError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "token-xyz"})
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer userInfoServer.Close()

	p := NewGoogleOAuthProvider(GoogleOAuthConfig{
		TokenURL:    tokenServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	if _, err := p.ExchangeCode(context.Background(), "auth-code"); err == nil {
		t.Fatal("expected error for user info endpoint failure")
	}
}
