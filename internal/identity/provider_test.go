package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mdtanvirislamrakib/historivault/internal/model"
)

// サインイン成功時にアイデンティティが返されることを検証
func TestHTTPProviderClient_SignIn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/accounts:signInWithPassword" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("unexpected api key: %s", r.URL.Query().Get("key"))
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body["email"] != "user@example.com" {
			t.Errorf("unexpected email: %v", body["email"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"email":       "user@example.com",
			"displayName": "User",
			"photoUrl":    "https://example.com/photo.png",
		})
	}))
	defer server.Close()

	client := NewHTTPProviderClient(HTTPProviderConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
	})

	ident, err := client.SignIn(context.Background(), "user@example.com", "Secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ident.Email != "user@example.com" {
		t.Errorf("unexpected email: %s", ident.Email)
	}
	if ident.DisplayName != "User" {
		t.Errorf("unexpected display name: %s", ident.DisplayName)
	}
	if ident.PhotoURL == nil || *ident.PhotoURL != "https://example.com/photo.png" {
		t.Errorf("unexpected photo url: %v", ident.PhotoURL)
	}
}

// プロバイダーのエラーメッセージがそのまま伝搬されることを検証
func TestHTTPProviderClient_SignIn_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "INVALID_LOGIN_CREDENTIALS"},
		})
	}))
	defer server.Close()

	client := NewHTTPProviderClient(HTTPProviderConfig{BaseURL: server.URL, APIKey: "k"})

	_, err := client.SignIn(context.Background(), "user@example.com", "wrong")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != "IDENTITY_PROVIDER_ERROR" {
		t.Errorf("unexpected code: %s", apiErr.Code)
	}
	if apiErr.Message != "INVALID_LOGIN_CREDENTIALS" {
		t.Errorf("provider message should pass through, got: %s", apiErr.Message)
	}
}

// プロフィール更新でphotoUrlがリクエストに含まれることを検証
func TestHTTPProviderClient_UpdateProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/accounts:update" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body["displayName"] != "New Name" {
			t.Errorf("unexpected display name: %v", body["displayName"])
		}
		if body["photoUrl"] != "https://example.com/new.png" {
			t.Errorf("unexpected photo url: %v", body["photoUrl"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"email":       "user@example.com",
			"displayName": "New Name",
			"photoUrl":    "https://example.com/new.png",
		})
	}))
	defer server.Close()

	client := NewHTTPProviderClient(HTTPProviderConfig{BaseURL: server.URL, APIKey: "k"})

	photo := "https://example.com/new.png"
	ident, err := client.UpdateProfile(context.Background(), "user@example.com", "New Name", &photo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ident.DisplayName != "New Name" {
		t.Errorf("unexpected display name: %s", ident.DisplayName)
	}
}

// emailが空のレスポンスはエラーになることを検証
func TestHTTPProviderClient_SignUp_EmptyEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	client := NewHTTPProviderClient(HTTPProviderConfig{BaseURL: server.URL, APIKey: "k"})

	_, err := client.SignUp(context.Background(), "user@example.com", "Secret1")
	if err == nil {
		t.Fatal("expected error for empty email")
	}
}
