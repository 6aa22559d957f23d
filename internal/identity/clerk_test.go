package identity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qna-go-api/internal/identity"
)

func TestClerkResolverReturnsProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/user_123", r.URL.Path)
		require.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user_123","first_name":"Ada","last_name":null,"image_url":"https://img/ada.png"}`))
	}))
	defer server.Close()

	resolver, err := identity.NewClerkResolver(identity.ClerkConfig{BaseURL: server.URL, SecretKey: "sk_test", Logger: zerolog.Nop()})
	require.NoError(t, err)

	user, err := resolver.Resolve(context.Background(), "user_123")
	require.NoError(t, err)
	require.Equal(t, "Ada", user.FirstName)
	require.Equal(t, "", user.LastName)
	require.NotNil(t, user.ImageURL)
	require.Equal(t, "https://img/ada.png", *user.ImageURL)
}

func TestClerkResolverMapsMissingUsersToNotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resolver, err := identity.NewClerkResolver(identity.ClerkConfig{BaseURL: server.URL, SecretKey: "sk_test"})
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), "user_gone")
	require.ErrorIs(t, err, identity.ErrUserNotFound)
	require.Equal(t, int32(1), calls.Load())
}

func TestClerkResolverRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"user_1","first_name":"Grace","last_name":"Hopper","image_url":null}`))
	}))
	defer server.Close()

	resolver, err := identity.NewClerkResolver(identity.ClerkConfig{BaseURL: server.URL, SecretKey: "sk_test"})
	require.NoError(t, err)

	user, err := resolver.Resolve(context.Background(), "user_1")
	require.NoError(t, err)
	require.Equal(t, "Hopper", user.LastName)
	require.Nil(t, user.ImageURL)
	require.Equal(t, int32(2), calls.Load())
}
