package application

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuessDomain(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Apple Inc.", "apple.com"},
		{"Microsoft Corporation", "microsoft.com"},
		{"Enel S.p.A.", "enel.com"},
		{"The Coca-Cola Company", "cocacola.com"},
		{"Unilever PLC", "unilever.com"},
		{"Inc.", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GuessDomain(tt.name))
		})
	}
}

func TestDomainFor(t *testing.T) {
	assert.Equal(t, "apple.com", DomainFor("aapl", "whatever"))
	assert.Equal(t, "enel.com", DomainFor("ENEL.MI", ""))
	assert.Equal(t, "acme.com", DomainFor("ACME", "Acme Holdings Ltd"))
	assert.Empty(t, DomainFor("ZZZZ", ""))
}

func TestLogoResolver_Resolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/apple.com":
			w.WriteHeader(http.StatusOK)
		case "/slow.com":
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	resolver := NewLogoResolver(server.URL+"/", 50*time.Millisecond)
	ctx := context.Background()

	logo := resolver.Resolve(ctx, "AAPL", "")
	require.NotNil(t, logo)
	assert.Equal(t, server.URL+"/apple.com", *logo)

	assert.Nil(t, resolver.Resolve(ctx, "XYZ", "Unknown Widgets Inc"))
	assert.Nil(t, resolver.Resolve(ctx, "SLOW", "Slow Corp"))
	assert.Nil(t, resolver.Resolve(ctx, "ZZZZ", ""))
}

func TestLogoResolver_UnreachableHost(t *testing.T) {
	resolver := NewLogoResolver("http://127.0.0.1:1", 50*time.Millisecond)
	assert.Nil(t, resolver.Resolve(context.Background(), "AAPL", "Apple Inc."))
	assert.Equal(t, "127.0.0.1:1", resolver.Source())
	assert.Equal(t, "logo.clearbit.com", NewLogoResolver("", time.Second).Source())
}
