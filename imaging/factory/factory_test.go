package factory

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paintbox-ai/paintbox/imaging/providers"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantEp   providers.Endpoint
		wantCred string
	}{
		{
			name:     "google host detected",
			opts:     Options{APIKey: "k", BaseURL: "https://generativelanguage.googleapis.com"},
			wantEp:   providers.Endpoint{Flavor: providers.FlavorGemini, Auth: providers.AuthGoogleKey},
			wantCred: "k",
		},
		{
			name:     "openai host detected",
			opts:     Options{APIKey: "sk-1", BaseURL: "https://api.openai.com"},
			wantEp:   providers.Endpoint{Flavor: providers.FlavorOpenAI, Auth: providers.AuthBearer},
			wantCred: "sk-1",
		},
		{
			name: "explicit flavor override",
			opts: Options{
				APIKey:  "k",
				BaseURL: "https://proxy.example.com",
				Flavor:  providers.FlavorOpenAI,
			},
			wantEp:   providers.Endpoint{Flavor: providers.FlavorOpenAI, Auth: providers.AuthGoogleKey},
			wantCred: "k",
		},
		{
			name: "explicit auth override",
			opts: Options{
				APIKey:  "k",
				BaseURL: "https://generativelanguage.googleapis.com",
				Auth:    providers.AuthRaw,
			},
			wantEp:   providers.Endpoint{Flavor: providers.FlavorGemini, Auth: providers.AuthRaw},
			wantCred: "k",
		},
		{
			name: "bearer token forces bearer auth",
			opts: Options{
				APIKey:      "ignored",
				BearerToken: "tok",
				BaseURL:     "https://generativelanguage.googleapis.com",
			},
			wantEp:   providers.Endpoint{Flavor: providers.FlavorGemini, Auth: providers.AuthBearer},
			wantCred: "tok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, cred, build := Resolve(tt.opts)
			assert.Equal(t, tt.wantEp, ep)
			assert.Equal(t, tt.wantCred, cred)

			r, _ := http.NewRequest(http.MethodPost, "http://example.com", nil)
			build(r, cred)
			switch tt.wantEp.Auth {
			case providers.AuthGoogleKey:
				assert.Equal(t, cred, r.Header.Get("x-goog-api-key"))
			case providers.AuthBearer:
				assert.Equal(t, "Bearer "+cred, r.Header.Get("Authorization"))
			case providers.AuthRaw:
				assert.Equal(t, cred, r.Header.Get("Authorization"))
			case providers.AuthAzureKey:
				assert.Equal(t, cred, r.Header.Get("api-key"))
			}
		})
	}
}

func TestNew(t *testing.T) {
	p, err := New(Options{APIKey: "k", BaseURL: "https://generativelanguage.googleapis.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())

	p, err = New(Options{APIKey: "sk-1", BaseURL: "https://api.openai.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai-compat", p.Name())
}

func TestNew_UnknownHostUsesGeminiShape(t *testing.T) {
	p, err := New(Options{APIKey: "k", BaseURL: "https://proxy.internal.example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())
}
