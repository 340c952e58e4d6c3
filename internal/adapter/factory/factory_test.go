package factory

import (
	"testing"
	"time"

	"github.com/everstacklabs/reviewd/internal/catalog"
	"github.com/everstacklabs/reviewd/internal/httpclient"
	"github.com/everstacklabs/reviewd/internal/prompt"
)

type staticKeys map[string]string

func (k staticKeys) Key(provider string) string { return k[provider] }

func newFactory() *Factory {
	return New(staticKeys{}, httpclient.New(), prompt.NewBuilder(""), "http://127.0.0.1:11434", time.Minute)
}

func TestForCachesInstances(t *testing.T) {
	f := newFactory()
	d := catalog.Descriptor{
		ID:     "gpt-4o",
		Type:   catalog.TypeRemoteAPI,
		Config: catalog.ProviderConfig{Provider: "openai", BaseURL: "https://api.openai.com/v1"},
	}

	a1, err := f.For(d)
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	a2, err := f.For(d)
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if a1 != a2 {
		t.Fatal("second For built a new instance")
	}
}

func TestEvictForcesRebuild(t *testing.T) {
	f := newFactory()
	d := catalog.Descriptor{ID: "mock-model", Type: catalog.TypeMock}

	a1, _ := f.For(d)
	f.Evict(d.ID)
	a2, _ := f.For(d)
	if a1 == a2 {
		t.Fatal("For returned the evicted instance")
	}
}

func TestUnknownTypeFallsBackToMock(t *testing.T) {
	f := newFactory()
	a, err := f.For(catalog.Descriptor{ID: "weird", Type: catalog.ProviderType("quantum")})
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	if a.Name() != "mock:weird" {
		t.Fatalf("Name() = %q, want mock fallback", a.Name())
	}
}

func TestPerTypeNames(t *testing.T) {
	f := newFactory()
	cases := []struct {
		d    catalog.Descriptor
		want string
	}{
		{catalog.Descriptor{ID: "gpt-4o", Type: catalog.TypeRemoteAPI, Config: catalog.ProviderConfig{Provider: "openai", BaseURL: "https://api.openai.com/v1"}}, "remote:gpt-4o"},
		{catalog.Descriptor{ID: "deepseek-v3", Type: catalog.TypeProxy}, "proxy:deepseek-v3"},
		{catalog.Descriptor{ID: "claude-3-7", Type: catalog.TypeHostedUI, Config: catalog.ProviderConfig{BaseURL: "https://example.hf.space"}}, "hosted:claude-3-7"},
		{catalog.Descriptor{ID: "mistral-7b", Type: catalog.TypeLocal, Config: catalog.ProviderConfig{Path: "/tmp/none", Quantization: "q4_0"}}, "local:mistral-7b"},
		{catalog.Descriptor{ID: "mock-model", Type: catalog.TypeMock}, "mock:mock-model"},
	}
	for _, c := range cases {
		a, err := f.For(c.d)
		if err != nil {
			t.Fatalf("For(%s): %v", c.d.ID, err)
		}
		if a.Name() != c.want {
			t.Errorf("Name() = %q, want %q", a.Name(), c.want)
		}
	}
}

func TestMockSharedInstance(t *testing.T) {
	f := newFactory()
	if f.Mock() != f.Mock() {
		t.Fatal("Mock() returned different instances")
	}
}
