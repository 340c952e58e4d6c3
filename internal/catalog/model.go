package catalog

// ProviderType identifies which execution strategy serves a model.
type ProviderType string

const (
	TypeRemoteAPI ProviderType = "remote-api"
	TypeProxy     ProviderType = "proxy"
	TypeLocal     ProviderType = "local"
	TypeMock      ProviderType = "mock"
	TypeHostedUI  ProviderType = "hosted-ui"
)

// Known reports whether t is a recognized provider type. Unknown types are
// not an error anywhere in the system; they resolve to the mock adapter.
func (t ProviderType) Known() bool {
	switch t {
	case TypeRemoteAPI, TypeProxy, TypeLocal, TypeMock, TypeHostedUI:
		return true
	}
	return false
}

// Endpoint is one candidate server in a proxy failover ladder.
type Endpoint struct {
	BaseURL string `json:"base_url"`
	// KeyPrefix is prepended to the stored credential when the
	// credential does not already carry it (e.g. "sk-or-" for
	// OpenRouter).
	KeyPrefix string            `json:"key_prefix,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	// ModelMap remaps the logical model id to this endpoint's model name.
	ModelMap map[string]string `json:"model_map,omitempty"`
}

// ProviderConfig holds provider-type-specific settings. Fields that do not
// apply to a descriptor's type are absent and ignored.
type ProviderConfig struct {
	// Provider names the credential namespace, e.g. "openai" resolves
	// OPENAI_API_KEY first.
	Provider string `json:"provider,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
	// Model overrides the wire-level model name when it differs from the id.
	Model   string            `json:"model,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	// KeyPrefix applies to the primary endpoint of proxy models the
	// same way Endpoint.KeyPrefix applies to an alternative.
	KeyPrefix string `json:"key_prefix,omitempty"`
	// Endpoints are the alternative servers tried by the proxy adapter,
	// in configured order.
	Endpoints []Endpoint `json:"endpoints,omitempty"`
	// PrimaryIncompatible skips the primary endpoint for models the
	// primary provider does not serve.
	PrimaryIncompatible bool `json:"primary_incompatible,omitempty"`
	// Path is the local model weights location. A local descriptor is
	// usable only while this path exists.
	Path string `json:"path,omitempty"`
	// Quantization selects the local quantization mode, e.g. "q4_0".
	// Applied only when hardware acceleration is available.
	Quantization string `json:"quantization,omitempty"`
}

// Descriptor identifies one analyzable model in the catalog.
type Descriptor struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Type        ProviderType   `json:"type"`
	Description string         `json:"description,omitempty"`
	IsDefault   bool           `json:"is_default"`
	Config      ProviderConfig `json:"config"`
}

// Update holds the partial fields of a catalog update. Nil pointers leave
// the corresponding descriptor field untouched.
type Update struct {
	DisplayName *string         `json:"display_name,omitempty"`
	Type        *ProviderType   `json:"type,omitempty"`
	Description *string         `json:"description,omitempty"`
	IsDefault   *bool           `json:"is_default,omitempty"`
	Config      *ProviderConfig `json:"config,omitempty"`
}
