package domain

// ProviderName identifies one of the configured upstream AI vendors.
type ProviderName string

const (
	ProviderVendorA ProviderName = "VENDOR_A"
	ProviderVendorB ProviderName = "VENDOR_B"
)

// Agent is a per-tenant reusable configuration: prompt, providers, tools,
// and generation knobs.
type Agent struct {
	ID                string
	TenantID          string
	Name              string
	Description       string
	PrimaryProvider   ProviderName
	FallbackProvider  *ProviderName
	SystemPrompt      string
	Temperature       float64
	MaxTokens         int
	EnabledTools      []string
	VoiceEnabled      bool
	VoiceConfig       *JSON
	IsActive          bool
}

// HasTool reports whether name is in the agent's enabled-tools set.
func (a *Agent) HasTool(name string) bool {
	for _, t := range a.EnabledTools {
		if t == name {
			return true
		}
	}
	return false
}

// UsesFallback reports whether a's fallback is configured and distinct from
// the primary provider; a fallback equal to the primary
// means "retry same provider", not a second path.
func (a *Agent) UsesFallback() bool {
	return a.FallbackProvider != nil && *a.FallbackProvider != a.PrimaryProvider
}
