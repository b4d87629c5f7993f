package services

type ModelTier string

const (
	TierFast     ModelTier = "fast"
	TierBalanced ModelTier = "balanced"
	TierPowerful ModelTier = "powerful"
)

// DefaultModelID is used when a chat request does not name a model.
const DefaultModelID = "gpt-4o"

type ModelConfig struct {
	ID               string       `json:"id"`
	Provider         ProviderKind `json:"provider"`
	VendorModelID    string       `json:"-"`
	Tier             ModelTier    `json:"tier"`
	MaxTokens        int          `json:"maxTokens"`
	InputPricePer1K  float64      `json:"inputPricePer1k"`
	OutputPricePer1K float64      `json:"outputPricePer1k"`
}

// Cost prices a single exchange with the catalog rates, never with a vendor-reported amount.
func (m ModelConfig) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*m.InputPricePer1K + float64(outputTokens)/1000*m.OutputPricePer1K
}

var defaultModelCatalog = []ModelConfig{
	{ID: "gpt-4o-mini", Provider: ProviderOpenAI, VendorModelID: "gpt-4o-mini", Tier: TierFast, MaxTokens: 4096, InputPricePer1K: 0.00015, OutputPricePer1K: 0.0006},
	{ID: "gpt-4o", Provider: ProviderOpenAI, VendorModelID: "gpt-4o", Tier: TierBalanced, MaxTokens: 4096, InputPricePer1K: 0.0025, OutputPricePer1K: 0.01},
	{ID: "claude-3-5-haiku", Provider: ProviderAnthropic, VendorModelID: "claude-3-5-haiku-20241022", Tier: TierFast, MaxTokens: 4096, InputPricePer1K: 0.0008, OutputPricePer1K: 0.004},
	{ID: "claude-3-5-sonnet", Provider: ProviderAnthropic, VendorModelID: "claude-3-5-sonnet-20241022", Tier: TierBalanced, MaxTokens: 4096, InputPricePer1K: 0.003, OutputPricePer1K: 0.015},
	{ID: "claude-3-opus", Provider: ProviderAnthropic, VendorModelID: "claude-3-opus-20240229", Tier: TierPowerful, MaxTokens: 4096, InputPricePer1K: 0.015, OutputPricePer1K: 0.075},
	{ID: "gemini-1.5-flash", Provider: ProviderGoogle, VendorModelID: "gemini-1.5-flash", Tier: TierFast, MaxTokens: 8192, InputPricePer1K: 0.000075, OutputPricePer1K: 0.0003},
	{ID: "gemini-1.5-pro", Provider: ProviderGoogle, VendorModelID: "gemini-1.5-pro", Tier: TierBalanced, MaxTokens: 8192, InputPricePer1K: 0.00125, OutputPricePer1K: 0.005},
}

// ModelRegistry is a static, ordered catalog of public model identifiers.
type ModelRegistry struct {
	models []ModelConfig
	byID   map[string]ModelConfig
}

func NewModelRegistry() *ModelRegistry {
	return NewModelRegistryFrom(defaultModelCatalog)
}

func NewModelRegistryFrom(catalog []ModelConfig) *ModelRegistry {
	r := &ModelRegistry{
		models: make([]ModelConfig, len(catalog)),
		byID:   make(map[string]ModelConfig, len(catalog)),
	}
	copy(r.models, catalog)
	for _, m := range catalog {
		r.byID[m.ID] = m
	}
	return r
}

func (r *ModelRegistry) Resolve(modelID string) (ModelConfig, error) {
	m, ok := r.byID[modelID]
	if !ok {
		return ModelConfig{}, &ModelError{ID: modelID, Err: ErrUnknownModel}
	}
	return m, nil
}

// ListAvailable keeps catalog order and drops every model whose provider is not configured.
func (r *ModelRegistry) ListAvailable(configured func(ProviderKind) bool) []ModelConfig {
	available := make([]ModelConfig, 0, len(r.models))
	for _, m := range r.models {
		if configured(m.Provider) {
			available = append(available, m)
		}
	}
	return available
}
