package registry

// seedCatalogue is the built-in responder set. Origin tags are coarse
// provider-jurisdiction labels consumed by bias attribution; keep them stable
// across catalogue updates or historical bias tables stop lining up.
func seedCatalogue() []Descriptor {
	return []Descriptor{
		{ID: "openai/gpt-4o", Name: "GPT-4o", Origin: "US", Tier: TierPremium},
		{ID: "openai/gpt-4o-mini", Name: "GPT-4o Mini", Origin: "US", Tier: TierBudget},
		{ID: "anthropic/claude-sonnet", Name: "Claude Sonnet", Origin: "US", Tier: TierMid},
		{ID: "anthropic/claude-haiku", Name: "Claude Haiku", Origin: "US", Tier: TierBudget},
		{ID: "google/gemini-flash", Name: "Gemini Flash", Origin: "US", Tier: TierFree, Free: true},
		{ID: "meta-llama/llama-3.3-70b", Name: "Llama 3.3 70B", Origin: "US", Tier: TierFree, Free: true},
		{ID: "mistralai/mistral-large", Name: "Mistral Large", Origin: "FR", Tier: TierMid},
		{ID: "mistralai/mistral-small", Name: "Mistral Small", Origin: "FR", Tier: TierFree, Free: true},
		{ID: "deepseek/deepseek-chat", Name: "DeepSeek Chat", Origin: "CN", Tier: TierFree, Free: true},
		{ID: "qwen/qwen-2.5-72b", Name: "Qwen 2.5 72B", Origin: "CN", Tier: TierFree, Free: true},
		{ID: "cohere/command-r-plus", Name: "Command R+", Origin: "CA", Tier: TierMid},
		{ID: "x-ai/grok-2", Name: "Grok 2", Origin: "US", Tier: TierPremium},
	}
}
