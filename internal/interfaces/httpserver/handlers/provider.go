package handlers

// Provider holds all HTTP handlers.
type Provider struct {
	Call *CallHandler
}

// NewProvider creates a new handler provider.
func NewProvider(callService CallService) *Provider {
	return &Provider{
		Call: NewCallHandler(callService),
	}
}
