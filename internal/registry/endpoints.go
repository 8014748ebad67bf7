package registry

// API endpoints for the bundled protocol adapters.
const (
	LiFiBaseURL    = "https://li.quest/v1"
	BungeeBaseURL  = "https://public-backend.bungee.exchange/api/v1"
	OneInchBaseURL = "https://api.1inch.dev"
	ZeroExBaseURL  = "https://api.0x.org"
)
