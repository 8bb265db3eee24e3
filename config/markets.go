package config

// Market is a metro market served by the dashboard map view.
type Market struct {
	Name      string    `json:"name"`
	Center    []float64 `json:"center"`
	ZoomLevel int       `json:"zoom_level"`
}

// SupportedMarkets is the list of metro markets the frontend can focus
// on.
var SupportedMarkets = []Market{
	{
		Name:      "austin",
		Center:    []float64{30.2672, -97.7431},
		ZoomLevel: 11,
	},
	{
		Name:      "dallas",
		Center:    []float64{32.7767, -96.7970},
		ZoomLevel: 11,
	},
	{
		Name:      "houston",
		Center:    []float64{29.7604, -95.3698},
		ZoomLevel: 11,
	},
	// Add more markets here as needed
}

// GetMarketNames returns a list of supported market names
func GetMarketNames() []string {
	names := make([]string, len(SupportedMarkets))
	for i, market := range SupportedMarkets {
		names[i] = market.Name
	}
	return names
}

// GetMarketByName returns a market configuration by name
func GetMarketByName(name string) *Market {
	for _, market := range SupportedMarkets {
		if market.Name == name {
			return &market
		}
	}
	return nil
}
