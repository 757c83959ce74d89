package airq

// Category returns the conventional AQI band name for a value.
func Category(aqi float64) string {
	switch {
	case aqi <= 50:
		return "Good"
	case aqi <= 100:
		return "Moderate"
	case aqi <= 150:
		return "Unhealthy for Sensitive Groups"
	case aqi <= 200:
		return "Unhealthy"
	case aqi <= 300:
		return "Very Unhealthy"
	default:
		return "Hazardous"
	}
}

// HealthTips returns recommendations for the AQI band the value falls in.
func HealthTips(aqi float64) []string {
	switch {
	case aqi <= 50:
		return []string{
			"Air quality is excellent. Perfect for outdoor activities!",
			"Enjoy your time outside with no restrictions.",
			"Great day for exercise and outdoor sports.",
		}
	case aqi <= 100:
		return []string{
			"Air quality is acceptable for most people.",
			"Unusually sensitive individuals should consider limiting prolonged outdoor exertion.",
			"Good day for outdoor activities with minor precautions.",
		}
	case aqi <= 150:
		return []string{
			"Sensitive groups should reduce prolonged outdoor exertion.",
			"Children and adults with respiratory issues should take breaks during outdoor activities.",
			"Consider wearing a mask if you're in a sensitive group.",
		}
	case aqi <= 200:
		return []string{
			"Everyone should reduce prolonged outdoor exertion.",
			"Wear a mask when going outside.",
			"Keep windows closed and use air purifiers indoors.",
			"Reschedule outdoor activities if possible.",
		}
	case aqi <= 300:
		return []string{
			"Avoid all outdoor physical activities.",
			"Everyone should wear N95 masks outdoors.",
			"Keep windows and doors closed.",
			"Use HEPA air purifiers indoors.",
			"Sensitive groups should remain indoors.",
		}
	default:
		return []string{
			"Health alert: Stay indoors and avoid all outdoor activities.",
			"Use N95 or higher-grade masks if you must go outside.",
			"Seal windows and doors. Use multiple air purifiers.",
			"Seek medical attention if you experience symptoms.",
			"Follow local emergency guidelines.",
		}
	}
}

// DefaultLocations are the cities seeded into an empty location set at
// startup.
var DefaultLocations = []MonitoredLocation{
	{City: "Mumbai", Country: "India", Lat: 19.0760, Lon: 72.8777, IsActive: true},
	{City: "Delhi", Country: "India", Lat: 28.6139, Lon: 77.2090, IsActive: true},
	{City: "Beijing", Country: "China", Lat: 39.9042, Lon: 116.4074, IsActive: true},
	{City: "London", Country: "UK", Lat: 51.5074, Lon: -0.1278, IsActive: true},
	{City: "New York", Country: "USA", Lat: 40.7128, Lon: -74.0060, IsActive: true},
	{City: "Los Angeles", Country: "USA", Lat: 34.0522, Lon: -118.2437, IsActive: true},
	{City: "Tokyo", Country: "Japan", Lat: 35.6762, Lon: 139.6503, IsActive: true},
	{City: "Paris", Country: "France", Lat: 48.8566, Lon: 2.3522, IsActive: true},
}
