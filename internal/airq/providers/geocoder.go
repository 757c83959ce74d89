package providers

import (
	"context"
	"fmt"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/air-quality-prediction/internal/airq"
)

// GoogleGeocoder implements airq.Geocoder through the Google Maps geocoding
// API. It backs up the weather provider's geocoder for city names that one
// cannot resolve.
type GoogleGeocoder struct{}

// NewGoogleGeocoder configures the underlying library with the API key.
// The library keys off a package-level variable, so only one instance per
// process makes sense.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{}
}

type geocodeResult struct {
	loc airq.GeoLocation
	err error
}

// Geocode resolves the city name. The library has no context support, so the
// call runs in a goroutine and the result is dropped on cancellation.
func (g *GoogleGeocoder) Geocode(ctx context.Context, city string) (airq.GeoLocation, error) {
	ch := make(chan geocodeResult, 1)

	go func() {
		location, err := geocoder.Geocoding(geocoder.Address{City: city})
		if err != nil {
			ch <- geocodeResult{err: err}
			return
		}

		loc := airq.GeoLocation{
			City: city,
			Lat:  location.Latitude,
			Lon:  location.Longitude,
		}

		// Reverse lookup fills the country when available; failures keep
		// the coordinates usable.
		if addresses, err := geocoder.GeocodingReverse(location); err == nil && len(addresses) > 0 {
			loc.Country = addresses[0].Country
		}

		ch <- geocodeResult{loc: loc}
	}()

	select {
	case <-ctx.Done():
		return airq.GeoLocation{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return airq.GeoLocation{}, fmt.Errorf("%w: %v", airq.ErrProviderUnavailable, r.err)
		}
		return r.loc, nil
	}
}
