package weather

// DefaultForecastWindow is the number of samples kept for display:
// the current reading plus the next 15 forecast intervals.
const DefaultForecastWindow = 16

// ShapeForecast bounds a provider forecast to the head of its sample list
// and keeps the envelope metadata (label, country, sunrise/sunset).
// A window <= 0 falls back to DefaultForecastWindow.
func ShapeForecast(raw ProviderForecast, window int) ForecastSnapshot {
	if window <= 0 {
		window = DefaultForecastWindow
	}

	n := len(raw.Samples)
	if n > window {
		n = window
	}

	// Copy so the snapshot does not alias the provider's backing array.
	samples := make([]WeatherSample, n)
	copy(samples, raw.Samples[:n])

	for i := range samples {
		samples[i].Timestamp = samples[i].Timestamp.UTC()
		if samples[i].Condition == "" {
			samples[i].Condition = ConditionUnknown
		}
	}

	return ForecastSnapshot{
		Provider:       raw.ProviderName,
		LocationLabel:  raw.LocationLabel,
		Country:        raw.Country,
		Sunrise:        raw.Sunrise.UTC(),
		Sunset:         raw.Sunset.UTC(),
		TimezoneOffset: raw.TimezoneOffset,
		Samples:        samples,
	}
}
