// Package openmeteo provides an HTTP client for the Open-Meteo forecast API.
//
// # Overview
//
// Open-Meteo (https://open-meteo.com) serves current conditions and daily
// forecasts for a latitude/longitude pair without an API key. The client
// requests the current temperature, relative humidity and WMO weather code
// plus today's minimum and maximum temperature.
//
// # Usage
//
//	client := openmeteo.NewClient(backend, 6*time.Hour, 10*time.Second)
//	obs, err := client.Forecast(ctx, openmeteo.Location{Latitude: 37.5665, Longitude: 126.978}, true)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(obs.Temperature, obs.Condition)
//
// # Conditions
//
// WMO codes are folded into six display categories by [ConditionFor]:
// clear, partly-cloudy, cloudy, rain, snow and thunder. Codes outside the
// table map to clear.
//
// # Caching
//
// Every successful fetch is stored in the cache backend under a key derived
// from the coordinates. [Client.Last] returns that stored observation, which
// lets the display show the last known weather right after a restart even
// when the network is down.
package openmeteo
