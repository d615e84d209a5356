// Package weather implementa el proveedor de pronósticos sobre la API del
// National Weather Service. Las estaciones son las que usa el exchange para
// liquidar, no las más céntricas de cada ciudad.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

const (
	baseURL   = "https://api.weather.gov"
	userAgent = "kalshibot/1.0 (weather trading bot)"
)

// station es la estación de liquidación de una ciudad y su gridpoint NWS.
type station struct {
	ID   string
	Grid string // "oficina/x,y"
	Name string
}

var cityStations = map[string]station{
	"NYC":          {ID: "KNYC", Grid: "OKX/33,37", Name: "Central Park, NY"},
	"CHICAGO":      {ID: "KMDW", Grid: "LOT/75,73", Name: "Chicago Midway Airport"},
	"MIAMI":        {ID: "KMIA", Grid: "MFL/109,50", Name: "Miami International Airport"},
	"AUSTIN":       {ID: "KAUS", Grid: "EWX/156,91", Name: "Austin-Bergstrom Airport"},
	"DENVER":       {ID: "KDEN", Grid: "BOU/62,60", Name: "Denver International Airport"},
	"HOUSTON":      {ID: "KIAH", Grid: "HGX/65,97", Name: "Houston IAH Airport"},
	"LOS_ANGELES":  {ID: "KLAX", Grid: "LOX/149,48", Name: "Los Angeles International Airport"},
	"PHILADELPHIA": {ID: "KPHL", Grid: "PHI/49,75", Name: "Philadelphia International Airport"},
}

// uncertaintyByDays es la desviación estándar estimada del high según la
// antelación del pronóstico. NWS acierta ±2-3°F a un día vista.
var uncertaintyByDays = map[int]float64{
	0: 1.5,
	1: 2.5,
	2: 3.5,
	3: 4.5,
	4: 5.0,
	5: 5.5,
}

const maxUncertainty = 6.0

type forecastPeriod struct {
	StartTime   time.Time `json:"startTime"`
	Temperature float64   `json:"temperature"`
	IsDaytime   bool      `json:"isDaytime"`
}

type forecastResponse struct {
	Properties struct {
		Periods []forecastPeriod `json:"periods"`
	} `json:"properties"`
}

// NWS es el ForecastProvider contra api.weather.gov.
type NWS struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
}

func NewNWS() *NWS {
	return &NWS{
		http:    &http.Client{Timeout: 10 * time.Second},
		base:    baseURL,
		limiter: rate.NewLimiter(5, 2),
	}
}

// GetForecast devuelve el pronóstico de máxima para la ciudad y fecha dadas.
// Si el pronóstico diario no cubre la fecha se cae al horario y se toma el
// máximo del día.
func (n *NWS) GetForecast(ctx context.Context, city string, date time.Time) (domain.Forecast, error) {
	st, ok := cityStations[normalizeCity(city)]
	if !ok {
		return domain.Forecast{}, fmt.Errorf("weather.GetForecast: unknown city %q", city)
	}

	var resp forecastResponse
	if err := n.get(ctx, "/gridpoints/"+st.Grid+"/forecast", &resp); err != nil {
		return domain.Forecast{}, fmt.Errorf("weather.GetForecast: %w", err)
	}

	high, low, found := dailyTemps(resp.Properties.Periods, date)
	if !found {
		var hourly forecastResponse
		if err := n.get(ctx, "/gridpoints/"+st.Grid+"/forecast/hourly", &hourly); err != nil {
			return domain.Forecast{}, fmt.Errorf("weather.GetForecast: hourly fallback: %w", err)
		}
		high, low, found = hourlyTemps(hourly.Properties.Periods, date)
	}
	if !found {
		return domain.Forecast{}, fmt.Errorf("weather.GetForecast: no forecast for %s on %s", city, date.Format("2006-01-02"))
	}
	if low == 0 {
		// Estimación burda cuando el periodo nocturno aún no está publicado.
		low = high - 15
	}

	daysAhead := int(time.Until(date).Hours() / 24)
	std, ok := uncertaintyByDays[daysAhead]
	if !ok {
		std = maxUncertainty
	}

	return domain.Forecast{
		Station:   st.ID,
		Date:      date,
		High:      high,
		Low:       low,
		HighStd:   std,
		Source:    "NWS",
		FetchedAt: time.Now(),
	}, nil
}

func (n *NWS) get(ctx context.Context, path string, out any) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.base+path, nil)
	if err != nil {
		return err
	}
	// NWS exige User-Agent identificable.
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := n.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("NWS API error %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// dailyTemps extrae high (periodo diurno) y low (nocturno) de la fecha dada.
func dailyTemps(periods []forecastPeriod, date time.Time) (high, low float64, found bool) {
	for _, p := range periods {
		if p.StartTime.IsZero() || !sameDay(p.StartTime, date) {
			continue
		}
		if p.IsDaytime {
			if !found || p.Temperature > high {
				high = p.Temperature
			}
			found = true
		} else if low == 0 || p.Temperature < low {
			low = p.Temperature
		}
	}
	return high, low, found
}

// hourlyTemps toma máximo y mínimo de las horas de la fecha dada.
func hourlyTemps(periods []forecastPeriod, date time.Time) (high, low float64, found bool) {
	for _, p := range periods {
		if p.StartTime.IsZero() || !sameDay(p.StartTime, date) {
			continue
		}
		if !found {
			high, low = p.Temperature, p.Temperature
			found = true
			continue
		}
		if p.Temperature > high {
			high = p.Temperature
		}
		if p.Temperature < low {
			low = p.Temperature
		}
	}
	return high, low, found
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func normalizeCity(city string) string {
	return strings.ToUpper(strings.ReplaceAll(city, " ", "_"))
}
