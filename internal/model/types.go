package model

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Position is the coordinate a city was pinned at.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both coordinates are finite and in range.
func (p Position) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// City represents a visited city.
type City struct {
	ID       string    `json:"id"`
	CityName string    `json:"cityName"`
	Country  string    `json:"country"`
	Emoji    string    `json:"emoji"`
	Date     time.Time `json:"date"`
	Notes    string    `json:"notes"`
	Position Position  `json:"position"`
}

// IsZero reports whether c is the empty "no city" value.
func (c City) IsZero() bool {
	return c.ID == ""
}

// NewCity represents data for creating a city. The ID is assigned by the store.
type NewCity struct {
	CityName string
	Country  string
	Emoji    string
	Date     time.Time
	Notes    string
	Position Position
}

var (
	ErrCityNameRequired = errors.New("city name is required")
	ErrDateRequired     = errors.New("date is required")
	ErrInvalidPosition  = errors.New("position must be a valid latitude/longitude")
)

// Validate checks a draft before it is handed to the store.
func (n NewCity) Validate() error {
	if strings.TrimSpace(n.CityName) == "" {
		return ErrCityNameRequired
	}
	if n.Date.IsZero() {
		return ErrDateRequired
	}
	if !n.Position.Valid() {
		return ErrInvalidPosition
	}
	return nil
}

// WithID builds the committed city for a draft.
func (n NewCity) WithID(id string) City {
	return City{
		ID:       id,
		CityName: n.CityName,
		Country:  n.Country,
		Emoji:    n.Emoji,
		Date:     n.Date,
		Notes:    n.Notes,
		Position: n.Position,
	}
}

// Country is a country derived from the visited cities.
type Country struct {
	Country string
	Emoji   string
}

// Countries returns the distinct countries of cities in first-seen order.
func Countries(cities []City) []Country {
	seen := make(map[string]bool, len(cities))
	countries := make([]Country, 0, len(cities))
	for _, c := range cities {
		if seen[c.Country] {
			continue
		}
		seen[c.Country] = true
		countries = append(countries, Country{Country: c.Country, Emoji: c.Emoji})
	}
	return countries
}
