// Package session derives the pinned coordinate from the current route.
package session

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"worldwise/internal/model"
)

// Coordinates is the lat/lng pair carried by a route. Either may be absent.
type Coordinates struct {
	Lat *float64
	Lng *float64
}

// FromQuery reads the lat and lng parameters. Missing, non-numeric and
// non-finite values are absent.
func FromQuery(q url.Values) Coordinates {
	return Coordinates{
		Lat: parseCoordinate(q.Get("lat")),
		Lng: parseCoordinate(q.Get("lng")),
	}
}

// FromRoute reads the coordinate from the query part of route.
func FromRoute(route string) Coordinates {
	_, rawQuery, found := strings.Cut(route, "?")
	if !found {
		return Coordinates{}
	}
	// ParseQuery keeps the pairs it could decode.
	q, _ := url.ParseQuery(rawQuery)
	return FromQuery(q)
}

// Position returns the coordinate when both halves are present.
func (c Coordinates) Position() (model.Position, bool) {
	if c.Lat == nil || c.Lng == nil {
		return model.Position{}, false
	}
	return model.Position{Lat: *c.Lat, Lng: *c.Lng}, true
}

// Path strips the query from route.
func Path(route string) string {
	path, _, _ := strings.Cut(route, "?")
	return path
}

// FormRoute is the add-city route for a dropped pin.
func FormRoute(pos model.Position) string {
	return "app/form?" + encode(pos)
}

// CityRoute is the detail route for city, centred on its position.
func CityRoute(city model.City) string {
	return "app/cities/" + url.PathEscape(city.ID) + "?" + encode(city.Position)
}

func encode(pos model.Position) string {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(pos.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(pos.Lng, 'f', -1, 64))
	return q.Encode()
}

func parseCoordinate(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
