package store

import (
	"fmt"

	"worldwise/internal/model"
)

// State is the city collection state.
type State struct {
	Cities      []model.City
	IsLoading   bool
	CurrentCity model.City
	Error       string
}

// Action is a state transition. The set of actions is closed: Reduce panics
// on any type it does not know.
type Action interface {
	Kind() string
}

// Loading marks the start of an operation.
type Loading struct{}

// CitiesLoaded replaces the whole collection.
type CitiesLoaded struct {
	Cities []model.City
}

// CityLoaded sets the current city.
type CityLoaded struct {
	City model.City
}

// CityCreated appends a city and makes it current.
type CityCreated struct {
	City model.City
}

// CityDeleted removes the city with ID.
type CityDeleted struct {
	ID string
}

func (Loading) Kind() string      { return "loading" }
func (CitiesLoaded) Kind() string { return "cities/loaded" }
func (CityLoaded) Kind() string   { return "city/loaded" }
func (CityCreated) Kind() string  { return "city/created" }
func (CityDeleted) Kind() string  { return "city/deleted" }

// UnknownActionError is the panic value for an action Reduce does not handle.
type UnknownActionError struct {
	Kind string
	Type string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("store: unknown action type %q (%s)", e.Kind, e.Type)
}

// Reduce computes the next state. It never modifies state.Cities in place.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case Loading:
		state.IsLoading = true
		return state
	case CitiesLoaded:
		state.IsLoading = false
		state.Cities = cloneCities(a.Cities)
		return state
	case CityLoaded:
		state.IsLoading = false
		state.CurrentCity = a.City
		return state
	case CityCreated:
		cities := make([]model.City, 0, len(state.Cities)+1)
		cities = append(cities, state.Cities...)
		state.IsLoading = false
		state.Cities = append(cities, a.City)
		state.CurrentCity = a.City
		return state
	case CityDeleted:
		cities := make([]model.City, 0, len(state.Cities))
		for _, c := range state.Cities {
			if c.ID != a.ID {
				cities = append(cities, c)
			}
		}
		state.IsLoading = false
		state.Cities = cities
		return state
	default:
		kind := "<nil>"
		if action != nil {
			kind = action.Kind()
		}
		panic(&UnknownActionError{Kind: kind, Type: fmt.Sprintf("%T", action)})
	}
}

// changesCities reports whether action replaces the cities slice.
func changesCities(action Action) bool {
	switch action.(type) {
	case CitiesLoaded, CityCreated, CityDeleted:
		return true
	}
	return false
}

func cloneCities(cities []model.City) []model.City {
	out := make([]model.City, len(cities))
	copy(out, cities)
	return out
}
