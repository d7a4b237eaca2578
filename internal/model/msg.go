package model

// Bubble Tea message types

// ErrorMsg represents an error message.
type ErrorMsg struct {
	Err error
}

// GeocodedMsg is sent when a reverse-geocoding lookup completes.
type GeocodedMsg struct {
	Position Position
	CityName string
	Country  string
	Emoji    string
	Err      error
}

// CityCreatedMsg is sent when the store has committed a new city.
type CityCreatedMsg struct {
	City City
}

// CitySelectedMsg is sent when the store has committed the selection of ID.
type CitySelectedMsg struct {
	ID    string
	City  City
	Found bool
}

// CityDeletedMsg is sent when the store has committed a deletion.
type CityDeletedMsg struct {
	ID string
}

// FormCancelledMsg is sent when a form is cancelled.
type FormCancelledMsg struct{}

// NavigateMsg asks the root model to move to a route.
type NavigateMsg struct {
	Route string
}

// Screen represents different app screens.
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenCities
	ScreenCountries
	ScreenCityDetail
	ScreenCityForm
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNav Mode = iota
	ModeInsert
)
