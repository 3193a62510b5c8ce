// internal/alert/record.go
//
// Alert record as served by the alert API.
//
// Context
// -------
// An alert is a saved search: city, price, footage, rooms, floor, amenities,
// and keywords, plus how the user wants to be told about new matches.  The
// record is owned by the backend.  This client reads one snapshot on page
// load and never writes it back whole; edits travel as a Patch (patch.go).
//
// Notes
// -----
// • Optional numbers are pointers so that 0 stays a real value.
// • Tri-state amenities decode JSON null as Unset, never as false.
// • Oxford commas, two spaces after periods.
package alert

import (
	"bytes"
	"fmt"
)

//
// Enumerations
//

// OwnerType filters listings by who publishes them.  Empty means unset.
type OwnerType string

const (
	OwnerPrivate OwnerType = "PRIVATE"
	OwnerCompany OwnerType = "COMPANY"
	OwnerAll     OwnerType = "ALL"
)

// BuildingType filters listings by building kind.  Empty means unset.
type BuildingType string

const (
	BuildingBlockOfFlats BuildingType = "BLOCK_OF_FLATS"
	BuildingTenement     BuildingType = "TENEMENT"
	BuildingDetached     BuildingType = "DETACHED"
	BuildingTerraced     BuildingType = "TERRACED"
	BuildingApartment    BuildingType = "APARTMENT"
	BuildingLoft         BuildingType = "LOFT"
	BuildingOther        BuildingType = "OTHER"
)

// ParkingType filters listings by parking availability.  Empty means unset.
type ParkingType string

const (
	ParkingNone    ParkingType = "NONE"
	ParkingStreet  ParkingType = "STREET"
	ParkingSecured ParkingType = "SECURED"
	ParkingGarage  ParkingType = "GARAGE"
)

// Valid reports whether o is a known owner type.  Empty is not valid; it
// means unset and is handled by callers.
func (o OwnerType) Valid() bool {
	switch o {
	case OwnerPrivate, OwnerCompany, OwnerAll:
		return true
	}
	return false
}

// Valid reports whether b is a known building type.
func (b BuildingType) Valid() bool {
	switch b {
	case BuildingBlockOfFlats, BuildingTenement, BuildingDetached, BuildingTerraced,
		BuildingApartment, BuildingLoft, BuildingOther:
		return true
	}
	return false
}

// Valid reports whether p is a known parking type.
func (p ParkingType) Valid() bool {
	switch p {
	case ParkingNone, ParkingStreet, ParkingSecured, ParkingGarage:
		return true
	}
	return false
}

// NotificationMethod selects the delivery channel for match notifications.
type NotificationMethod string

const (
	NotifyEmail   NotificationMethod = "EMAIL"
	NotifyDiscord NotificationMethod = "DISCORD"
	NotifyBoth    NotificationMethod = "BOTH"
)

// DefaultNotificationMethod applies when the record or the form carries none.
const DefaultNotificationMethod = NotifyEmail

// Valid reports whether m is one of the known delivery channels.
func (m NotificationMethod) Valid() bool {
	switch m {
	case NotifyEmail, NotifyDiscord, NotifyBoth:
		return true
	}
	return false
}

// UsesDiscord reports whether a Discord webhook is needed for delivery.
func (m NotificationMethod) UsesDiscord() bool {
	return m == NotifyDiscord || m == NotifyBoth
}

//
// TriState
//

// TriState is a boolean with a third "don't care" value.  The zero value is
// Unset so a freshly decoded record never claims false by accident.
type TriState uint8

const (
	Unset TriState = iota
	True
	False
)

// TriFromBool lifts a plain bool.
func TriFromBool(b bool) TriState {
	if b {
		return True
	}
	return False
}

// FormValue maps the state onto the select option values "", "true", and
// "false".
func (t TriState) FormValue() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return ""
	}
}

func (t TriState) String() string {
	if v := t.FormValue(); v != "" {
		return v
	}
	return "unset"
}

// MarshalJSON writes true, false, or null.
func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true, false, and null.  A missing key leaves the
// field at its zero value, which is Unset.
func (t *TriState) UnmarshalJSON(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case "null":
		*t = Unset
	case "true":
		*t = True
	case "false":
		*t = False
	default:
		return fmt.Errorf("alert: tri-state expects true, false, or null, got %s", b)
	}
	return nil
}

//
// Record
//

// Record mirrors the alert resource returned by GET /alerts/{id}.
type Record struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	City     string  `json:"city"`
	District *string `json:"district,omitempty"`

	MinPrice   *float64 `json:"minPrice,omitempty"`
	MaxPrice   *float64 `json:"maxPrice,omitempty"`
	MinFootage *float64 `json:"minFootage,omitempty"`
	MaxFootage *float64 `json:"maxFootage,omitempty"`
	MinRooms   *int     `json:"minRooms,omitempty"`
	MaxRooms   *int     `json:"maxRooms,omitempty"`
	MinFloor   *int     `json:"minFloor,omitempty"`
	MaxFloor   *int     `json:"maxFloor,omitempty"`

	OwnerType    OwnerType    `json:"ownerType,omitempty"`
	BuildingType BuildingType `json:"buildingType,omitempty"`
	ParkingType  ParkingType  `json:"parkingType,omitempty"`

	Elevator  TriState `json:"elevator"`
	Furniture TriState `json:"furniture"`
	Pets      TriState `json:"pets"`

	Keywords []string `json:"keywords,omitempty"`

	NotificationMethod NotificationMethod `json:"notificationMethod,omitempty"`
	DiscordWebhook     *string            `json:"discordWebhook,omitempty"`
}

// Method returns the record's delivery channel, defaulting to EMAIL.
func (r *Record) Method() NotificationMethod {
	if r.NotificationMethod == "" {
		return DefaultNotificationMethod
	}
	return r.NotificationMethod
}
