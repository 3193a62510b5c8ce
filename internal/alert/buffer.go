// internal/alert/buffer.go
//
// Local edit buffer.
//
// Context
// -------
// The edit page mirrors every mutable field of a Record as the string the
// browser shows in its input.  The buffer holds those strings, the ordered
// keyword list, and the pending keyword input.  It is built from the record
// on first load and rebuilt from the posted form on every round-trip, so a
// failed save never loses what the user typed.
//
// Workflow
// --------
//   - FromRecord  – prefill from a fetched snapshot.
//   - FromForm    – restore after a POST (keyword add/remove, failed save).
//   - AddKeyword / RemoveKeyword – ordered-set edits.
//   - Patch       – typed partial update, see the rules on Patch.
package alert

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Form field names.  They double as the keys of Buffer.Values and as the
// `name` attribute of the rendered inputs.
const (
	FieldName               = "name"
	FieldCity               = "city"
	FieldDistrict           = "district"
	FieldMinPrice           = "minPrice"
	FieldMaxPrice           = "maxPrice"
	FieldMinFootage         = "minFootage"
	FieldMaxFootage         = "maxFootage"
	FieldMinRooms           = "minRooms"
	FieldMaxRooms           = "maxRooms"
	FieldMinFloor           = "minFloor"
	FieldMaxFloor           = "maxFloor"
	FieldOwnerType          = "ownerType"
	FieldBuildingType       = "buildingType"
	FieldParkingType        = "parkingType"
	FieldElevator           = "elevator"
	FieldFurniture          = "furniture"
	FieldPets               = "pets"
	FieldKeywords           = "keywords"
	FieldKeywordInput       = "keywordInput"
	FieldNotificationMethod = "notificationMethod"
	FieldDiscordWebhook     = "discordWebhook"
)

// Keyword round-trip controls.  Both re-render the page from the posted
// buffer without calling the API.
const (
	OpAddKeyword       = "add_keyword"
	FieldRemoveKeyword = "remove_keyword"
)

// IsKeywordOp reports whether a posted edit form only adds or removes a
// keyword.
func IsKeywordOp(v url.Values) bool {
	return v.Has(FieldRemoveKeyword) || v.Get("op") == OpAddKeyword
}

// scalarFields lists every single-valued field carried by Buffer.Values.
var scalarFields = []string{
	FieldName, FieldCity, FieldDistrict,
	FieldMinPrice, FieldMaxPrice, FieldMinFootage, FieldMaxFootage,
	FieldMinRooms, FieldMaxRooms, FieldMinFloor, FieldMaxFloor,
	FieldOwnerType, FieldBuildingType, FieldParkingType,
	FieldElevator, FieldFurniture, FieldPets,
	FieldNotificationMethod, FieldDiscordWebhook,
}

// FieldError names one input that could not be turned into a Patch value.
type FieldError struct {
	Field   string
	Message string
}

// Buffer is the editable mirror of one Record.  Zero value is usable.
type Buffer struct {
	Values       map[string]string
	Keywords     []string
	KeywordInput string
}

// FromRecord prefills a Buffer from a fetched record.  Numbers keep 0 as
// "0"; only nil becomes the empty input.
func FromRecord(r *Record) *Buffer {
	b := &Buffer{Values: make(map[string]string, len(scalarFields))}

	b.Values[FieldName] = r.Name
	b.Values[FieldCity] = r.City
	b.Values[FieldDistrict] = deref(r.District)

	b.Values[FieldMinPrice] = formatFloat(r.MinPrice)
	b.Values[FieldMaxPrice] = formatFloat(r.MaxPrice)
	b.Values[FieldMinFootage] = formatFloat(r.MinFootage)
	b.Values[FieldMaxFootage] = formatFloat(r.MaxFootage)
	b.Values[FieldMinRooms] = formatInt(r.MinRooms)
	b.Values[FieldMaxRooms] = formatInt(r.MaxRooms)
	b.Values[FieldMinFloor] = formatInt(r.MinFloor)
	b.Values[FieldMaxFloor] = formatInt(r.MaxFloor)

	b.Values[FieldOwnerType] = string(r.OwnerType)
	b.Values[FieldBuildingType] = string(r.BuildingType)
	b.Values[FieldParkingType] = string(r.ParkingType)

	b.Values[FieldElevator] = r.Elevator.FormValue()
	b.Values[FieldFurniture] = r.Furniture.FormValue()
	b.Values[FieldPets] = r.Pets.FormValue()

	b.Values[FieldNotificationMethod] = string(r.Method())
	b.Values[FieldDiscordWebhook] = deref(r.DiscordWebhook)

	b.Keywords = make([]string, 0, len(r.Keywords))
	for _, k := range r.Keywords {
		b.appendUnique(k)
	}
	return b
}

// FromForm rebuilds a Buffer from posted values.  Keywords arrive as
// repeated hidden inputs and are re-deduplicated in order.
func FromForm(v url.Values) *Buffer {
	b := &Buffer{Values: make(map[string]string, len(scalarFields))}
	for _, f := range scalarFields {
		b.Values[f] = v.Get(f)
	}
	b.Keywords = make([]string, 0, len(v[FieldKeywords]))
	for _, k := range v[FieldKeywords] {
		b.appendUnique(k)
	}
	b.KeywordInput = v.Get(FieldKeywordInput)
	return b
}

// Get returns the current string for field, empty when unset.
func (b *Buffer) Get(field string) string {
	if b.Values == nil {
		return ""
	}
	return b.Values[field]
}

// Set overwrites one scalar field.
func (b *Buffer) Set(field, value string) {
	if b.Values == nil {
		b.Values = make(map[string]string, len(scalarFields))
	}
	b.Values[field] = value
}

// AddKeyword moves the trimmed KeywordInput to the end of Keywords and
// clears the input.  Empty input and exact duplicates are ignored and the
// input is left as typed.  It reports whether the list changed.
func (b *Buffer) AddKeyword() bool {
	k := strings.TrimSpace(b.KeywordInput)
	if k == "" || b.HasKeyword(k) {
		return false
	}
	b.Keywords = append(b.Keywords, k)
	b.KeywordInput = ""
	return true
}

// RemoveKeyword drops the entry equal to k.  It reports whether anything
// was removed.
func (b *Buffer) RemoveKeyword(k string) bool {
	for i, have := range b.Keywords {
		if have == k {
			b.Keywords = append(b.Keywords[:i:i], b.Keywords[i+1:]...)
			return true
		}
	}
	return false
}

// HasKeyword is a case-sensitive exact match.
func (b *Buffer) HasKeyword(k string) bool {
	for _, have := range b.Keywords {
		if have == k {
			return true
		}
	}
	return false
}

func (b *Buffer) appendUnique(k string) {
	if k == "" || b.HasKeyword(k) {
		return
	}
	b.Keywords = append(b.Keywords, k)
}

// Patch turns the buffer into a partial update.
//
// Rules:
//   - name and city are always sent.
//   - district, the three enum selects, and discordWebhook are sent only
//     when non-empty.
//   - prices and footage parse as float64, rooms and floors as int; empty
//     inputs are omitted and 0 is kept.
//   - elevator, furniture, and pets are sent as true only for the literal
//     "true"; anything else is omitted, never sent as false.
//   - keywords are sent only when the list is non-empty.
//   - notificationMethod falls back to EMAIL.
//
// Unchanged values are resubmitted; the backend treats them as overwrites.
// A non-nil []FieldError means no request should be made.
func (b *Buffer) Patch() (Patch, []FieldError) {
	var (
		p    Patch
		errs []FieldError
	)

	p.Name = ptr(b.Get(FieldName))
	p.City = ptr(b.Get(FieldCity))
	p.District = optString(b.Get(FieldDistrict))

	floats := []struct {
		field string
		dst   **float64
	}{
		{FieldMinPrice, &p.MinPrice},
		{FieldMaxPrice, &p.MaxPrice},
		{FieldMinFootage, &p.MinFootage},
		{FieldMaxFootage, &p.MaxFootage},
	}
	for _, f := range floats {
		v, ok := parseFloat(b.Get(f.field))
		if !ok {
			errs = append(errs, FieldError{f.field, "Podaj poprawną liczbę."})
			continue
		}
		*f.dst = v
	}

	ints := []struct {
		field string
		dst   **int
	}{
		{FieldMinRooms, &p.MinRooms},
		{FieldMaxRooms, &p.MaxRooms},
		{FieldMinFloor, &p.MinFloor},
		{FieldMaxFloor, &p.MaxFloor},
	}
	for _, f := range ints {
		v, ok := parseInt(b.Get(f.field))
		if !ok {
			errs = append(errs, FieldError{f.field, "Podaj liczbę całkowitą."})
			continue
		}
		*f.dst = v
	}

	if v := OwnerType(b.Get(FieldOwnerType)); v != "" {
		if !v.Valid() {
			errs = append(errs, FieldError{FieldOwnerType, "Nieznany typ właściciela."})
		} else {
			p.OwnerType = &v
		}
	}
	if v := BuildingType(b.Get(FieldBuildingType)); v != "" {
		if !v.Valid() {
			errs = append(errs, FieldError{FieldBuildingType, "Nieznany typ budynku."})
		} else {
			p.BuildingType = &v
		}
	}
	if v := ParkingType(b.Get(FieldParkingType)); v != "" {
		if !v.Valid() {
			errs = append(errs, FieldError{FieldParkingType, "Nieznany typ parkingu."})
		} else {
			p.ParkingType = &v
		}
	}

	p.Elevator = onlyTrue(b.Get(FieldElevator))
	p.Furniture = onlyTrue(b.Get(FieldFurniture))
	p.Pets = onlyTrue(b.Get(FieldPets))

	if len(b.Keywords) > 0 {
		p.Keywords = append([]string(nil), b.Keywords...)
	}

	method := NotificationMethod(b.Get(FieldNotificationMethod))
	if method == "" {
		method = DefaultNotificationMethod
	}
	if !method.Valid() {
		errs = append(errs, FieldError{FieldNotificationMethod, "Nieznany sposób powiadamiania."})
	} else {
		p.NotificationMethod = &method
	}
	p.DiscordWebhook = optString(b.Get(FieldDiscordWebhook))

	return p, errs
}

//
// helpers
//

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parseFloat returns (nil, true) for empty input and rejects NaN and
// infinities, which strconv would otherwise accept.
func parseFloat(raw string) (*float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return &f, true
}

func parseInt(raw string) (*int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &i, true
}

func onlyTrue(raw string) *bool {
	if raw != "true" {
		return nil
	}
	return ptr(true)
}
