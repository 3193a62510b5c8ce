// internal/alert/patch.go
//
// Typed partial update for PATCH /alerts/{id}.
//
// Every field is optional.  A nil pointer (or nil slice) is dropped from the
// JSON body by `omitempty`, so the wire payload carries only fields the user
// filled in.  Absence means "leave unchanged", never "clear" and never
// "false".
package alert

// Patch is the body of a partial update.
type Patch struct {
	Name     *string `json:"name,omitempty"`
	City     *string `json:"city,omitempty"`
	District *string `json:"district,omitempty"`

	MinPrice   *float64 `json:"minPrice,omitempty"`
	MaxPrice   *float64 `json:"maxPrice,omitempty"`
	MinFootage *float64 `json:"minFootage,omitempty"`
	MaxFootage *float64 `json:"maxFootage,omitempty"`
	MinRooms   *int     `json:"minRooms,omitempty"`
	MaxRooms   *int     `json:"maxRooms,omitempty"`
	MinFloor   *int     `json:"minFloor,omitempty"`
	MaxFloor   *int     `json:"maxFloor,omitempty"`

	OwnerType    *OwnerType    `json:"ownerType,omitempty"`
	BuildingType *BuildingType `json:"buildingType,omitempty"`
	ParkingType  *ParkingType  `json:"parkingType,omitempty"`

	Elevator  *bool `json:"elevator,omitempty"`
	Furniture *bool `json:"furniture,omitempty"`
	Pets      *bool `json:"pets,omitempty"`

	Keywords []string `json:"keywords,omitempty"`

	NotificationMethod *NotificationMethod `json:"notificationMethod,omitempty"`
	DiscordWebhook     *string             `json:"discordWebhook,omitempty"`
}

// ptr returns a pointer to a copy of v.
func ptr[T any](v T) *T { return &v }
