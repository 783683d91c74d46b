package messages

import (
	"time"

	"github.com/google/uuid"
)

// TriggerNewDatesForPickup names the automation trigger fired when a pickup date changes.
const TriggerNewDatesForPickup = "new-dates-for-pickup"

// NewDatesForPickup is the trigger payload: both current dates, whichever changed.
type NewDatesForPickup struct {
	ID          string    `json:"id"`
	Trigger     string    `json:"trigger"`
	PlantNumber int64     `json:"plant_number"`
	Restavfall  string    `json:"restavfall"`
	Matavfall   string    `json:"matavfall"`
	Changed     []string  `json:"changed"`
	TriggeredAt time.Time `json:"triggered_at"`
}

func NewNewDatesForPickup(plant int64, matavfall, restavfall string, changed []string, at time.Time) NewDatesForPickup {
	return NewDatesForPickup{
		ID:          uuid.NewString(),
		Trigger:     TriggerNewDatesForPickup,
		PlantNumber: plant,
		Restavfall:  restavfall,
		Matavfall:   matavfall,
		Changed:     changed,
		TriggeredAt: at.UTC(),
	}
}

// Notification is a short user-facing message.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Excerpt   string    `json:"excerpt"`
	CreatedAt time.Time `json:"created_at"`
}

func NewNotification(kind, excerpt string, at time.Time) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Excerpt:   excerpt,
		CreatedAt: at.UTC(),
	}
}

// SettingChanged is a write request from the settings UI.
type SettingChanged struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
