package dto

import (
	"encoding/json"
	"time"
)

// SnapshotInfo represents metadata about a stored snapshot.
type SnapshotInfo struct {
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	TimeOfDay time.Time `json:"timeOfDay"`
	Camera    string    `json:"camera"`
	Emotions  []string  `json:"emotions"`
}

// MarshalJSON formats date and time-of-day the way the gallery expects.
func (s SnapshotInfo) MarshalJSON() ([]byte, error) {
	type Alias SnapshotInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      s.Date.Format("02-01-2006"),
		TimeOfDay: s.TimeOfDay.Format("15:04"),
		Alias:     (Alias)(s),
	})
}
