package amqp

import (
	"encoding/json"

	"ahorramas/internal/events"
)

// Change messages carry only the change envelope; consumers re-read
// whatever state they need from the store.
func changeToJSON(c events.Change) ([]byte, error) {
	return json.Marshal(c)
}

func changeFromJSON(data []byte) (events.Change, error) {
	var c events.Change
	if err := json.Unmarshal(data, &c); err != nil {
		return events.Change{}, err
	}
	return c, nil
}
