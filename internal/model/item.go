package model

import "encoding/json"

// Location is a coordinate pair captured when a task is created.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Item is the domain model for a todo entry as the remote service returns it.
// The id is assigned by the server and never changes.
type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Location  *Location `json:"location,omitempty"`
	PhotoURI  *string   `json:"photoUri,omitempty"`
	CreatedAt string    `json:"createdAt,omitempty"`
	UpdatedAt string    `json:"updatedAt,omitempty"`
}

// wireItem covers every shape the service has used for a todo: nested or flat
// coordinates, photoUri or imageUrl.
type wireItem struct {
	ID        json.RawMessage `json:"id"`
	Title     string          `json:"title"`
	Completed bool            `json:"completed"`
	Location  *Location       `json:"location"`
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	PhotoURI  *string         `json:"photoUri"`
	ImageURL  *string         `json:"imageUrl"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
}

// UnmarshalJSON decodes any known wire shape into the canonical Item.
func (it *Item) UnmarshalJSON(b []byte) error {
	var w wireItem
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out := Item{
		ID:        rawID(w.ID),
		Title:     w.Title,
		Completed: w.Completed,
		Location:  w.Location,
		PhotoURI:  w.PhotoURI,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
	if out.Location == nil && w.Latitude != nil && w.Longitude != nil {
		out.Location = &Location{Latitude: *w.Latitude, Longitude: *w.Longitude}
	}
	if out.PhotoURI == nil && w.ImageURL != nil {
		out.PhotoURI = w.ImageURL
	}
	*it = out
	return nil
}

// Some backends hand out numeric ids; keep them as opaque strings.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Clone returns a deep copy so snapshots never share pointers with live state.
func (it Item) Clone() Item {
	if it.Location != nil {
		loc := *it.Location
		it.Location = &loc
	}
	if it.PhotoURI != nil {
		p := *it.PhotoURI
		it.PhotoURI = &p
	}
	return it
}

// Photo returns the photo reference or "".
func (it Item) Photo() string {
	if it.PhotoURI == nil {
		return ""
	}
	return *it.PhotoURI
}
