package epochs

import (
	"encoding/json"
	"fmt"
	"io"
)

type jsonStore struct {
	Channels []string          `json:"channels"`
	SFreq    float64           `json:"sfreq"`
	TMin     float64           `json:"tmin"`
	EventID  map[Condition]int `json:"event_id"`
	Trials   []jsonTrial       `json:"trials"`
}

type jsonTrial struct {
	Index     int         `json:"index"`
	Onset     float64     `json:"onset"`
	Condition Condition   `json:"condition"`
	Data      [][]float64 `json:"data"`
}

// ReadJSON decodes an epochs document and validates it with New.
func ReadJSON(r io.Reader) (*Store, error) {
	var doc jsonStore
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode epochs: %w", err)
	}
	trials := make([]Trial, len(doc.Trials))
	for i, t := range doc.Trials {
		trials[i] = Trial{Index: t.Index, Onset: t.Onset, Condition: t.Condition, Data: t.Data}
	}
	return New(Layout{Channels: doc.Channels, SFreq: doc.SFreq, TMin: doc.TMin}, doc.EventID, trials)
}

// WriteJSON encodes s in the format ReadJSON accepts.
func WriteJSON(w io.Writer, s *Store) error {
	doc := jsonStore{
		Channels: s.Channels(),
		SFreq:    s.SFreq(),
		TMin:     s.TMin(),
		EventID:  s.EventID(),
		Trials:   make([]jsonTrial, s.Len()),
	}
	for i, t := range s.trials {
		doc.Trials[i] = jsonTrial{Index: t.Index, Onset: t.Onset, Condition: t.Condition, Data: t.Data}
	}
	return json.NewEncoder(w).Encode(doc)
}
