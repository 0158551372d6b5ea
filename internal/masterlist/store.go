package masterlist

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"fundlens/internal/artifacts"
)

// MasterTTL is how long a persisted master map is served without a rebuild.
const MasterTTL = 24 * time.Hour

// masterPayload is the on-disk shape of the active-scheme master map.
type masterPayload struct {
	Meta   masterMeta        `json:"meta"`
	Master map[string]string `json:"master"`
}

type masterMeta struct {
	Ts         int64 `json:"ts"`
	TotalCodes int   `json:"total_codes"`
	Active     int   `json:"active"`
	Collisions int   `json:"collisions"`
}

// ParentPayload is the on-disk shape of the parent grouping artifact.
type ParentPayload struct {
	Meta    ParentMeta                 `json:"meta"`
	Parents map[string][]Entry         `json:"parent_groups"`
	Reps    map[string]*Representative `json:"parent_reps"`
}

// ParentMeta describes when and over what the grouping was built.
type ParentMeta struct {
	Ts         int64 `json:"ts"`
	Parents    int   `json:"parents"`
	TotalCodes int   `json:"total_codes"`
}

// MarshalJSON renders an entry as the compact [code, name] pair the
// artifact format uses.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.Code, e.Name})
}

// UnmarshalJSON accepts the [code, name] pair form.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	e.Code, e.Name = pair[0], pair[1]
	return nil
}

// MarshalJSON renders a representative as [code, name, reason, score],
// with nulls for code and name when the group was empty.
func (r *Representative) MarshalJSON() ([]byte, error) {
	if r == nil || r.IsZero() {
		reason := ReasonEmpty
		if r != nil && r.Reason != "" {
			reason = r.Reason
		}
		return json.Marshal([4]any{nil, nil, reason, 0.0})
	}
	return json.Marshal([4]any{r.Code, r.Name, r.Reason, r.Score})
}

// UnmarshalJSON accepts the [code, name, reason, score] tuple form.
func (r *Representative) UnmarshalJSON(data []byte) error {
	var tuple [4]any
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if s, ok := tuple[0].(string); ok {
		r.Code = s
	}
	if s, ok := tuple[1].(string); ok {
		r.Name = s
	}
	if s, ok := tuple[2].(string); ok {
		r.Reason = s
	}
	if f, ok := tuple[3].(float64); ok {
		r.Score = f
	}
	return nil
}

// Store persists the master map and parent grouping artifacts.
type Store struct {
	artifacts *artifacts.Store
	log       zerolog.Logger
}

// NewStore creates the masterlist artifact store.
func NewStore(a *artifacts.Store, log zerolog.Logger) *Store {
	return &Store{
		artifacts: a,
		log:       log.With().Str("component", "masterlist_store").Logger(),
	}
}

// SaveMaster writes the active-scheme master map artifact.
func (s *Store) SaveMaster(master map[string]string, totalCodes, collisions int) error {
	payload := masterPayload{
		Meta: masterMeta{
			Ts:         time.Now().Unix(),
			TotalCodes: totalCodes,
			Active:     len(master),
			Collisions: collisions,
		},
		Master: master,
	}
	return s.artifacts.WriteJSON(artifacts.MasterFile, payload)
}

// LoadMaster returns the persisted master map regardless of age, or nil
// when no artifact exists.
func (s *Store) LoadMaster() map[string]string {
	var payload masterPayload
	if err := s.artifacts.ReadJSON(artifacts.MasterFile, &payload); err != nil {
		return nil
	}
	return payload.Master
}

// LoadMasterIfFresh returns the persisted master map only when it was built
// within MasterTTL.
func (s *Store) LoadMasterIfFresh() (map[string]string, bool) {
	var payload masterPayload
	if err := s.artifacts.ReadJSON(artifacts.MasterFile, &payload); err != nil {
		return nil, false
	}
	if payload.Master == nil || time.Since(time.Unix(payload.Meta.Ts, 0)) > MasterTTL {
		return nil, false
	}
	return payload.Master, true
}

// SaveParents writes the parent grouping artifact.
func (s *Store) SaveParents(groups map[string][]Entry, reps map[string]*Representative, totalCodes int) error {
	payload := ParentPayload{
		Meta: ParentMeta{
			Ts:         time.Now().Unix(),
			Parents:    len(groups),
			TotalCodes: totalCodes,
		},
		Parents: groups,
		Reps:    reps,
	}
	return s.artifacts.WriteJSON(artifacts.ParentFile, payload)
}

// LoadParents returns the persisted parent grouping, or an error when the
// artifact is missing or unreadable.
func (s *Store) LoadParents() (*ParentPayload, error) {
	var payload ParentPayload
	if err := s.artifacts.ReadJSON(artifacts.ParentFile, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
