package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/jjenkins/orgadmin/internal/store"
	"gopkg.in/yaml.v3"
)

// Source provides the raw organization records the hierarchy is built from
type Source interface {
	Units(ctx context.Context) ([]model.UnitRecord, error)
	Positions(ctx context.Context) ([]model.PositionRecord, error)
	Slots(ctx context.Context) ([]model.RecruitmentSlot, error)
	Members(ctx context.Context) ([]model.MemberRecord, error)
}

// StoreSource reads records from the local database
type StoreSource struct {
	units     *store.UnitStore
	positions *store.PositionStore
	slots     *store.SlotStore
	members   *store.MemberStore
}

// NewStoreSource creates a Source backed by the database stores
func NewStoreSource(units *store.UnitStore, positions *store.PositionStore, slots *store.SlotStore, members *store.MemberStore) *StoreSource {
	return &StoreSource{units: units, positions: positions, slots: slots, members: members}
}

func (s *StoreSource) Units(ctx context.Context) ([]model.UnitRecord, error) {
	return s.units.GetAll(ctx)
}

func (s *StoreSource) Positions(ctx context.Context) ([]model.PositionRecord, error) {
	return s.positions.GetAll(ctx)
}

func (s *StoreSource) Slots(ctx context.Context) ([]model.RecruitmentSlot, error) {
	return s.slots.GetAll(ctx)
}

func (s *StoreSource) Members(ctx context.Context) ([]model.MemberRecord, error) {
	return s.members.GetAll(ctx)
}

// LiveSource reads records straight from the backend API
type LiveSource struct {
	client *APIClient
}

// NewLiveSource creates a Source backed by the API client
func NewLiveSource(client *APIClient) *LiveSource {
	return &LiveSource{client: client}
}

func (s *LiveSource) Units(ctx context.Context) ([]model.UnitRecord, error) {
	return s.client.FetchUnits(ctx)
}

func (s *LiveSource) Positions(ctx context.Context) ([]model.PositionRecord, error) {
	return s.client.FetchPositions(ctx)
}

func (s *LiveSource) Slots(ctx context.Context) ([]model.RecruitmentSlot, error) {
	return s.client.FetchRecruitmentSlots(ctx)
}

func (s *LiveSource) Members(ctx context.Context) ([]model.MemberRecord, error) {
	return s.client.FetchMembers(ctx)
}

// FileSource holds records loaded from a YAML or JSON fixture. The fixture
// uses the same field names as the API, grouped under the keys units,
// positions, recruitment_slots and members.
type FileSource struct {
	units     []model.UnitRecord
	positions []model.PositionRecord
	slots     []model.RecruitmentSlot
	members   []model.MemberRecord
}

type fixtureJSON struct {
	Units     json.RawMessage `json:"units"`
	Positions json.RawMessage `json:"positions"`
	Slots     json.RawMessage `json:"recruitment_slots"`
	Members   json.RawMessage `json:"members"`
}

// LoadFileSource reads a fixture file. Files ending in .json are parsed as
// JSON, everything else as YAML.
func LoadFileSource(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	if !strings.EqualFold(filepath.Ext(path), ".json") {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
		}
		data, err = json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert fixture %s: %w", path, err)
		}
	}

	return ParseFixture(data)
}

// ParseFixture decodes a JSON fixture document
func ParseFixture(data []byte) (*FileSource, error) {
	var doc fixtureJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}

	p := NewParser()
	src := &FileSource{}
	var err error

	if src.units, err = p.ParseUnits(orEmpty(doc.Units)); err != nil {
		return nil, err
	}
	if src.positions, err = p.ParsePositions(orEmpty(doc.Positions)); err != nil {
		return nil, err
	}
	if src.slots, err = p.ParseSlots(orEmpty(doc.Slots)); err != nil {
		return nil, err
	}
	if src.members, err = p.ParseMembers(orEmpty(doc.Members)); err != nil {
		return nil, err
	}

	return src, nil
}

func orEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("[]")
	}
	return raw
}

func (s *FileSource) Units(context.Context) ([]model.UnitRecord, error) {
	return s.units, nil
}

func (s *FileSource) Positions(context.Context) ([]model.PositionRecord, error) {
	return s.positions, nil
}

func (s *FileSource) Slots(context.Context) ([]model.RecruitmentSlot, error) {
	return s.slots, nil
}

func (s *FileSource) Members(context.Context) ([]model.MemberRecord, error) {
	return s.members, nil
}
