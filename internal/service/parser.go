package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jjenkins/orgadmin/internal/model"
)

// looseString decodes any JSON scalar into its string form. An object
// decodes to its "id" member, so foreign keys may be sent either as bare
// ids or as embedded records.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}

	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
	case '{':
		var obj struct {
			ID looseString `json:"id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*s = obj.ID
	case '[':
		return fmt.Errorf("cannot decode array into string")
	default:
		if !json.Valid(b) {
			return fmt.Errorf("invalid scalar %q", b)
		}
		*s = looseString(b)
	}
	return nil
}

// refJSON decodes a reference given as a bare id or as an object
type refJSON struct {
	ID           string
	Name         string
	Abbreviation string
}

func (r *refJSON) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			ID           looseString `json:"id"`
			Name         looseString `json:"name"`
			Abbreviation looseString `json:"abbreviation"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*r = refJSON{ID: string(obj.ID), Name: string(obj.Name), Abbreviation: string(obj.Abbreviation)}
		return nil
	}

	var id looseString
	if err := id.UnmarshalJSON(b); err != nil {
		return err
	}
	*r = refJSON{ID: string(id)}
	return nil
}

// rankJSON decodes a rank given as its abbreviation or as a rank object
type rankJSON string

func (r *rankJSON) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			Abbreviation looseString `json:"abbreviation"`
			Name         looseString `json:"name"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		if obj.Abbreviation != "" {
			*r = rankJSON(obj.Abbreviation)
		} else {
			*r = rankJSON(obj.Name)
		}
		return nil
	}

	var v looseString
	if err := v.UnmarshalJSON(b); err != nil {
		return err
	}
	*r = rankJSON(v)
	return nil
}

// unitJSON represents a unit in the API response
type unitJSON struct {
	ID              looseString `json:"id"`
	ParentUnit      looseString `json:"parent_unit"`
	Name            looseString `json:"name"`
	Abbreviation    looseString `json:"abbreviation"`
	Branch          *refJSON    `json:"branch"`
	UnitType        looseString `json:"unit_type"`
	Motto           looseString `json:"motto"`
	Location        looseString `json:"location"`
	EstablishedDate looseString `json:"established_date"`
	IsActive        *bool       `json:"is_active"`
	Commander       looseString `json:"commander"`
}

type holderJSON struct {
	ID            looseString `json:"id"`
	Rank          rankJSON    `json:"rank"`
	Username      looseString `json:"username"`
	ServiceNumber looseString `json:"service_number"`
}

// positionJSON represents a position in the API response
type positionJSON struct {
	ID            looseString `json:"id"`
	Unit          looseString `json:"unit"`
	Role          *refJSON    `json:"role"`
	DisplayTitle  looseString `json:"display_title"`
	Title         looseString `json:"title"`
	Identifier    looseString `json:"identifier"`
	IsVacant      bool        `json:"is_vacant"`
	CurrentHolder *holderJSON `json:"current_holder"`
}

// slotJSON represents a recruitment slot in the API response
type slotJSON struct {
	ID            looseString `json:"id"`
	Unit          looseString `json:"unit"`
	Role          *refJSON    `json:"role"`
	CareerTrack   looseString `json:"career_track"`
	TotalSlots    looseString `json:"total_slots"`
	FilledSlots   looseString `json:"filled_slots"`
	ReservedSlots looseString `json:"reserved_slots"`
	IsActive      *bool       `json:"is_active"`
}

// memberJSON represents a unit member in the API response
type memberJSON struct {
	ID            looseString `json:"id"`
	Unit          looseString `json:"unit"`
	PrimaryUnit   looseString `json:"primary_unit"`
	Rank          rankJSON    `json:"rank"`
	Username      looseString `json:"username"`
	ServiceNumber looseString `json:"service_number"`
}

// pageJSON is the paginated envelope some list endpoints return
type pageJSON struct {
	Results json.RawMessage `json:"results"`
	Next    looseString     `json:"next"`
}

// Parser decodes backend list payloads into model records
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// Unwrap returns the item array of a payload and the next-page URL, if any.
// A payload may be a bare array or a {"results": [...], "next": ...} envelope.
func (p *Parser) Unwrap(body []byte) (json.RawMessage, string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return json.RawMessage("[]"), "", nil
	}
	if body[0] == '[' {
		return body, "", nil
	}

	var page pageJSON
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, "", fmt.Errorf("failed to parse page envelope: %w", err)
	}
	if len(page.Results) == 0 || bytes.Equal(bytes.TrimSpace(page.Results), []byte("null")) {
		return json.RawMessage("[]"), string(page.Next), nil
	}
	return page.Results, string(page.Next), nil
}

// ParseUnits decodes a unit array
func (p *Parser) ParseUnits(items json.RawMessage) ([]model.UnitRecord, error) {
	var raw []unitJSON
	if err := json.Unmarshal(items, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse units: %w", err)
	}

	units := make([]model.UnitRecord, len(raw))
	for i, u := range raw {
		units[i] = convertUnitJSON(u)
	}
	return units, nil
}

func convertUnitJSON(u unitJSON) model.UnitRecord {
	rec := model.UnitRecord{
		ID:           string(u.ID),
		ParentID:     model.StringPtr(string(u.ParentUnit)),
		Name:         string(u.Name),
		Abbreviation: string(u.Abbreviation),
		UnitType:     string(u.UnitType),
		Motto:        string(u.Motto),
		Location:     string(u.Location),
		Established:  string(u.EstablishedDate),
		IsActive:     u.IsActive == nil || *u.IsActive,
		CommanderID:  string(u.Commander),
	}
	if u.Branch != nil && u.Branch.ID != "" {
		rec.Branch = &model.BranchRef{
			ID:           u.Branch.ID,
			Name:         u.Branch.Name,
			Abbreviation: u.Branch.Abbreviation,
		}
	}
	return rec
}

// ParsePositions decodes a position array
func (p *Parser) ParsePositions(items json.RawMessage) ([]model.PositionRecord, error) {
	var raw []positionJSON
	if err := json.Unmarshal(items, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse positions: %w", err)
	}

	positions := make([]model.PositionRecord, len(raw))
	for i, r := range raw {
		pos := model.PositionRecord{
			ID:           string(r.ID),
			UnitID:       string(r.Unit),
			Role:         convertRole(r.Role),
			DisplayTitle: string(r.DisplayTitle),
			Title:        string(r.Title),
			Identifier:   string(r.Identifier),
			IsVacant:     r.IsVacant,
		}
		if r.CurrentHolder != nil {
			pos.CurrentHolder = &model.Holder{
				UserID:        string(r.CurrentHolder.ID),
				Rank:          string(r.CurrentHolder.Rank),
				Username:      string(r.CurrentHolder.Username),
				ServiceNumber: string(r.CurrentHolder.ServiceNumber),
			}
		}
		positions[i] = pos
	}
	return positions, nil
}

// ParseSlots decodes a recruitment slot array
func (p *Parser) ParseSlots(items json.RawMessage) ([]model.RecruitmentSlot, error) {
	var raw []slotJSON
	if err := json.Unmarshal(items, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse recruitment slots: %w", err)
	}

	slots := make([]model.RecruitmentSlot, len(raw))
	for i, r := range raw {
		slots[i] = model.RecruitmentSlot{
			ID:            string(r.ID),
			UnitID:        string(r.Unit),
			Role:          convertRole(r.Role),
			CareerTrack:   string(r.CareerTrack),
			TotalSlots:    atoi(r.TotalSlots),
			FilledSlots:   atoi(r.FilledSlots),
			ReservedSlots: atoi(r.ReservedSlots),
			IsActive:      r.IsActive == nil || *r.IsActive,
		}
	}
	return slots, nil
}

// ParseMembers decodes a member array. The unit key falls back to primary_unit.
func (p *Parser) ParseMembers(items json.RawMessage) ([]model.MemberRecord, error) {
	var raw []memberJSON
	if err := json.Unmarshal(items, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse members: %w", err)
	}

	members := make([]model.MemberRecord, 0, len(raw))
	for _, r := range raw {
		unitID := string(r.Unit)
		if unitID == "" {
			unitID = string(r.PrimaryUnit)
		}
		members = append(members, model.MemberRecord{
			ID:            string(r.ID),
			UnitID:        unitID,
			Rank:          string(r.Rank),
			Username:      string(r.Username),
			ServiceNumber: string(r.ServiceNumber),
		})
	}
	return members, nil
}

func convertRole(r *refJSON) *model.RoleRef {
	if r == nil || (r.ID == "" && r.Name == "") {
		return nil
	}
	return &model.RoleRef{ID: r.ID, Name: r.Name}
}

// atoi converts a loosely decoded count, treating anything non-numeric as 0
func atoi(s looseString) int {
	if n, err := strconv.Atoi(string(s)); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(string(s), 64); err == nil {
		return int(f)
	}
	return 0
}
