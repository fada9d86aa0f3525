package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jjenkins/orgadmin/internal/model"
)

func itemPath(collection, id string) string {
	return fmt.Sprintf("%s%s/", collection, url.PathEscape(id))
}

func unitPayload(u model.UnitRecord) map[string]any {
	payload := map[string]any{
		"name":             u.Name,
		"abbreviation":     u.Abbreviation,
		"unit_type":        u.UnitType,
		"motto":            u.Motto,
		"location":         u.Location,
		"established_date": u.Established,
		"is_active":        u.IsActive,
		"parent_unit":      nil,
	}
	if u.HasParent() {
		payload["parent_unit"] = *u.ParentID
	}
	if u.Branch != nil {
		payload["branch"] = u.Branch.ID
	}
	return payload
}

// asArray wraps a single-object response so the list parsers can decode it.
// An empty response yields nil.
func asArray(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.RawMessage("[" + string(raw) + "]")
}

// decodeUnit parses a unit response, returning sent when the body is empty
func (c *APIClient) decodeUnit(raw json.RawMessage, sent model.UnitRecord) (*model.UnitRecord, error) {
	items := asArray(raw)
	if items == nil {
		return &sent, nil
	}
	units, err := c.parser.ParseUnits(items)
	if err != nil {
		return nil, err
	}
	return &units[0], nil
}

// CreateUnit creates a unit and returns the stored record
func (c *APIClient) CreateUnit(ctx context.Context, u model.UnitRecord) (*model.UnitRecord, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/units/", unitPayload(u), &raw); err != nil {
		return nil, fmt.Errorf("failed to create unit: %w", err)
	}
	return c.decodeUnit(raw, u)
}

// UpdateUnit applies a partial update to a unit
func (c *APIClient) UpdateUnit(ctx context.Context, id string, changes map[string]any) (*model.UnitRecord, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPatch, itemPath("/units/", id), changes, &raw); err != nil {
		return nil, fmt.Errorf("failed to update unit %s: %w", id, err)
	}
	return c.decodeUnit(raw, model.UnitRecord{ID: id})
}

// DeleteUnit deletes a unit
func (c *APIClient) DeleteUnit(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, itemPath("/units/", id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete unit %s: %w", id, err)
	}
	return nil
}

// SetCommander assigns a user as the commander of a unit
func (c *APIClient) SetCommander(ctx context.Context, unitID, userID string) error {
	path := itemPath("/units/", unitID) + "assign-commander/"
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"user_id": userID}, nil); err != nil {
		return fmt.Errorf("failed to assign commander for unit %s: %w", unitID, err)
	}
	return nil
}

// CreatePosition creates a position and returns the stored record
func (c *APIClient) CreatePosition(ctx context.Context, p model.PositionRecord) (*model.PositionRecord, error) {
	payload := map[string]any{
		"unit":          p.UnitID,
		"display_title": p.DisplayTitle,
		"title":         p.Title,
		"identifier":    p.Identifier,
	}
	if p.Role != nil {
		payload["role"] = p.Role.ID
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/positions/", payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to create position: %w", err)
	}
	items := asArray(raw)
	if items == nil {
		return &p, nil
	}
	positions, err := c.parser.ParsePositions(items)
	if err != nil {
		return nil, err
	}
	return &positions[0], nil
}

// DeletePosition deletes a position
func (c *APIClient) DeletePosition(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, itemPath("/positions/", id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete position %s: %w", id, err)
	}
	return nil
}

// AssignHolder places a user in a position
func (c *APIClient) AssignHolder(ctx context.Context, positionID, userID string) error {
	path := itemPath("/positions/", positionID) + "assign/"
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"user_id": userID}, nil); err != nil {
		return fmt.Errorf("failed to assign position %s: %w", positionID, err)
	}
	return nil
}

// VacatePosition removes the current holder of a position
func (c *APIClient) VacatePosition(ctx context.Context, positionID string) error {
	path := itemPath("/positions/", positionID) + "vacate/"
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("failed to vacate position %s: %w", positionID, err)
	}
	return nil
}

// UpsertSlot creates a recruitment slot, or updates it when the ID is set
func (c *APIClient) UpsertSlot(ctx context.Context, s model.RecruitmentSlot) (*model.RecruitmentSlot, error) {
	payload := map[string]any{
		"unit":           s.UnitID,
		"career_track":   s.CareerTrack,
		"total_slots":    s.TotalSlots,
		"filled_slots":   s.FilledSlots,
		"reserved_slots": s.ReservedSlots,
		"is_active":      s.IsActive,
	}
	if s.Role != nil {
		payload["role"] = s.Role.ID
	}

	method, path := http.MethodPost, "/recruitment/slots/"
	if s.ID != "" {
		method, path = http.MethodPatch, itemPath("/recruitment/slots/", s.ID)
	}

	var raw json.RawMessage
	if err := c.do(ctx, method, path, payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to save recruitment slot: %w", err)
	}
	items := asArray(raw)
	if items == nil {
		return &s, nil
	}
	slots, err := c.parser.ParseSlots(items)
	if err != nil {
		return nil, err
	}
	return &slots[0], nil
}
