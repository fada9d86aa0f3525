// Package command turns administrative intents into backend API calls.
// Every mutation of the organization goes through a Dispatcher.
package command

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Command type names used in the {"type", "payload"} envelope
const (
	TypeCreateUnit      = "create_unit"
	TypeUpdateUnit      = "update_unit"
	TypeMoveUnit        = "move_unit"
	TypeDeleteUnit      = "delete_unit"
	TypeAssignCommander = "assign_commander"
	TypeCreatePosition  = "create_position"
	TypeDeletePosition  = "delete_position"
	TypeAssignHolder    = "assign_holder"
	TypeVacatePosition  = "vacate_position"
	TypeUpsertSlot      = "upsert_slot"
)

// Command is an administrative intent
type Command interface {
	Type() string
}

type CreateUnit struct {
	Name         string `json:"name" validate:"required,max=200"`
	Abbreviation string `json:"abbreviation" validate:"max=50"`
	ParentID     string `json:"parent_id"`
	BranchID     string `json:"branch_id"`
	UnitType     string `json:"unit_type"`
	Motto        string `json:"motto"`
	Location     string `json:"location"`
	Established  string `json:"established_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateUnit changes unit fields. The parent cannot be changed here; use MoveUnit.
type UpdateUnit struct {
	UnitID  string         `json:"unit_id" validate:"required"`
	Changes map[string]any `json:"changes" validate:"required,min=1"`
}

// MoveUnit reparents a unit. An empty NewParentID makes it a root.
type MoveUnit struct {
	UnitID      string `json:"unit_id" validate:"required"`
	NewParentID string `json:"new_parent_id"`
}

type DeleteUnit struct {
	UnitID string `json:"unit_id" validate:"required"`
}

type AssignCommander struct {
	UnitID string `json:"unit_id" validate:"required"`
	UserID string `json:"user_id" validate:"required"`
}

type CreatePosition struct {
	UnitID       string `json:"unit_id" validate:"required"`
	RoleID       string `json:"role_id"`
	DisplayTitle string `json:"display_title" validate:"required,max=200"`
	Title        string `json:"title"`
	Identifier   string `json:"identifier" validate:"max=50"`
}

type DeletePosition struct {
	PositionID string `json:"position_id" validate:"required"`
}

type AssignHolder struct {
	PositionID string `json:"position_id" validate:"required"`
	UserID     string `json:"user_id" validate:"required"`
}

type VacatePosition struct {
	PositionID string `json:"position_id" validate:"required"`
}

// UpsertSlot creates a recruitment slot, or updates it when SlotID is set
type UpsertSlot struct {
	SlotID        string `json:"slot_id"`
	UnitID        string `json:"unit_id" validate:"required"`
	RoleID        string `json:"role_id"`
	CareerTrack   string `json:"career_track"`
	TotalSlots    int    `json:"total_slots" validate:"gte=0"`
	FilledSlots   int    `json:"filled_slots" validate:"gte=0"`
	ReservedSlots int    `json:"reserved_slots" validate:"gte=0"`
	IsActive      *bool  `json:"is_active"`
}

func (CreateUnit) Type() string      { return TypeCreateUnit }
func (UpdateUnit) Type() string      { return TypeUpdateUnit }
func (MoveUnit) Type() string        { return TypeMoveUnit }
func (DeleteUnit) Type() string      { return TypeDeleteUnit }
func (AssignCommander) Type() string { return TypeAssignCommander }
func (CreatePosition) Type() string  { return TypeCreatePosition }
func (DeletePosition) Type() string  { return TypeDeletePosition }
func (AssignHolder) Type() string    { return TypeAssignHolder }
func (VacatePosition) Type() string  { return TypeVacatePosition }
func (UpsertSlot) Type() string      { return TypeUpsertSlot }

var decoders = map[string]func(json.RawMessage) (Command, error){
	TypeCreateUnit:      decodeAs[CreateUnit],
	TypeUpdateUnit:      decodeAs[UpdateUnit],
	TypeMoveUnit:        decodeAs[MoveUnit],
	TypeDeleteUnit:      decodeAs[DeleteUnit],
	TypeAssignCommander: decodeAs[AssignCommander],
	TypeCreatePosition:  decodeAs[CreatePosition],
	TypeDeletePosition:  decodeAs[DeletePosition],
	TypeAssignHolder:    decodeAs[AssignHolder],
	TypeVacatePosition:  decodeAs[VacatePosition],
	TypeUpsertSlot:      decodeAs[UpsertSlot],
}

func decodeAs[T Command](payload json.RawMessage) (Command, error) {
	var cmd T
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrInvalid, cmd.Type(), err)
	}
	return cmd, nil
}

// Envelope is the wire form of a command
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode builds a command from its type name and JSON payload
func Decode(typ string, payload json.RawMessage) (Command, error) {
	decode, ok := decoders[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, typ)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		payload = json.RawMessage("{}")
	}
	return decode(payload)
}

// DecodeEnvelope parses a {"type", "payload"} document
func DecodeEnvelope(body []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return Decode(env.Type, env.Payload)
}
