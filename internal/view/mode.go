package view

// ModeKind names the overlay active on a unit page
type ModeKind string

const (
	KindNone            ModeKind = ""
	KindEditUnit        ModeKind = "edit-unit"
	KindAssignCommander ModeKind = "assign-commander"
	KindMoveUnit        ModeKind = "move-unit"
	KindCreatePosition  ModeKind = "create-position"
	KindAssignHolder    ModeKind = "assign-holder"
)

// Mode is the single overlay state of a page. Exactly one mode is active at
// a time; NoMode means no overlay.
type Mode interface {
	Kind() ModeKind
}

type NoMode struct{}

type EditUnit struct{ UnitID string }

type AssignCommander struct{ UnitID string }

type MoveUnit struct{ UnitID string }

type CreatePosition struct{ UnitID string }

type AssignHolder struct{ PositionID string }

func (NoMode) Kind() ModeKind          { return KindNone }
func (EditUnit) Kind() ModeKind        { return KindEditUnit }
func (AssignCommander) Kind() ModeKind { return KindAssignCommander }
func (MoveUnit) Kind() ModeKind        { return KindMoveUnit }
func (CreatePosition) Kind() ModeKind  { return KindCreatePosition }
func (AssignHolder) Kind() ModeKind    { return KindAssignHolder }

// ParseMode builds a Mode from request parameters. An unknown kind or a
// missing target id yields NoMode.
func ParseMode(kind string, param func(key string) string) Mode {
	unitID := param("unit")
	switch ModeKind(kind) {
	case KindEditUnit:
		if unitID != "" {
			return EditUnit{UnitID: unitID}
		}
	case KindAssignCommander:
		if unitID != "" {
			return AssignCommander{UnitID: unitID}
		}
	case KindMoveUnit:
		if unitID != "" {
			return MoveUnit{UnitID: unitID}
		}
	case KindCreatePosition:
		if unitID != "" {
			return CreatePosition{UnitID: unitID}
		}
	case KindAssignHolder:
		if id := param("position"); id != "" {
			return AssignHolder{PositionID: id}
		}
	}
	return NoMode{}
}
