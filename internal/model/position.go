package model

// RoleRef identifies a role definition
type RoleRef struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Holder is the embedded summary of the user currently holding a position
type Holder struct {
	UserID        string `json:"id,omitempty"`
	Rank          string `json:"rank,omitempty"`
	Username      string `json:"username,omitempty"`
	ServiceNumber string `json:"service_number,omitempty"`
}

// PositionRecord represents one assignable post within a unit
type PositionRecord struct {
	ID            string   `json:"id"`
	UnitID        string   `json:"unit_id"`
	Role          *RoleRef `json:"role,omitempty"`
	DisplayTitle  string   `json:"display_title,omitempty"`
	Title         string   `json:"title,omitempty"`
	Identifier    string   `json:"identifier,omitempty"`
	IsVacant      bool     `json:"is_vacant"`
	CurrentHolder *Holder  `json:"current_holder,omitempty"`
}

// RoleName returns the role name or "" when no role is attached
func (p PositionRecord) RoleName() string {
	if p.Role == nil {
		return ""
	}
	return p.Role.Name
}

// MemberRecord is a user summary listed under a unit
type MemberRecord struct {
	ID            string `json:"id"`
	UnitID        string `json:"unit_id"`
	Rank          string `json:"rank,omitempty"`
	Username      string `json:"username"`
	ServiceNumber string `json:"service_number,omitempty"`
}
