package view_test

import (
	"testing"

	"github.com/jjenkins/orgadmin/internal/view"
	"github.com/stretchr/testify/assert"
)

func params(kv map[string]string) func(string) string {
	return func(k string) string { return kv[k] }
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		params map[string]string
		want   view.Mode
	}{
		{"none", "", nil, view.NoMode{}},
		{"unknown kind", "delete-everything", map[string]string{"unit": "1"}, view.NoMode{}},
		{"edit unit", "edit-unit", map[string]string{"unit": "1"}, view.EditUnit{UnitID: "1"}},
		{"edit without unit", "edit-unit", nil, view.NoMode{}},
		{"assign commander", "assign-commander", map[string]string{"unit": "2"}, view.AssignCommander{UnitID: "2"}},
		{"move unit", "move-unit", map[string]string{"unit": "4"}, view.MoveUnit{UnitID: "4"}},
		{"create position", "create-position", map[string]string{"unit": "3"}, view.CreatePosition{UnitID: "3"}},
		{"assign holder", "assign-holder", map[string]string{"position": "10"}, view.AssignHolder{PositionID: "10"}},
		{"assign holder needs position", "assign-holder", map[string]string{"unit": "10"}, view.NoMode{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := view.ParseMode(tt.kind, params(tt.params))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Kind(), got.Kind())
		})
	}
}
