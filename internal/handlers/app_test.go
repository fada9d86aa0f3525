package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jjenkins/orgadmin/internal/command"
	"github.com/jjenkins/orgadmin/internal/handlers"
	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/jjenkins/orgadmin/internal/service"
	"github.com/jjenkins/orgadmin/internal/view"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `{
	"units": [
		{"id": 1, "name": "1st Division", "abbreviation": "1ID", "branch": {"id": 7, "name": "Army"}},
		{"id": 2, "name": "1st Brigade", "parent_unit": 1},
		{"id": 3, "name": "2nd Brigade", "parent_unit": 1},
		{"id": 4, "name": "Alpha Company", "parent_unit": 2},
		{"id": 5, "name": "Lost Platoon", "parent_unit": 99}
	],
	"positions": [
		{"id": 10, "unit": 2, "display_title": "XO", "is_vacant": false,
		 "current_holder": {"rank": "CPT", "username": "Smith"}},
		{"id": 11, "unit": 4, "display_title": "CO", "is_vacant": true},
		{"id": 12, "unit": 404, "display_title": "Ghost", "is_vacant": true}
	],
	"recruitment_slots": [
		{"id": 1, "unit": 4, "total_slots": 10, "filled_slots": 4, "reserved_slots": 1}
	],
	"members": [
		{"id": 1, "unit": 4, "rank": "PVT", "username": "Jones"}
	]
}`

func fixtureSource(t *testing.T) service.Source {
	t.Helper()
	src, err := service.ParseFixture([]byte(fixture))
	require.NoError(t, err)
	return src
}

type stubBackend struct {
	moved map[string]any
}

func (b *stubBackend) CreateUnit(_ context.Context, u model.UnitRecord) (*model.UnitRecord, error) {
	u.ID = "6"
	return &u, nil
}

func (b *stubBackend) UpdateUnit(_ context.Context, id string, changes map[string]any) (*model.UnitRecord, error) {
	b.moved = changes
	return &model.UnitRecord{ID: id}, nil
}

func (b *stubBackend) DeleteUnit(context.Context, string) error { return nil }

func (b *stubBackend) SetCommander(context.Context, string, string) error { return nil }

func (b *stubBackend) CreatePosition(_ context.Context, p model.PositionRecord) (*model.PositionRecord, error) {
	p.ID = "13"
	return &p, nil
}

func (b *stubBackend) DeletePosition(context.Context, string) error { return nil }

func (b *stubBackend) AssignHolder(context.Context, string, string) error {
	return &service.APIError{Method: "POST", URL: "/positions/10/assign/", StatusCode: 403, Detail: "forbidden"}
}

func (b *stubBackend) VacatePosition(context.Context, string) error {
	return errors.New("connection refused")
}

func (b *stubBackend) UpsertSlot(_ context.Context, s model.RecruitmentSlot) (*model.RecruitmentSlot, error) {
	return &s, nil
}

func newApp(t *testing.T, secret string) (*fiber.App, *stubBackend) {
	t.Helper()
	src := fixtureSource(t)
	logger, _ := test.NewNullLogger()
	backend := &stubBackend{}
	app := handlers.NewApp(handlers.Deps{
		Source:     src,
		Dispatcher: command.NewDispatcher(backend, src, logger),
		JWTSecret:  secret,
		Logger:     logger,
	})
	return app, backend
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func get(t *testing.T, app *fiber.App, target string, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return do(t, app, req)
}

func expandCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "units_expanded" {
			return c
		}
	}
	t.Fatal("expand cookie not set")
	return nil
}

func TestHome(t *testing.T) {
	app, _ := newApp(t, "")

	resp, body := get(t, app, "/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Alpha Company", "largest unit by members")
}

func TestUnits_CollapsedByDefault(t *testing.T) {
	app, _ := newApp(t, "")

	resp, body := get(t, app, "/units")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "1st Division")
	assert.Contains(t, body, "Lost Platoon", "orphans are shown at the top level")
	assert.NotContains(t, body, "1st Brigade")
	assert.Contains(t, body, "1 orphaned")
}

func TestUnits_ToggleSetsCookie(t *testing.T) {
	app, _ := newApp(t, "")

	resp, _ := get(t, app, "/units/toggle/1")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/units", resp.Header.Get("Location"))
	cookie := expandCookie(t, resp)
	assert.Equal(t, []string{"1"}, view.DecodeExpandState(cookie.Value).IDs())

	_, body := get(t, app, "/units", cookie)
	assert.Contains(t, body, "1st Brigade")
	assert.NotContains(t, body, "Alpha Company")

	// Toggling again collapses
	resp, _ = get(t, app, "/units/toggle/1", cookie)
	assert.Equal(t, 0, view.DecodeExpandState(expandCookie(t, resp).Value).Len())
}

func TestUnits_ExpandAllKeepsQuery(t *testing.T) {
	app, _ := newApp(t, "")

	resp, _ := get(t, app, "/units/expand-all?q=alpha")

	assert.Equal(t, "/units?q=alpha", resp.Header.Get("Location"))
	assert.Equal(t, []string{"1", "2"}, view.DecodeExpandState(expandCookie(t, resp).Value).IDs())

	resp, _ = get(t, app, "/units/collapse-all")
	assert.Equal(t, 0, view.DecodeExpandState(expandCookie(t, resp).Value).Len())
}

func TestUnits_SearchShowsMatchesWithAncestors(t *testing.T) {
	app, _ := newApp(t, "")

	_, body := get(t, app, "/units?q=alpha")

	assert.Contains(t, body, "1st Division")
	assert.Contains(t, body, "1st Brigade")
	assert.Contains(t, body, "Alpha Company")
	assert.NotContains(t, body, "2nd Brigade")
}

func TestUnits_ModeOverlay(t *testing.T) {
	app, _ := newApp(t, "")

	_, body := get(t, app, "/units?mode=move-unit&unit=2")

	assert.Contains(t, body, `action="/units/commands"`)
	assert.Contains(t, body, `value="move-unit"`)
}

func TestUnits_HTMXRendersFragment(t *testing.T) {
	app, _ := newApp(t, "")
	req := httptest.NewRequest(http.MethodGet, "/units", nil)
	req.Header.Set("HX-Request", "true")

	_, body := do(t, app, req)

	assert.Contains(t, body, `id="units"`)
	assert.NotContains(t, body, "<html")
}

func TestUnitDetail(t *testing.T) {
	app, _ := newApp(t, "")

	resp, body := get(t, app, "/units/4")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Alpha Company")
	assert.Contains(t, body, "Jones")
	assert.Equal(t, []string{"1", "2"}, view.DecodeExpandState(expandCookie(t, resp).Value).IDs())
}

func TestUnitDetail_NotFound(t *testing.T) {
	app, _ := newApp(t, "")

	resp, body := get(t, app, "/units/404")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Unit not found")
}

func TestPositionsAndRecruitment(t *testing.T) {
	app, _ := newApp(t, "")

	resp, body := get(t, app, "/positions")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "XO")
	assert.Contains(t, body, "Ghost")

	resp, _ = get(t, app, "/recruitment")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExportCSV(t *testing.T) {
	app, _ := newApp(t, "")

	resp, body := get(t, app, "/export/positions.csv")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "positions-")
	lines := strings.Split(body, "\n")
	require.Len(t, lines, 3, "header plus one line per attached position")
	assert.Equal(t, "XO,,CPT Smith,-,1st Brigade,-,Filled", lines[1])
	assert.Equal(t, "CO,,VACANT,-,Alpha Company,-,Vacant", lines[2])
}

func TestExportXLSX(t *testing.T) {
	app, _ := newApp(t, "")

	resp, body := get(t, app, "/export/positions.xlsx")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "PK"), "xlsx is a zip archive")
}

func TestHierarchyAPI(t *testing.T) {
	app, _ := newApp(t, "")

	resp, body := get(t, app, "/api/hierarchy")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc struct {
		Units int `json:"units"`
		Roots []struct {
			ID       string `json:"id"`
			Children []struct {
				ID string `json:"id"`
			} `json:"children"`
		} `json:"roots"`
		Diagnostics struct {
			Orphans []struct {
				ID string `json:"id"`
			} `json:"orphans"`
		} `json:"diagnostics"`
		UnmatchedPositions []struct {
			ID string `json:"id"`
		} `json:"unmatched_positions"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &doc))

	assert.Equal(t, 5, doc.Units)
	require.Len(t, doc.Roots, 2)
	assert.Equal(t, "1", doc.Roots[0].ID)
	assert.Len(t, doc.Roots[0].Children, 2)
	require.Len(t, doc.Diagnostics.Orphans, 1)
	assert.Equal(t, "5", doc.Diagnostics.Orphans[0].ID)
	require.Len(t, doc.UnmatchedPositions, 1)
	assert.Equal(t, "12", doc.UnmatchedPositions[0].ID)
}

func postCommand(t *testing.T, app *fiber.App, body, token string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/commands", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(t, app, req)
}

func TestCommandsAPI(t *testing.T) {
	app, backend := newApp(t, "")

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"move", `{"type": "move_unit", "payload": {"unit_id": "4", "new_parent_id": "3"}}`, http.StatusOK},
		{"cycle", `{"type": "move_unit", "payload": {"unit_id": "1", "new_parent_id": "4"}}`, http.StatusConflict},
		{"unknown parent", `{"type": "move_unit", "payload": {"unit_id": "4", "new_parent_id": "99"}}`, http.StatusNotFound},
		{"unknown type", `{"type": "promote_everyone", "payload": {}}`, http.StatusBadRequest},
		{"invalid payload", `{"type": "create_unit", "payload": {}}`, http.StatusBadRequest},
		{"overcommitted", `{"type": "upsert_slot", "payload": {"unit_id": "4", "total_slots": 1, "filled_slots": 2}}`, http.StatusConflict},
		{"backend client error", `{"type": "assign_holder", "payload": {"position_id": "10", "user_id": "9"}}`, http.StatusForbidden},
		{"backend unreachable", `{"type": "vacate_position", "payload": {"position_id": "10"}}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postCommand(t, app, tt.body, "")
			assert.Equal(t, tt.status, resp.StatusCode, body)
		})
	}

	assert.Equal(t, map[string]any{"parent_unit": "3"}, backend.moved)
}

func TestCommandsAPI_Disabled(t *testing.T) {
	app := handlers.NewApp(handlers.Deps{Source: fixtureSource(t)})

	resp, _ := postCommand(t, app, `{"type": "delete_unit", "payload": {"unit_id": "4"}}`, "")

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func signed(t *testing.T, secret string, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestCommandsAPI_RequiresToken(t *testing.T) {
	app, _ := newApp(t, "s3cret")
	body := `{"type": "delete_unit", "payload": {"unit_id": "4"}}`

	resp, _ := postCommand(t, app, body, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = postCommand(t, app, body, signed(t, "wrong", jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = postCommand(t, app, body, signed(t, "s3cret", jwt.SigningMethodHS512))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, respBody := postCommand(t, app, body, signed(t, "s3cret", jwt.SigningMethodHS256))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, respBody, "Unit 4 deleted")
}

func moveForm() *http.Request {
	form := url.Values{
		"mode":          {"move-unit"},
		"unit_id":       {"4"},
		"new_parent_id": {""},
	}
	req := httptest.NewRequest(http.MethodPost, "/units/commands", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestUnitForm(t *testing.T) {
	app, backend := newApp(t, "")

	resp, _ := do(t, app, moveForm())

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/units?flash="+url.QueryEscape("Unit 4 moved"), resp.Header.Get("Location"))
	assert.Equal(t, map[string]any{"parent_unit": nil}, backend.moved)
}

func TestUnitForm_RequiresToken(t *testing.T) {
	app, backend := newApp(t, "s3cret")

	resp, _ := do(t, app, moveForm())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Nil(t, backend.moved)

	req := moveForm()
	req.AddCookie(&http.Cookie{Name: handlers.AuthCookie, Value: signed(t, "wrong", jwt.SigningMethodHS256)})
	resp, _ = do(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Nil(t, backend.moved)

	req = moveForm()
	req.AddCookie(&http.Cookie{Name: handlers.AuthCookie, Value: signed(t, "s3cret", jwt.SigningMethodHS256)})
	resp, _ = do(t, app, req)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, map[string]any{"parent_unit": nil}, backend.moved)
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newApp(t, "")
	get(t, app, "/export/positions.csv")

	resp, body := get(t, app, "/metrics")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "orgadmin_exports_total")
}
