package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/jjenkins/orgadmin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *service.APIClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := service.NewAPIClient(service.ClientOptions{
		BaseURL:        srv.URL + "/api/",
		Token:          "secret-token",
		InitialBackoff: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestNewAPIClient_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "/api"} {
		_, err := service.NewAPIClient(service.ClientOptions{BaseURL: raw})
		assert.Error(t, err, raw)
	}
}

func TestAPIClient_FetchUnitsFollowsPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/units/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		switch r.URL.Query().Get("page") {
		case "":
			w.Write([]byte(`{"next": "/api/units/?page=2", "results": [{"id": 1, "name": "1st Division"}]}`))
		case "2":
			w.Write([]byte(`{"next": null, "results": [{"id": 2, "name": "1st Brigade", "parent_unit": 1}]}`))
		default:
			t.Errorf("unexpected page %q", r.URL.RawQuery)
		}
	})

	units, err := newTestClient(t, mux).FetchUnits(context.Background())

	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "1st Division", units[0].Name)
	assert.Equal(t, "1", *units[1].ParentID)
}

func TestAPIClient_FetchBareArray(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/positions/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 10, "unit": 2, "display_title": "XO"}]`))
	})
	mux.HandleFunc("/api/recruitment/slots/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1, "unit": 4, "total_slots": 3}]`))
	})
	mux.HandleFunc("/api/personnel/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1, "primary_unit": 4, "username": "Jones"}]`))
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	positions, err := c.FetchPositions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "XO", positions[0].DisplayTitle)

	slots, err := c.FetchRecruitmentSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, slots[0].TotalSlots)

	members, err := c.FetchMembers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "4", members[0].UnitID)
}

func TestAPIClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	})

	units, err := newTestClient(t, h).FetchUnits(context.Background())

	require.NoError(t, err)
	assert.Empty(t, units)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAPIClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := newTestClient(t, h).FetchUnits(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())

	var apiErr *service.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestAPIClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Not found."}`))
	})

	_, err := newTestClient(t, h).FetchUnits(context.Background())

	require.Error(t, err)
	assert.True(t, service.IsNotFound(err))
	assert.Contains(t, err.Error(), "Not found.")
	assert.Equal(t, int32(1), calls.Load())
}

func TestAPIClient_PaginationLoop(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"next": "/api/units/", "results": []}`))
	})

	_, err := newTestClient(t, h).FetchUnits(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pagination did not terminate")
}

func TestAPIClient_CanceledContext(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, h).FetchUnits(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

type recorded struct {
	method string
	path   string
	body   map[string]any
}

func recordingServer(t *testing.T, status int, response string) (*service.APIClient, *[]recorded) {
	t.Helper()
	var reqs []recorded
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.NoError(t, json.Unmarshal(b, &rec.body))
		}
		reqs = append(reqs, rec)
		w.WriteHeader(status)
		w.Write([]byte(response))
	})
	return newTestClient(t, h), &reqs
}

func TestAPIClient_CreateUnit(t *testing.T) {
	c, reqs := recordingServer(t, http.StatusCreated, `{"id": 5, "name": "Bravo Company", "parent_unit": 2}`)

	u, err := c.CreateUnit(context.Background(), model.UnitRecord{
		Name:     "Bravo Company",
		ParentID: model.StringPtr("2"),
		Branch:   &model.BranchRef{ID: "7"},
		IsActive: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "5", u.ID)
	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/api/units/", req.path)
	assert.Equal(t, "2", req.body["parent_unit"])
	assert.Equal(t, "7", req.body["branch"])
}

func TestAPIClient_UpdateUnitMoveToRoot(t *testing.T) {
	c, reqs := recordingServer(t, http.StatusOK, `{"id": 4, "name": "Alpha Company", "parent_unit": null}`)

	u, err := c.UpdateUnit(context.Background(), "4", map[string]any{"parent_unit": nil})

	require.NoError(t, err)
	assert.Nil(t, u.ParentID)
	req := (*reqs)[0]
	assert.Equal(t, http.MethodPatch, req.method)
	assert.Equal(t, "/api/units/4/", req.path)
	v, ok := req.body["parent_unit"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestAPIClient_EmptyResponseReturnsSentRecord(t *testing.T) {
	c, _ := recordingServer(t, http.StatusNoContent, "")

	p, err := c.CreatePosition(context.Background(), model.PositionRecord{UnitID: "2", DisplayTitle: "S1"})

	require.NoError(t, err)
	assert.Equal(t, "S1", p.DisplayTitle)
}

func TestAPIClient_PositionActions(t *testing.T) {
	c, reqs := recordingServer(t, http.StatusOK, `{}`)
	ctx := context.Background()

	require.NoError(t, c.AssignHolder(ctx, "10", "99"))
	require.NoError(t, c.VacatePosition(ctx, "10"))
	require.NoError(t, c.SetCommander(ctx, "1", "42"))
	require.NoError(t, c.DeletePosition(ctx, "10"))
	require.NoError(t, c.DeleteUnit(ctx, "4"))

	got := make([]string, 0, len(*reqs))
	for _, r := range *reqs {
		got = append(got, r.method+" "+r.path)
	}
	assert.Equal(t, []string{
		"POST /api/positions/10/assign/",
		"POST /api/positions/10/vacate/",
		"POST /api/units/1/assign-commander/",
		"DELETE /api/positions/10/",
		"DELETE /api/units/4/",
	}, got)
	assert.Equal(t, "99", (*reqs)[0].body["user_id"])
	assert.Nil(t, (*reqs)[1].body)
}

func TestAPIClient_UpsertSlot(t *testing.T) {
	c, reqs := recordingServer(t, http.StatusOK, `{"id": 3, "unit": 4, "total_slots": 8, "filled_slots": 2}`)
	ctx := context.Background()

	_, err := c.UpsertSlot(ctx, model.RecruitmentSlot{UnitID: "4", TotalSlots: 8, IsActive: true})
	require.NoError(t, err)
	s, err := c.UpsertSlot(ctx, model.RecruitmentSlot{ID: "3", UnitID: "4", TotalSlots: 8, FilledSlots: 2, IsActive: true})
	require.NoError(t, err)

	assert.Equal(t, 6, s.Available())
	assert.Equal(t, "POST", (*reqs)[0].method)
	assert.Equal(t, "/api/recruitment/slots/", (*reqs)[0].path)
	assert.Equal(t, "PATCH", (*reqs)[1].method)
	assert.Equal(t, "/api/recruitment/slots/3/", (*reqs)[1].path)
	assert.Equal(t, float64(8), (*reqs)[1].body["total_slots"])
}

func TestAPIClient_MutationErrorDetail(t *testing.T) {
	c, reqs := recordingServer(t, http.StatusBadRequest, `{"error": "name is required"}`)

	_, err := c.CreateUnit(context.Background(), model.UnitRecord{})

	var apiErr *service.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "name is required", apiErr.Detail)
	assert.Len(t, *reqs, 1, "mutations are not retried")
}
