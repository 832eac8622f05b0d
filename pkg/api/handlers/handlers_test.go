package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yachaerang/pricebatch/internal/testutil"
	"github.com/yachaerang/pricebatch/pkg/api/handlers"
	"github.com/yachaerang/pricebatch/pkg/orchestrator"
	"github.com/yachaerang/pricebatch/pkg/period"
)

type fakeJobs struct {
	err       error
	lastDay   time.Time
	lastRange [2]time.Time
	lastWeek  period.Week
	lastSpan  [2]period.Week
	lastMonth period.Month
	lastYear  int
}

func (f *fakeJobs) result(job string) (*orchestrator.JobResult, error) {
	if f.err != nil {
		return nil, f.err
	}

	return &orchestrator.JobResult{ID: "test-job", Job: job}, nil
}

func (f *fakeJobs) RunSingleDay(_ context.Context, date time.Time) (*orchestrator.JobResult, error) {
	f.lastDay = date

	return f.result("daily")
}

func (f *fakeJobs) RunDateRange(_ context.Context, start, end time.Time) (*orchestrator.JobResult, error) {
	f.lastRange = [2]time.Time{start, end}

	return f.result("daily-range")
}

func (f *fakeJobs) RunWeek(_ context.Context, year, week int) (*orchestrator.JobResult, error) {
	f.lastWeek = period.Week{Year: year, Week: week}

	return f.result("weekly")
}

func (f *fakeJobs) RunWeekRange(_ context.Context, from, to period.Week) (*orchestrator.JobResult, error) {
	f.lastSpan = [2]period.Week{from, to}

	return f.result("weekly-range")
}

func (f *fakeJobs) RunMonth(_ context.Context, year, month int) (*orchestrator.JobResult, error) {
	f.lastMonth = period.Month{Year: year, Month: month}

	return f.result("monthly")
}

func (f *fakeJobs) RunYear(_ context.Context, year int) (*orchestrator.JobResult, error) {
	f.lastYear = year

	return f.result("yearly")
}

func newTestApp(jobs *fakeJobs) *fiber.App {
	app := fiber.New()
	handlers.NewServer(jobs, testutil.NewLogger()).Register(app.Group("/api/v1"))

	return app
}

func post(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func TestPostDaily(t *testing.T) {
	jobs := &fakeJobs{}
	app := newTestApp(jobs)

	resp := post(t, app, "/api/v1/jobs/daily", `{"date":"2025-10-01"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), jobs.lastDay)

	var result orchestrator.JobResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "daily", result.Job)
	assert.Equal(t, "test-job", result.ID)
}

func TestPostDailyBadDate(t *testing.T) {
	app := newTestApp(&fakeJobs{})

	resp := post(t, app, "/api/v1/jobs/daily", `{"date":"10/01/2025"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostDailyRange(t *testing.T) {
	jobs := &fakeJobs{}
	app := newTestApp(jobs)

	resp := post(t, app, "/api/v1/jobs/daily/range", `{"start_date":"2025-09-29","end_date":"2025-10-03"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC), jobs.lastRange[0])
	assert.Equal(t, time.Date(2025, 10, 3, 0, 0, 0, 0, time.UTC), jobs.lastRange[1])
}

func TestPostWeekly(t *testing.T) {
	jobs := &fakeJobs{}
	app := newTestApp(jobs)

	resp := post(t, app, "/api/v1/jobs/rollup/weekly", `{"year":2025,"week":41}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, period.Week{Year: 2025, Week: 41}, jobs.lastWeek)
}

func TestPostWeeklyRange(t *testing.T) {
	jobs := &fakeJobs{}
	app := newTestApp(jobs)

	resp := post(t, app, "/api/v1/jobs/rollup/weekly/range",
		`{"start_year":2024,"start_week":50,"end_year":2025,"end_week":2}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, period.Week{Year: 2024, Week: 50}, jobs.lastSpan[0])
	assert.Equal(t, period.Week{Year: 2025, Week: 2}, jobs.lastSpan[1])
}

func TestPostMonthlyAndYearly(t *testing.T) {
	jobs := &fakeJobs{}
	app := newTestApp(jobs)

	resp := post(t, app, "/api/v1/jobs/rollup/monthly", `{"year":2025,"month":9}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, period.Month{Year: 2025, Month: 9}, jobs.lastMonth)

	resp = post(t, app, "/api/v1/jobs/rollup/yearly", `{"year":2024}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2024, jobs.lastYear)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "validation errors map to 400", err: orchestrator.ErrValidation, wantStatus: http.StatusBadRequest},
		{name: "held locks map to 409", err: orchestrator.ErrPeriodLocked, wantStatus: http.StatusConflict},
		{name: "other failures map to 500", err: errors.New("kaboom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&fakeJobs{err: tt.err})

			resp := post(t, app, "/api/v1/jobs/rollup/yearly", `{"year":2024}`)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
