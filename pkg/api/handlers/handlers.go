// Package handlers implements the job trigger endpoints.
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/yachaerang/pricebatch/pkg/orchestrator"
	"github.com/yachaerang/pricebatch/pkg/period"
)

// Jobs is the orchestrator surface the API triggers.
type Jobs interface {
	RunSingleDay(ctx context.Context, date time.Time) (*orchestrator.JobResult, error)
	RunDateRange(ctx context.Context, start, end time.Time) (*orchestrator.JobResult, error)
	RunWeek(ctx context.Context, year, week int) (*orchestrator.JobResult, error)
	RunWeekRange(ctx context.Context, from, to period.Week) (*orchestrator.JobResult, error)
	RunMonth(ctx context.Context, year, month int) (*orchestrator.JobResult, error)
	RunYear(ctx context.Context, year int) (*orchestrator.JobResult, error)
}

// Server holds the handler dependencies.
type Server struct {
	jobs Jobs
	log  logrus.FieldLogger
}

// NewServer creates a new API server instance
func NewServer(jobs Jobs, log logrus.FieldLogger) *Server {
	return &Server{
		jobs: jobs,
		log:  log.WithField("component", "api.handlers"),
	}
}

// Register mounts the job routes on the router.
func (s *Server) Register(router fiber.Router) {
	jobs := router.Group("/jobs")

	jobs.Post("/daily", s.postDaily)
	jobs.Post("/daily/range", s.postDailyRange)
	jobs.Post("/rollup/weekly", s.postWeekly)
	jobs.Post("/rollup/weekly/range", s.postWeeklyRange)
	jobs.Post("/rollup/monthly", s.postMonthly)
	jobs.Post("/rollup/yearly", s.postYearly)
}

type dailyRequest struct {
	Date string `json:"date"`
}

type dailyRangeRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type weeklyRequest struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

type weeklyRangeRequest struct {
	StartYear int `json:"start_year"`
	StartWeek int `json:"start_week"`
	EndYear   int `json:"end_year"`
	EndWeek   int `json:"end_week"`
}

type monthlyRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type yearlyRequest struct {
	Year int `json:"year"`
}

func (s *Server) postDaily(c fiber.Ctx) error {
	var req dailyRequest
	if err := c.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return err
	}

	result, err := s.jobs.RunSingleDay(c.Context(), date)

	return s.respond(c, result, err)
}

func (s *Server) postDailyRange(c fiber.Ctx) error {
	var req dailyRangeRequest
	if err := c.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		return err
	}

	end, err := parseDate(req.EndDate)
	if err != nil {
		return err
	}

	result, err := s.jobs.RunDateRange(c.Context(), start, end)

	return s.respond(c, result, err)
}

func (s *Server) postWeekly(c fiber.Ctx) error {
	var req weeklyRequest
	if err := c.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := s.jobs.RunWeek(c.Context(), req.Year, req.Week)

	return s.respond(c, result, err)
}

func (s *Server) postWeeklyRange(c fiber.Ctx) error {
	var req weeklyRangeRequest
	if err := c.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := s.jobs.RunWeekRange(c.Context(),
		period.Week{Year: req.StartYear, Week: req.StartWeek},
		period.Week{Year: req.EndYear, Week: req.EndWeek})

	return s.respond(c, result, err)
}

func (s *Server) postMonthly(c fiber.Ctx) error {
	var req monthlyRequest
	if err := c.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := s.jobs.RunMonth(c.Context(), req.Year, req.Month)

	return s.respond(c, result, err)
}

func (s *Server) postYearly(c fiber.Ctx) error {
	var req yearlyRequest
	if err := c.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := s.jobs.RunYear(c.Context(), req.Year)

	return s.respond(c, result, err)
}

func (s *Server) respond(c fiber.Ctx, result *orchestrator.JobResult, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrValidation):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case errors.Is(err, orchestrator.ErrPeriodLocked):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		default:
			s.log.WithError(err).Error("Job failed")

			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(result)
}

func parseDate(value string) (time.Time, error) {
	date, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "date must be formatted YYYY-MM-DD")
	}

	return date, nil
}
