package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dori/workscope/internal/filter"
	"github.com/dori/workscope/internal/report"
)

type handlers struct {
	reports *report.Service
}

// report serves GET /reports/:kind
func (h *handlers) report(c *fiber.Ctx) error {
	kind, err := report.ParseKind(c.Params("kind"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	p := filter.Params{
		ProjectIDs:    filter.SplitList(c.Query("projects")),
		DepartmentIDs: filter.SplitList(c.Query("departments")),
		StartDate:     c.Query("start"),
		EndDate:       c.Query("end"),
	}
	payload, err := h.reports.Compute(c.UserContext(), kind, viewer(c), p)
	if err != nil {
		return err
	}
	return c.JSON(payload)
}

// departments serves GET /scope/departments
func (h *handlers) departments(c *fiber.Ctx) error {
	opts, err := h.reports.VisibleDepartments(c.UserContext(), viewer(c), filter.SplitList(c.Query("projects")))
	if err != nil {
		return err
	}
	return c.JSON(nonNil(opts))
}

// projects serves GET /scope/projects
func (h *handlers) projects(c *fiber.Ctx) error {
	opts, err := h.reports.VisibleProjects(c.UserContext(), viewer(c), filter.SplitList(c.Query("departments")))
	if err != nil {
		return err
	}
	return c.JSON(nonNil(opts))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
