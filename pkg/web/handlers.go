// Package web provides HTTP handlers and REST API endpoints for the flow lifecycle.
package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

var errInvalidRevision = errors.New("if-match header must carry a live flow revision")

type APIHandlers struct {
	lifecycle *services.Lifecycle
	validator *validator.Validate
}

func NewAPIHandlers(lifecycle *services.Lifecycle, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		lifecycle: lifecycle,
		validator: validator,
	}
}

// RegisterRoutes mounts every lifecycle endpoint on router.
func (h *APIHandlers) RegisterRoutes(router fiber.Router) {
	d := router.Group("/drafts")
	d.Get("/", h.GetDrafts)
	d.Post("/", h.CreateDraft)
	d.Post("/import", h.ImportDraft)
	d.Get("/:id", h.GetDraft)
	d.Put("/:id", h.ReplaceDraft)
	d.Delete("/:id", h.DiscardDraft)
	d.Patch("/:id/metadata", h.UpdateMetadata)
	d.Post("/:id/reset", h.ResetDraft)
	d.Get("/:id/export", h.ExportDraft)
	d.Post("/:id/execute", h.ExecuteDraft)
	d.Post("/:id/publish", h.PublishDraft)

	// Cell endpoints:
	d.Post("/:id/cells", h.AddCell)
	d.Patch("/:id/cells/:cellId", h.UpdateCell)
	d.Delete("/:id/cells/:cellId", h.DeleteCell)
	d.Post("/:id/cells/:cellId/execute", h.RunCell)

	l := router.Group("/live-flows")
	l.Get("/", h.GetLiveFlows)
	l.Post("/", h.CreateLiveFlow)
	l.Get("/:id", h.GetLiveFlow)
	l.Put("/:id", h.PromoteVersion)
	l.Delete("/:id", h.DeleteLiveFlow)
	l.Get("/:id/current", h.GetCurrentVersion)

	// Version endpoints:
	l.Get("/:id/versions/next", h.SuggestNextVersion)
	l.Post("/:id/versions", h.AddVersion)
	l.Delete("/:id/versions/:versionId", h.DeleteVersion)
	l.Get("/:id/versions/:label/export", h.ExportVersion)
	l.Post("/:id/versions/:label/fork", h.ForkVersion)

	router.Post("/execute", h.ExecuteCell)
	router.Get("/catalog", h.GetCatalog)
	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.lifecycle.HealthCheck(c.Context())

	status := "unhealthy"
	message := "FlowForge API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "FlowForge API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetCatalog(c fiber.Ctx) error {
	return c.JSON(h.lifecycle.Catalog())
}

func (h *APIHandlers) GetDrafts(c fiber.Ctx) error {
	drafts, err := h.lifecycle.Drafts(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	summaries := make([]DraftSummary, len(drafts))
	for i, draft := range drafts {
		summaries[i] = TransformDraftSummary(draft)
	}

	return c.JSON(fiber.Map{
		"drafts":      summaries,
		"total_count": len(summaries),
	})
}

func (h *APIHandlers) CreateDraft(c fiber.Ctx) error {
	var req MetadataRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	draft, err := h.lifecycle.CreateDraft(h.actorContext(c), req.Patch())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(draft)
}

func (h *APIHandlers) ImportDraft(c fiber.Ctx) error {
	draft, err := h.lifecycle.ImportDraft(h.actorContext(c), c.Body())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(draft)
}

func (h *APIHandlers) GetDraft(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Draft ID must be a positive integer")
	}

	draft, err := h.lifecycle.Draft(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(draft)
}

func (h *APIHandlers) ReplaceDraft(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Draft ID must be a positive integer")
	}

	var req ReplaceDraftRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	draft, err := h.lifecycle.ReplaceDraft(h.actorContext(c), id, req.Metadata, req.ModelCells())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(draft)
}

func (h *APIHandlers) DiscardDraft(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Draft ID must be a positive integer")
	}

	if err := h.lifecycle.DiscardDraft(h.actorContext(c), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) UpdateMetadata(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Draft ID must be a positive integer")
	}

	var req MetadataRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	draft, err := h.lifecycle.UpdateMetadata(h.actorContext(c), id, req.Patch())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(draft)
}

func (h *APIHandlers) ResetDraft(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Draft ID must be a positive integer")
	}

	draft, err := h.lifecycle.ResetDraft(h.actorContext(c), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(draft)
}

func (h *APIHandlers) ExportDraft(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Draft ID must be a positive integer")
	}

	doc, err := h.lifecycle.ExportDraft(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Attachment(doc.Filename())

	return c.JSON(doc)
}

func (h *APIHandlers) ExecuteDraft(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Draft ID must be a positive integer")
	}

	draft, err := h.lifecycle.ExecuteDraft(h.actorContext(c), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(draft)
}

func (h *APIHandlers) PublishDraft(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Draft ID must be a positive integer")
	}

	var req PublishRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	opts, err := revisionOptions(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	flow, err := h.lifecycle.Publish(h.actorContext(c), id, req.PublishTarget(), opts...)
	if err != nil {
		return handleServiceError(c, err)
	}

	return respondLiveFlow(c, fiber.StatusCreated, flow)
}

func (h *APIHandlers) AddCell(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Draft ID must be a positive integer")
	}

	var template *models.CellTemplate

	if len(c.Body()) > 0 {
		var req AddCellRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}

		template = &models.CellTemplate{Code: req.Code, Dependencies: req.Dependencies}
	}

	cell, err := h.lifecycle.AddCell(h.actorContext(c), id, template)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(cell)
}

func (h *APIHandlers) UpdateCell(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Draft ID must be a positive integer")
	}

	cellID, err := pathID(c, "cellId")
	if err != nil {
		return badRequest(c, "Cell ID must be a positive integer")
	}

	var req UpdateCellRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	cell, err := h.lifecycle.UpdateCell(h.actorContext(c), id, cellID, models.CellField(req.Field), req.Value)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(cell)
}

func (h *APIHandlers) DeleteCell(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Draft ID must be a positive integer")
	}

	cellID, err := pathID(c, "cellId")
	if err != nil {
		return badRequest(c, "Cell ID must be a positive integer")
	}

	if err := h.lifecycle.DeleteCell(h.actorContext(c), id, cellID); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) RunCell(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Draft ID must be a positive integer")
	}

	cellID, err := pathID(c, "cellId")
	if err != nil {
		return badRequest(c, "Cell ID must be a positive integer")
	}

	cell, err := h.lifecycle.RunCell(h.actorContext(c), id, cellID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(cell)
}

func (h *APIHandlers) ExecuteCell(c fiber.Ctx) error {
	var req ExecuteCellRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	cell, err := h.lifecycle.ExecuteCell(h.actorContext(c), req.FlowID, req.Cell.Cell())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(cell)
}

func (h *APIHandlers) GetLiveFlows(c fiber.Ctx) error {
	flows, err := h.lifecycle.LiveFlows(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	summaries := make([]LiveFlowSummary, len(flows))
	for i, flow := range flows {
		summaries[i] = TransformLiveFlowSummary(flow)
	}

	return c.JSON(fiber.Map{
		"live_flows":  summaries,
		"total_count": len(summaries),
	})
}

func (h *APIHandlers) CreateLiveFlow(c fiber.Ctx) error {
	var req DraftReferenceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	flow, err := h.lifecycle.PublishNew(h.actorContext(c), req.DraftID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return respondLiveFlow(c, fiber.StatusCreated, flow)
}

func (h *APIHandlers) GetLiveFlow(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Live flow ID must be a positive integer")
	}

	flow, err := h.lifecycle.LiveFlow(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return respondLiveFlow(c, fiber.StatusOK, flow)
}

func (h *APIHandlers) GetCurrentVersion(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Live flow ID must be a positive integer")
	}

	version, err := h.lifecycle.CurrentVersion(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(version)
}

func (h *APIHandlers) PromoteVersion(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Live flow ID must be a positive integer")
	}

	var req PromoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	opts, err := revisionOptions(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	flow, err := h.lifecycle.PromoteVersion(h.actorContext(c), id, req.LiveVersion, opts...)
	if err != nil {
		return handleServiceError(c, err)
	}

	return respondLiveFlow(c, fiber.StatusOK, flow)
}

func (h *APIHandlers) DeleteLiveFlow(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Live flow ID must be a positive integer")
	}

	opts, err := revisionOptions(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.lifecycle.DeleteLiveFlow(h.actorContext(c), id, opts...); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) SuggestNextVersion(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Live flow ID must be a positive integer")
	}

	label, err := h.lifecycle.SuggestNextVersion(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"version": label})
}

func (h *APIHandlers) AddVersion(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Live flow ID must be a positive integer")
	}

	var req DraftReferenceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	opts, err := revisionOptions(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	flow, err := h.lifecycle.PublishVersion(h.actorContext(c), req.DraftID, id, opts...)
	if err != nil {
		return handleServiceError(c, err)
	}

	return respondLiveFlow(c, fiber.StatusCreated, flow)
}

func (h *APIHandlers) DeleteVersion(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Live flow ID must be a positive integer")
	}

	versionID, err := pathID(c, "versionId")
	if err != nil {
		return badRequest(c, "Version ID must be a positive integer")
	}

	opts, err := revisionOptions(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	flow, err := h.lifecycle.DeleteVersion(h.actorContext(c), id, versionID, opts...)
	if err != nil {
		return handleServiceError(c, err)
	}

	return respondLiveFlow(c, fiber.StatusOK, flow)
}

func (h *APIHandlers) ExportVersion(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Live flow ID must be a positive integer")
	}

	label, err := pathLabel(c)
	if err != nil {
		return badRequest(c, "Version label is not a valid path segment")
	}

	if label == "" {
		return notFound(c, "Version not found")
	}

	doc, err := h.lifecycle.ExportVersion(c.Context(), id, label)
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Attachment(doc.Filename())

	return c.JSON(doc)
}

func (h *APIHandlers) ForkVersion(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, "Live flow ID must be a positive integer")
	}

	label, err := pathLabel(c)
	if err != nil {
		return badRequest(c, "Version label is not a valid path segment")
	}

	draft, err := h.lifecycle.Fork(h.actorContext(c), id, label)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(draft)
}

func (h *APIHandlers) actorContext(c fiber.Ctx) context.Context {
	return services.WithActor(c.Context(), strings.TrimSpace(c.Get(AuthorHeader)))
}

func pathID(c fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil {
		return 0, err
	}

	if id <= 0 {
		return 0, strconv.ErrRange
	}

	return id, nil
}

// pathLabel returns the unescaped version label; labels are free-form and may contain
// spaces or slashes.
func pathLabel(c fiber.Ctx) (string, error) {
	return url.PathUnescape(c.Params("label"))
}

// revisionOptions turns an If-Match header into a revision precondition. A missing header or
// "*" adds none.
func revisionOptions(c fiber.Ctx) ([]services.MutationOption, error) {
	raw := strings.TrimSpace(c.Get(fiber.HeaderIfMatch))
	if raw == "" || raw == "*" {
		return nil, nil
	}

	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)

	revision, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errInvalidRevision
	}

	return []services.MutationOption{services.IfRevision(revision)}, nil
}

// respondLiveFlow writes flow with its revision as the ETag.
func respondLiveFlow(c fiber.Ctx, status int, flow *models.LiveFlow) error {
	c.Set(fiber.HeaderETag, strconv.Quote(strconv.FormatInt(flow.Revision, 10)))

	return c.Status(status).JSON(flow)
}
