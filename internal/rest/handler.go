package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"promptmart-admin/internal/category"
	"promptmart-admin/internal/logger"
	"promptmart-admin/internal/metrics"
	"promptmart-admin/internal/rest/model"
	"promptmart-admin/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; the largest legitimate payload is a
// reorder of a few hundred ids.
const maxBodyBytes = 1 << 20

type Handler struct {
	svc     category.Service
	metrics *metrics.Registry
}

func NewHandler(svc category.Service, reg *metrics.Registry) *Handler {
	return &Handler{svc: svc, metrics: reg}
}

// Routes mounts the category admin endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.GetTree)
		r.Post("/", h.Create)
		r.Get("/health", h.Health)
		r.Put("/order", h.Reorder)
		r.Post("/repair", h.Repair)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/move", h.Move)
	})
}

func (h *Handler) GetTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.svc.GetTree(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, category.MapTreeToREST(tree))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	defects, err := h.svc.Inspect(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, category.MapDefectsToREST(defects))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	node, err := h.svc.Create(r.Context(), category.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, category.MapNodeToREST(node))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req model.UpdateCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	node, err := h.svc.Update(r.Context(), id, category.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		ParentID:    req.ParentID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, category.MapNodeToREST(node))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req model.ReorderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := category.CheckReorderIDs(req.ParentID, req.OrderedIDs); err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.svc.ReorderSiblings(r.Context(), req.ParentID, req.OrderedIDs); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req model.MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.svc.MoveSibling(r.Context(), id, req.TargetIndex); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Repair(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Repair(r.Context())
	out := category.MapRepairReportToREST(report)
	if err != nil {
		logger.FromCtx(r.Context()).Error("repair incomplete", zap.Error(err))
		out.Success = false
		out.Error = err.Error()
		utils.WriteJSON(w, http.StatusInternalServerError, out)
		return
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, h.metrics.Snapshot())
}

// pathID rejects ids that cannot name a row as not found.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := category.CheckNodeID(id); err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
		return "", false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.FromCtx(r.Context()).Warn("invalid request body", zap.Error(err))
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *category.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.WriteJSON(w, http.StatusUnprocessableEntity, &model.ValidationErrorResponse{
			Error:  "validation failed",
			Fields: category.MapFieldErrorsToREST(verr),
		})
	case errors.Is(err, category.ErrNodeNotFound),
		errors.Is(err, category.ErrCategoryNotFound),
		errors.Is(err, category.ErrSubcategoryNotFound),
		errors.Is(err, category.ErrMovedNodeNotFound):
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, category.ErrSiblingMismatch):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)
	default:
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
