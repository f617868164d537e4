package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/flexinfer/scrapeflow/internal/catalog"
	"github.com/flexinfer/scrapeflow/internal/config"
	"github.com/flexinfer/scrapeflow/internal/graph"
	"github.com/flexinfer/scrapeflow/internal/handle"
	"github.com/flexinfer/scrapeflow/internal/metrics"
	"github.com/flexinfer/scrapeflow/internal/planner"
	"github.com/flexinfer/scrapeflow/internal/publish"
	"github.com/flexinfer/scrapeflow/internal/tracing"
	"github.com/flexinfer/scrapeflow/internal/validator"
	"github.com/flexinfer/scrapeflow/internal/versions"
	"github.com/flexinfer/scrapeflow/internal/versionstore"
	"github.com/flexinfer/scrapeflow/pkg/types"
)

const (
	maxBodyBytes     = 4 << 20
	defaultListLimit = 50
	maxListLimit     = 500
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	catalog   *catalog.Catalog
	edges     *graph.Validator
	compiler  *planner.CachedCompiler
	schema    *validator.Validator
	store     versionstore.Store
	publisher publish.Publisher
	config    *config.Config
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cat *catalog.Catalog, compiler *planner.CachedCompiler, schema *validator.Validator, store versionstore.Store, pub publish.Publisher, cfg *config.Config, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		catalog:   cat,
		edges:     graph.NewValidator(cat),
		compiler:  compiler,
		schema:    schema,
		store:     store,
		publisher: pub,
		config:    cfg,
		logger:    logger,
	}
}

// --- Health Endpoints ---

// Health handles the /health and /healthz endpoints.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles the /ready endpoint, checking the version store.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	// An unknown workflow is the expected answer from a healthy store.
	_, err := h.store.List(ctx, "_readycheck", &versionstore.ListOptions{Limit: 1})
	if err != nil && !errors.Is(err, versionstore.ErrWorkflowNotFound) {
		h.respondError(w, r, http.StatusServiceUnavailable, "version store unhealthy", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ready",
		"planCacheLen": h.compiler.Len(),
	})
}

// --- Catalog & Handles ---

// ListTasks handles GET /api/v1/tasks
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks":       h.catalog.List(),
		"entryPoints": h.catalog.EntryPoints(),
	})
}

// NormalizeRequest is the request body for handle normalization.
type NormalizeRequest struct {
	Names []string `json:"names"`
}

// NormalizedHandle pairs a port name with its handle id.
type NormalizedHandle struct {
	Name   string `json:"name"`
	Handle string `json:"handle"`
}

// NormalizeHandles handles POST /api/v1/handles/normalize
func (h *Handlers) NormalizeHandles(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	out := make([]NormalizedHandle, 0, len(req.Names))
	for _, name := range req.Names {
		out = append(out, NormalizedHandle{Name: name, Handle: handle.Normalize(name)})
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"handles": out})
}

// --- Graph Editing ---

// CanConnectRequest carries a candidate edge and the graph it would join.
type CanConnectRequest struct {
	Edge  json.RawMessage `json:"edge"`
	Nodes []types.Node    `json:"nodes"`
	Edges []types.Edge    `json:"edges"`
}

// CanConnectResponse is the verdict for a candidate edge.
type CanConnectResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// CanConnect handles POST /api/v1/graph/can-connect
func (h *Handlers) CanConnect(w http.ResponseWriter, r *http.Request) {
	var req CanConnectRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	resp, result, err := h.checkEdge(&req)
	if result != nil {
		writeErrorResponse(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "invalid edge", schemaErrorDetails(result))
		return
	}
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid edge", err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// checkEdge schema-validates the candidate and runs the connection checks.
// A non-nil ValidationResult reports schema violations.
func (h *Handlers) checkEdge(req *CanConnectRequest) (*CanConnectResponse, *validator.ValidationResult, error) {
	if len(req.Edge) == 0 {
		return nil, nil, errors.New("edge is required")
	}
	if result := h.schema.ValidateEdgeJSON(req.Edge); !result.Valid {
		return nil, result, nil
	}

	var candidate types.Edge
	if err := json.Unmarshal(req.Edge, &candidate); err != nil {
		return nil, nil, err
	}

	reason := h.edges.Explain(candidate, req.Nodes, req.Edges)
	if reason == "" {
		metrics.EdgeChecksTotal.WithLabelValues("allowed").Inc()
		return &CanConnectResponse{Allowed: true}, nil, nil
	}
	metrics.EdgeChecksTotal.WithLabelValues(string(reason)).Inc()
	return &CanConnectResponse{Reason: string(reason)}, nil, nil
}

// --- Plan Compilation ---

// CompileResponse is returned for a successful compile.
type CompileResponse struct {
	Plan        *types.ExecutionPlan `json:"plan"`
	Fingerprint string               `json:"fingerprint"`
	CreditsCost int                  `json:"creditsCost"`
	Cached      bool                 `json:"cached"`
}

// CompilePlan handles POST /api/v1/plans/compile
func (h *Handlers) CompilePlan(w http.ResponseWriter, r *http.Request) {
	def, ok := h.readDefinition(w, r)
	if !ok {
		return
	}

	outcome, err := h.compile(r.Context(), def)
	if err != nil {
		h.respondCompileError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, CompileResponse{
		Plan:        outcome.Plan,
		Fingerprint: outcome.Fingerprint,
		CreditsCost: h.catalog.Cost(def.Nodes),
		Cached:      outcome.Cached,
	})
}

// compile runs the cached compiler inside a span and records metrics.
func (h *Handlers) compile(ctx context.Context, def *types.Definition) (*planner.Outcome, error) {
	_, span := tracing.Tracer().Start(ctx, "planner.compile")
	defer span.End()
	span.SetAttributes(
		attribute.Int("workflow.nodes", len(def.Nodes)),
		attribute.Int("workflow.edges", len(def.Edges)),
	)

	start := time.Now()
	outcome, err := h.compiler.Compile(def.Nodes, def.Edges)
	metrics.CompileDuration.Observe(time.Since(start).Seconds())

	if outcome.Cached {
		metrics.PlanCacheTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.PlanCacheTotal.WithLabelValues("miss").Inc()
	}
	span.SetAttributes(
		attribute.String("plan.fingerprint", outcome.Fingerprint),
		attribute.Bool("plan.cached", outcome.Cached),
	)

	if err != nil {
		result := "error"
		if ce, ok := planner.AsCompileError(err); ok {
			result = string(ce.Code)
		}
		metrics.CompilesTotal.WithLabelValues(result).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		return outcome, err
	}

	metrics.CompilesTotal.WithLabelValues("ok").Inc()
	metrics.PlanPhases.Observe(float64(len(outcome.Plan.Phases)))
	span.SetAttributes(attribute.Int("plan.phases", len(outcome.Plan.Phases)))
	return outcome, nil
}

// respondCompileError writes {code, errors} with 422 for compile failures.
func (h *Handlers) respondCompileError(w http.ResponseWriter, r *http.Request, err error) {
	ce, ok := planner.AsCompileError(err)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "compile failed", err)
		return
	}
	h.logger.Debug("compile rejected",
		slog.String("request_id", GetRequestID(r.Context(), r)),
		slog.String("code", string(ce.Code)),
		slog.Int("nodes_with_errors", len(ce.Errors)),
	)
	h.respondJSON(w, http.StatusUnprocessableEntity, ce)
}

// --- Version Management ---

// CreateVersionBody is the request body for saving a version.
type CreateVersionBody struct {
	ParentVersionID *string         `json:"parentVersionId,omitempty"`
	CreatedBy       string          `json:"createdBy,omitempty"`
	Definition      json.RawMessage `json:"definition"`
	Activate        bool            `json:"activate,omitempty"`
}

// CreateVersion handles POST /api/v1/workflows/{wid}/versions
func (h *Handlers) CreateVersion(w http.ResponseWriter, r *http.Request) {
	workflowID := mux.Vars(r)["wid"]

	var body CreateVersionBody
	if err := h.decode(r, &body); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(body.Definition) == 0 {
		h.respondError(w, r, http.StatusBadRequest, "definition is required", errors.New("missing definition"))
		return
	}
	if result := h.schema.ValidateDefinitionJSON(body.Definition); !result.Valid {
		writeErrorResponse(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "invalid definition", schemaErrorDetails(result))
		return
	}

	req := &versionstore.CreateVersionRequest{
		WorkflowID:      workflowID,
		ParentVersionID: body.ParentVersionID,
		CreatedBy:       body.CreatedBy,
		Activate:        body.Activate,
	}
	if err := json.Unmarshal(body.Definition, &req.Definition); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid definition", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request", err)
		return
	}

	v, err := h.store.Create(r.Context(), req)
	metrics.VersionStoreOperations.WithLabelValues("create", metrics.StoreResult(err)).Inc()
	if err != nil {
		h.respondError(w, r, storeErrorStatus(err), "failed to create version", err)
		return
	}

	h.logger.Info("version created",
		slog.String("workflow_id", v.WorkflowID),
		slog.String("version_id", v.ID),
		slog.Int("version_number", v.VersionNumber),
		slog.Bool("active", v.IsActive),
	)
	h.respondJSON(w, http.StatusCreated, v)
}

// ListVersions handles GET /api/v1/workflows/{wid}/versions
func (h *Handlers) ListVersions(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r, defaultListLimit)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid query", err)
		return
	}

	list, err := h.store.List(r.Context(), mux.Vars(r)["wid"], opts)
	metrics.VersionStoreOperations.WithLabelValues("list", metrics.StoreResult(err)).Inc()
	if err != nil {
		h.respondError(w, r, storeErrorStatus(err), "failed to list versions", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"versions": list,
		"count":    len(list),
	})
}

// GetVersion handles GET /api/v1/workflows/{wid}/versions/{vid}
func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	v, err := h.getVersion(r.Context(), vars["wid"], vars["vid"])
	if err != nil {
		h.respondError(w, r, storeErrorStatus(err), "failed to get version", err)
		return
	}
	h.respondJSON(w, http.StatusOK, v)
}

// ActivateVersion handles POST /api/v1/workflows/{wid}/versions/{vid}/activate
func (h *Handlers) ActivateVersion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	v, err := h.store.Activate(r.Context(), vars["wid"], vars["vid"])
	metrics.VersionStoreOperations.WithLabelValues("activate", metrics.StoreResult(err)).Inc()
	if err != nil {
		h.respondError(w, r, storeErrorStatus(err), "failed to activate version", err)
		return
	}

	h.logger.Info("version activated",
		slog.String("workflow_id", v.WorkflowID),
		slog.String("version_id", v.ID),
	)
	h.respondJSON(w, http.StatusOK, v)
}

// PublishResponse is returned after a plan bundle is published.
type PublishResponse struct {
	Ref         *publish.Ref `json:"ref"`
	Fingerprint string       `json:"fingerprint"`
	CreditsCost int          `json:"creditsCost"`
	Phases      int          `json:"phases"`
}

// PublishVersion handles POST /api/v1/workflows/{wid}/versions/{vid}/publish
func (h *Handlers) PublishVersion(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.Tracer().Start(r.Context(), "planner.publish")
	defer span.End()

	vars := mux.Vars(r)
	v, err := h.getVersion(ctx, vars["wid"], vars["vid"])
	if err != nil {
		h.respondError(w, r, storeErrorStatus(err), "failed to get version", err)
		return
	}
	span.SetAttributes(
		attribute.String("workflow.id", v.WorkflowID),
		attribute.String("version.id", v.ID),
	)

	outcome, err := h.compile(ctx, &v.Definition)
	if err != nil {
		h.respondCompileError(w, r, err)
		return
	}

	bundle := &publish.Bundle{
		WorkflowID:    v.WorkflowID,
		VersionID:     v.ID,
		VersionNumber: v.VersionNumber,
		Fingerprint:   outcome.Fingerprint,
		CreditsCost:   h.catalog.Cost(v.Definition.Nodes),
		Plan:          outcome.Plan,
		PublishedAt:   time.Now().UTC(),
	}

	ref, err := h.publisher.Publish(ctx, bundle)
	if err != nil {
		metrics.PublishesTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		h.respondError(w, r, storeErrorStatus(err), "failed to publish plan", err)
		return
	}
	metrics.PublishesTotal.WithLabelValues("success").Inc()

	h.logger.Info("plan published",
		slog.String("workflow_id", v.WorkflowID),
		slog.String("version_id", v.ID),
		slog.String("uri", ref.URI),
		slog.Int64("size", ref.Size),
	)
	h.respondJSON(w, http.StatusCreated, PublishResponse{
		Ref:         ref,
		Fingerprint: bundle.Fingerprint,
		CreditsCost: bundle.CreditsCost,
		Phases:      len(bundle.Plan.Phases),
	})
}

// --- Version History ---

// Timeline handles GET /api/v1/workflows/{wid}/timeline
func (h *Handlers) Timeline(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r, 0)
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid query", err)
		return
	}

	list, err := h.store.List(r.Context(), mux.Vars(r)["wid"], opts)
	metrics.VersionStoreOperations.WithLabelValues("list", metrics.StoreResult(err)).Inc()
	if err != nil {
		h.respondError(w, r, storeErrorStatus(err), "failed to list versions", err)
		return
	}

	vs := make([]types.WorkflowVersion, len(list))
	for i, v := range list {
		vs[i] = *v
	}
	h.respondJSON(w, http.StatusOK, versions.BuildTimeline(vs))
}

// Diff handles GET /api/v1/workflows/{wid}/diff?a=&b=
func (h *Handlers) Diff(w http.ResponseWriter, r *http.Request) {
	workflowID := mux.Vars(r)["wid"]
	q := r.URL.Query()
	idA, idB := q.Get("a"), q.Get("b")
	if idA == "" || idB == "" {
		h.respondError(w, r, http.StatusBadRequest, "invalid query", errors.New("query parameters a and b are required"))
		return
	}

	a, err := h.getVersion(r.Context(), workflowID, idA)
	if err != nil {
		h.respondError(w, r, storeErrorStatus(err), "failed to get version a", err)
		return
	}
	b, err := h.getVersion(r.Context(), workflowID, idB)
	if err != nil {
		h.respondError(w, r, storeErrorStatus(err), "failed to get version b", err)
		return
	}

	h.respondJSON(w, http.StatusOK, versions.DiffVersions(*a, *b))
}

// --- Helper Methods ---

func (h *Handlers) getVersion(ctx context.Context, workflowID, versionID string) (*types.WorkflowVersion, error) {
	v, err := h.store.Get(ctx, workflowID, versionID)
	metrics.VersionStoreOperations.WithLabelValues("get", metrics.StoreResult(err)).Inc()
	return v, err
}

// readDefinition schema-validates the body and decodes it as a Definition.
func (h *Handlers) readDefinition(w http.ResponseWriter, r *http.Request) (*types.Definition, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return nil, false
	}
	if result := h.schema.ValidateDefinitionJSON(data); !result.Valid {
		writeErrorResponse(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "invalid definition", schemaErrorDetails(result))
		return nil, false
	}

	var def types.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid definition", err)
		return nil, false
	}
	return &def, true
}

func (h *Handlers) decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

// listOptions parses limit and offset query parameters.
func listOptions(r *http.Request, defaultLimit int) (*versionstore.ListOptions, error) {
	opts := &versionstore.ListOptions{Limit: defaultLimit}
	q := r.URL.Query()

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid limit %q", s)
		}
		opts.Limit = min(n, maxListLimit)
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid offset %q", s)
		}
		opts.Offset = n
	}
	return opts, nil
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, "error", err, "status", status, "request_id", GetRequestID(r.Context(), r))
	} else {
		h.logger.Debug(message, "error", err, "status", status)
	}
	writeErrorResponse(w, r, status, HTTPStatusToErrorCode(status), message, map[string]interface{}{
		"details": err.Error(),
	})
}
