// Package http provides http transport for notices and runs
package http

import (
	stdhttp "net/http"

	"tedingest/internal/modkit/httpkit"
	"tedingest/internal/services/api/notices/domain"
	svc "tedingest/internal/services/api/notices/service"
)

// Register mounts the notice and run endpoints
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	httpkit.GetQuery(r, "/notices", h.list)
	httpkit.Get(r, "/notices/{tbID}", h.get)
	httpkit.Get(r, "/runs/{runID}", h.run)
}

type handlers struct{ svc svc.Service }

// @Summary List staged notices
// @Description Newest first. published narrows to one UTC publication day.
// @Tags Notices
// @Produce json
// @Param published query string false "Publication day" format(date)
// @Param limit query int false "Page size" minimum(1) maximum(500)
// @Param award query bool false "Only award notices (true) or only calls (false)"
// @Success 200 {object} httpkit.Envelope{data=domain.ListResult} "ok"
// @Failure 400 {object} httpkit.Envelope "bad query"
// @Router /notices [get]
func (h *handlers) list(r *stdhttp.Request, in domain.ListInput) (any, error) {
	res, err := h.svc.List(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.List(res.Items, httpkit.Page{Limit: res.Limit, Returned: len(res.Items), More: res.More}), nil
}

// @Summary Get one staged notice
// @Tags Notices
// @Produce json
// @Param tbID path string true "Composite id, e.g. TED|612001-2025"
// @Success 200 {object} httpkit.Envelope{data=notice.Notice} "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /notices/{tbID} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	id, err := httpkit.Param(r, "tbID")
	if err != nil {
		return nil, err
	}
	return h.svc.Get(r.Context(), id)
}

// @Summary Get an ingest run
// @Description The recorded summary and the count of staging rows still tagged with the run.
// @Tags Runs
// @Produce json
// @Param runID path string true "Run id"
// @Success 200 {object} httpkit.Envelope{data=domain.Run} "ok"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /runs/{runID} [get]
func (h *handlers) run(r *stdhttp.Request) (any, error) {
	id, err := httpkit.Param(r, "runID")
	if err != nil {
		return nil, err
	}
	return h.svc.Run(r.Context(), id)
}
