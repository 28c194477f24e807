package agenda

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/valmeidavr/cpsi-api/internal/platform/auth"
	"github.com/valmeidavr/cpsi-api/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "recepcao", "medico"))
	read.GET("/expedientes", h.ListExpedientes)
	read.GET("/expedientes/:id", h.GetExpediente)
	read.GET("/agendas", h.ListAgendas)
	read.GET("/agendas/dia", h.GetDaySchedule)
	read.GET("/agendas/:id", h.GetAgenda)

	write := api.Group("", auth.RequireRole("admin", "recepcao"))
	write.POST("/expedientes", h.CreateExpediente)
	write.POST("/expedientes/:id/encerrar", h.EncerrarExpediente)
	write.POST("/agendas/encaixe", h.CriarEncaixe)
	write.POST("/agendas/:id/agendar", h.Agendar)
	write.POST("/agendas/:id/finalizar", h.Finalizar)
	write.PATCH("/agendas/:id/situacao", h.AlterarSituacao)
	write.DELETE("/agendas/:id", h.Cancelar)
}

// httpError maps domain errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlotTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// -- Expediente handlers --

type createExpedienteResponse struct {
	Expediente   *Expediente `json:"expediente"`
	SlotsCriados int         `json:"slots_criados"`
}

func (h *Handler) CreateExpediente(c echo.Context) error {
	var e Expediente
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.CreateExpediente(c.Request().Context(), &e)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, createExpedienteResponse{Expediente: &e, SlotsCriados: created})
}

func (h *Handler) GetExpediente(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetExpediente(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) EncerrarExpediente(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.EncerrarExpediente(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListExpedientes(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, p := range []string{"prestador_id", "unidade_id", "especialidade_id", "situacao"} {
		if v := c.QueryParam(p); v != "" {
			params[p] = v
		}
	}
	items, total, err := h.svc.SearchExpedientes(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Agenda handlers --

func (h *Handler) GetDaySchedule(c echo.Context) error {
	prestadorID, err := uuid.Parse(c.QueryParam("prestador_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid prestador_id")
	}
	unidadeID, err := uuid.Parse(c.QueryParam("unidade_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid unidade_id")
	}
	especialidadeID, err := uuid.Parse(c.QueryParam("especialidade_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid especialidade_id")
	}
	date, err := time.Parse("2006-01-02", c.QueryParam("data"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid data, want YYYY-MM-DD")
	}

	entries, err := h.svc.GetDaySchedule(c.Request().Context(), prestadorID, unidadeID, especialidadeID, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) GetAgenda(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAgenda(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAgendas(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, p := range []string{"prestador_id", "unidade_id", "especialidade_id", "cliente_id", "situacao", "tipo", "data"} {
		if v := c.QueryParam(p); v != "" {
			params[p] = v
		}
	}
	items, total, err := h.svc.SearchAgendas(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Agendar(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.ActingUserID = auth.UserIDFromContext(c.Request().Context())

	outcome, err := h.svc.Agendar(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, outcome)
}

func (h *Handler) CriarEncaixe(c echo.Context) error {
	var req EncaixeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.ActingUserID = auth.UserIDFromContext(c.Request().Context())

	outcome, err := h.svc.CriarEncaixe(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, outcome)
}

func (h *Handler) Finalizar(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	outcome, err := h.svc.Finalizar(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, outcome)
}

type alterarSituacaoRequest struct {
	Situacao Situacao `json:"situacao"`
}

func (h *Handler) AlterarSituacao(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req alterarSituacaoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.AlterarSituacao(c.Request().Context(), id, req.Situacao)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancelar(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if _, err := h.svc.Cancelar(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
