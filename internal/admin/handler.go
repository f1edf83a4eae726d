package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dnsgate/internal/chain"
	"dnsgate/internal/logger"
	"dnsgate/pkg/errors"
)

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		chains := v1.Group("/chains")
		{
			chains.GET("", h.ListChains)
			chains.GET("/:chain/rules", h.ListRules)
			chains.PUT("/:chain/rules", h.SetRules)
			chains.POST("/:chain/rules", h.AppendRule)
			chains.DELETE("/:chain/rules/:ref", h.RemoveRule)
			chains.POST("/:chain/move-to-top", h.MoveToTop)
			chains.POST("/:chain/move", h.Move)
			chains.GET("/:chain/top", h.TopRules)
			chains.POST("/:chain/clear", h.ClearRules)
		}

		v1.POST("/bench", h.Bench)
	}
}

func (h *Handler) ListChains(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.ListChains(c.Request.Context()))
}

// ListRules returns the chain as JSON by default. With render=table the
// response is the plain-text table, with uuids=true including identifier
// columns and truncate=N cutting rule descriptions at N bytes.
func (h *Handler) ListRules(c *gin.Context) {
	chainName := c.Param("chain")

	if c.Query("render") == "table" {
		opts := chain.DescribeOptions{
			ShowUUIDs: c.Query("uuids") == "true",
		}
		if truncate := c.Query("truncate"); truncate != "" {
			width, err := strconv.Atoi(truncate)
			if err != nil || width < 0 {
				c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
					errors.ErrValidation.WithMessage("truncate must be a non-negative integer")))
				return
			}
			opts.TruncateRuleWidth = width
		}

		table, err := h.Service.Describe(c.Request.Context(), chainName, opts)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		c.String(http.StatusOK, table)
		return
	}

	views, err := h.Service.ListRules(c.Request.Context(), chainName)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) SetRules(c *gin.Context) {
	var specs []EntrySpec
	if err := c.ShouldBindJSON(&specs); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	views, err := h.Service.SetRules(c.Request.Context(), c.Param("chain"), specs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) AppendRule(c *gin.Context) {
	var spec EntrySpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	view, err := h.Service.AppendRule(c.Request.Context(), c.Param("chain"), spec)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) RemoveRule(c *gin.Context) {
	err := h.Service.RemoveRule(c.Request.Context(), c.Param("chain"), c.Param("ref"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) MoveToTop(c *gin.Context) {
	if err := h.Service.MoveToTop(c.Request.Context(), c.Param("chain")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Move(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	if err := h.Service.Move(c.Request.Context(), c.Param("chain"), req); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) TopRules(c *gin.Context) {
	n := 0
	if raw := c.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
				errors.ErrValidation.WithMessage("n must be a non-negative integer")))
			return
		}
		n = parsed
	}

	views, err := h.Service.TopRules(c.Request.Context(), c.Param("chain"), n)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) ClearRules(c *gin.Context) {
	if err := h.Service.ClearRules(c.Request.Context(), c.Param("chain")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Bench(c *gin.Context) {
	var req BenchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	result, err := h.Service.Bench(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
