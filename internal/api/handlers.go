package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"janusprop/server/config"
	"janusprop/server/internal/auth"
	"janusprop/server/internal/database"
	"janusprop/server/internal/errs"
	"janusprop/server/internal/geometry"
	"janusprop/server/internal/models"
	"janusprop/server/internal/queue"
	"janusprop/server/internal/search"
)

type Handler struct {
	db     *database.Database
	engine *search.Engine
	queue  *queue.IngestQueue
	logger *logrus.Logger
}

func NewHandler(db *database.Database, engine *search.Engine, q *queue.IngestQueue, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:     db,
		engine: engine,
		queue:  q,
		logger: logger,
	}
}

// respondError maps the core error taxonomy onto HTTP statuses. NotFound
// and Forbidden stay generic so nothing leaks about hidden rows.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, errs.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, errs.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrUnavailable):
		h.logger.WithError(err).Error("Storage unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage unavailable"})
	default:
		h.logger.WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// parseSearchParams converts query parameters into search.Params. A
// value of the wrong shape (non-numeric price) is a hard 400; absent
// parameters simply disable their filter.
func parseSearchParams(c *gin.Context) (search.Params, error) {
	params := search.Params{
		SearchTerm:   c.Query("search_term"),
		PropertyType: c.Query("property_type"),
		City:         c.Query("city"),
		State:        c.Query("state"),
	}

	parseFloat := func(name string) (*float64, error) {
		raw := c.Query(name)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}
	parseInt := func(name string) (*int, error) {
		raw := c.Query(name)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}

	var err error
	if params.MinPrice, err = parseFloat("min_price"); err != nil {
		return params, err
	}
	if params.MaxPrice, err = parseFloat("max_price"); err != nil {
		return params, err
	}
	if params.MinBedrooms, err = parseInt("min_bedrooms"); err != nil {
		return params, err
	}
	if params.MaxBedrooms, err = parseInt("max_bedrooms"); err != nil {
		return params, err
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, err
		}
		params.Limit = limit
	}

	return params, nil
}

func (h *Handler) SearchProperties(c *gin.Context) {
	params, err := parseSearchParams(c)
	if err != nil {
		h.logger.WithError(err).Warn("Malformed search parameters")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed search parameters"})
		return
	}

	caller := auth.CallerFromContext(c)
	results, err := h.engine.Search(c.Request.Context(), caller, params)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"properties": results,
		"total":      len(results),
	})
}

func (h *Handler) GetProperty(c *gin.Context) {
	caller := auth.CallerFromContext(c)
	property, err := h.db.GetProperty(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, property)
}

func (h *Handler) CreateProperty(c *gin.Context) {
	var property models.Property
	if err := c.ShouldBindJSON(&property); err != nil {
		h.logger.WithError(err).Warn("Invalid property payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property payload"})
		return
	}

	caller := auth.CallerFromContext(c)
	if err := h.db.CreateProperty(c.Request.Context(), caller, &property); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, property)
}

func (h *Handler) UpdateProperty(c *gin.Context) {
	var property models.Property
	if err := c.ShouldBindJSON(&property); err != nil {
		h.logger.WithError(err).Warn("Invalid property payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property payload"})
		return
	}
	property.ID = c.Param("id")

	caller := auth.CallerFromContext(c)
	if err := h.db.UpdateProperty(c.Request.Context(), caller, &property); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, property)
}

// DeleteProperty retires a row. With ?permanent=true the row and its
// insights are destroyed instead.
func (h *Handler) DeleteProperty(c *gin.Context) {
	caller := auth.CallerFromContext(c)
	id := c.Param("id")

	var err error
	if c.Query("permanent") == "true" {
		err = h.db.DestroyProperty(c.Request.Context(), caller, id)
	} else {
		err = h.db.SoftDeleteProperty(c.Request.Context(), caller, id)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// IngestProperties accepts a batch of property records from an
// integration and hands them to the ingest queue. The write happens
// asynchronously in the batch processor.
func (h *Handler) IngestProperties(c *gin.Context) {
	caller := auth.CallerFromContext(c)
	if !auth.CanWriteProperty(caller) {
		h.respondError(c, errs.ErrForbidden)
		return
	}

	var batch []*models.Property
	if err := c.ShouldBindJSON(&batch); err != nil {
		h.logger.WithError(err).Warn("Invalid ingest payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ingest payload"})
		return
	}

	accepted := 0
	for _, p := range batch {
		if err := h.queue.Push(p); err != nil {
			h.logger.WithError(err).Warn("Ingest queue rejected property")
			break
		}
		accepted++
	}

	c.JSON(http.StatusAccepted, gin.H{
		"accepted": accepted,
		"total":    len(batch),
	})
}

func (h *Handler) GetInsights(c *gin.Context) {
	caller := auth.CallerFromContext(c)
	insights, err := h.db.ListInsightsForProperty(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, insights)
}

func (h *Handler) CreateInsight(c *gin.Context) {
	var insight models.AIInsight
	if err := c.ShouldBindJSON(&insight); err != nil {
		h.logger.WithError(err).Warn("Invalid insight payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid insight payload"})
		return
	}
	insight.PropertyID = c.Param("id")
	insight.IsActive = true

	caller := auth.CallerFromContext(c)
	if err := h.db.CreateInsight(c.Request.Context(), caller, &insight); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, insight)
}

func (h *Handler) ListAgents(c *gin.Context) {
	caller := auth.CallerFromContext(c)
	agents, err := h.db.ListAgents(c.Request.Context(), caller)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, agents)
}

func (h *Handler) GetAgent(c *gin.Context) {
	caller := auth.CallerFromContext(c)
	agent, err := h.db.GetAgent(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, agent)
}

func (h *Handler) CreateAgent(c *gin.Context) {
	var agent models.Agent
	if err := c.ShouldBindJSON(&agent); err != nil {
		h.logger.WithError(err).Warn("Invalid agent payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid agent payload"})
		return
	}

	caller := auth.CallerFromContext(c)
	if err := h.db.CreateAgent(c.Request.Context(), caller, &agent); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, agent)
}

func (h *Handler) DeleteAgent(c *gin.Context) {
	caller := auth.CallerFromContext(c)
	if err := h.db.DeleteAgent(c.Request.Context(), caller, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) ListLeads(c *gin.Context) {
	caller := auth.CallerFromContext(c)
	leads, err := h.db.ListLeads(c.Request.Context(), caller, c.Query("agent_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, leads)
}

func (h *Handler) CreateLead(c *gin.Context) {
	var lead models.Lead
	if err := c.ShouldBindJSON(&lead); err != nil {
		h.logger.WithError(err).Warn("Invalid lead payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lead payload"})
		return
	}

	caller := auth.CallerFromContext(c)
	if err := h.db.CreateLead(c.Request.Context(), caller, &lead); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lead)
}

// marketViewSpan is the half-width, in degrees, of the window opened
// around a market center when the client asks for a named market
// instead of explicit bounds.
const marketViewSpan = 0.25

// MapView returns the visible properties inside a lat/lng window. The
// window comes either from explicit bounds or from a supported market
// name, whose center seeds a default viewport.
func (h *Handler) MapView(c *gin.Context) {
	var viewport geometry.Viewport
	if name := c.Query("market"); name != "" {
		market := config.GetMarketByName(name)
		if market == nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Unknown market",
				"markets": config.GetMarketNames(),
			})
			return
		}
		viewport = geometry.ViewportAround(market.Center[0], market.Center[1], marketViewSpan)
	} else {
		corners := make([]float64, 4)
		for i, name := range []string{"min_lat", "min_lng", "max_lat", "max_lng"} {
			raw := c.Query(name)
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed bounds"})
				return
			}
			corners[i] = v
		}
		viewport = geometry.NewViewport(corners[0], corners[1], corners[2], corners[3])
	}

	minLat, minLng, maxLat, maxLng := viewport.Corners()
	candidates, err := h.db.PropertiesWithCoordinates(c.Request.Context(), minLat, minLng, maxLat, maxLng)
	if err != nil {
		h.respondError(c, err)
		return
	}

	caller := auth.CallerFromContext(c)
	visible := []*models.Property{}
	for _, p := range candidates {
		if auth.CanReadProperty(caller, p) && viewport.Contains(p) {
			visible = append(visible, p)
		}
	}

	c.JSON(http.StatusOK, visible)
}

func (h *Handler) ListMarkets(c *gin.Context) {
	c.JSON(http.StatusOK, config.SupportedMarkets)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
