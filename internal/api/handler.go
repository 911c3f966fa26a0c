package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-schoolzone-scan/internal/models"
	"github.com/mr1hm/go-schoolzone-scan/internal/repository"
)

type Handler struct {
	repo repository.PredictionRepository
}

func NewHandler(repo repository.PredictionRepository) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/predictions", h.getPredictions)
	r.GET("/api/runs", h.getRuns)
	r.GET("/health", h.health)
}

func (h *Handler) getPredictions(c *gin.Context) {
	filter := repository.Filter{
		Limit: 100, // Default to 100 predictions if limit param not supplied
	}

	if run := c.Query("run"); run != "" {
		filter.RunID = run
	}
	if school := c.Query("school"); school != "" {
		filter.SchoolID = school
	}
	if lbl := c.Query("label"); lbl != "" {
		label := models.ParseSignLabel(lbl)
		filter.Label = &label
	}
	if ms := c.Query("min_score"); ms != "" {
		if score, err := strconv.ParseFloat(ms, 64); err == nil && score >= 0 && score <= 100 {
			filter.MinScore = &score
		}
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 1000 {
			filter.Limit = lim
		}
	}

	predictions, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch predictions",
		})
		return
	}

	fc := toGeoJSON(predictions)
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func (h *Handler) getRuns(c *gin.Context) {
	runs, err := h.repo.Runs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch runs",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
