package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"sla-tracker/internal/bizclock"
	"sla-tracker/internal/catalog"
	"sla-tracker/internal/metrics"
	"sla-tracker/internal/store"
	"sla-tracker/internal/tracker"
	"sla-tracker/internal/util"
)

// Config defines server dependencies.
type Config struct {
	DBPath         string
	SilentDB       bool
	CatalogPath    string
	Timezone       string
	AllowedOrigins []string
	// Clock overrides the wall clock; nil uses time.Now.
	Clock util.Clock
	// StreamInterval is the websocket push period; zero means one second.
	StreamInterval time.Duration
}

// Server wires HTTP handlers with persistence and the tracker.
type Server struct {
	db             *store.Database
	tracker        *tracker.Service
	metrics        *metrics.Metrics
	allowedOrigins []string
	streamInterval time.Duration
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	calendar, err := bizclock.LoadCalendar(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	svc := tracker.NewService(db, cat, calendar, cfg.Clock)
	if migrated, err := svc.MigrateLegacy(); err != nil {
		logrus.WithError(err).Warn("migrate legacy sla types")
	} else if migrated > 0 {
		logrus.WithField("migrated", migrated).Info("migrated legacy sla types")
	}

	server := &Server{
		db:             db,
		tracker:        svc,
		metrics:        metrics.New(svc),
		allowedOrigins: cfg.AllowedOrigins,
		streamInterval: cfg.StreamInterval,
	}
	if server.streamInterval <= 0 {
		server.streamInterval = time.Second
	}
	logrus.WithFields(logrus.Fields{
		"timezone": calendar.Location().String(),
		"sops":     len(cat.SOPs()),
	}).Info("sla tracker ready")
	return server, nil
}

// Tracker exposes the domain service.
func (s *Server) Tracker() *tracker.Service { return s.tracker }

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))
	r.Use(s.observe)

	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.GET("/config", s.handleConfig)
		api.GET("/elapsed", s.handleElapsed)

		api.GET("/sops", s.handleListSOPs)
		api.GET("/sops/:sop/types", s.handleSOPTypes)
		api.GET("/sops/:sop/stats", s.handleSOPStats)

		api.GET("/slas", s.handleListSLAs)
		api.POST("/slas", s.handleCreateSLA)
		api.GET("/slas/:id", s.handleGetSLA)
		api.PATCH("/slas/:id", s.handleUpdateSLA)
		api.DELETE("/slas/:id", s.handleDeleteSLA)
		api.POST("/slas/:id/adjust", s.handleAdjustSLA)
		api.POST("/slas/:id/complete", s.handleCompleteSLA)
		api.GET("/slas/:id/stream", s.handleStream)

		api.GET("/export.csv", s.handleExportCSV)
		api.GET("/export.json", s.handleExportJSON)
	}

	return r, nil
}

func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.metrics.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timezone":     s.tracker.Calendar().Location().String(),
		"window_open":  "Monday 08:00",
		"window_close": "Friday 17:00",
		"sops":         len(s.tracker.Catalog().SOPs()),
		"now_ms":       s.tracker.Now().UnixMilli(),
	})
}

func (s *Server) handleElapsed(c *gin.Context) {
	calendar := s.tracker.Calendar()
	loc := calendar.Location()
	start, err := calendar.ParseInstant(c.Query("start"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid start: %w", err))
		return
	}
	end := s.tracker.Now()
	if raw := strings.TrimSpace(c.Query("end")); raw != "" {
		if end, err = calendar.ParseInstant(raw); err != nil {
			s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid end: %w", err))
			return
		}
	}
	business := false
	if raw := strings.TrimSpace(c.Query("business")); raw != "" {
		if business, err = strconv.ParseBool(raw); err != nil {
			s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid business flag: %s", raw))
			return
		}
	}

	ms := calendar.CountedElapsed(start.UnixMilli(), end.UnixMilli(), business)
	c.JSON(http.StatusOK, ElapsedResponse{
		StartMs:        start.UnixMilli(),
		EndMs:          end.UnixMilli(),
		BusinessWindow: business,
		Timezone:       loc.String(),
		ElapsedMs:      ms,
		ElapsedHours:   round2(float64(ms) / msPerHour),
	})
}

func (s *Server) handleListSOPs(c *gin.Context) {
	sops := s.tracker.Catalog().SOPs()
	dtos := make([]SOPDTO, 0, len(sops))
	for _, sop := range sops {
		dtos = append(dtos, SOPFromCatalog(sop))
	}
	c.JSON(http.StatusOK, dtos)
}

func (s *Server) handleSOPTypes(c *gin.Context) {
	sop, ok := s.tracker.Catalog().SOP(c.Param("sop"))
	if !ok {
		s.renderError(c, http.StatusNotFound, fmt.Errorf("sop %s not found", c.Param("sop")))
		return
	}
	c.JSON(http.StatusOK, SOPFromCatalog(sop).Types)
}

func (s *Server) handleSOPStats(c *gin.Context) {
	sopID := c.Param("sop")
	if _, ok := s.tracker.Catalog().SOP(sopID); !ok {
		s.renderError(c, http.StatusNotFound, fmt.Errorf("sop %s not found", sopID))
		return
	}
	st, err := s.tracker.Stats(sopID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, StatsFromModel(st, s.tracker.Catalog().SOPTitle(sopID)))
}

func (s *Server) handleListSLAs(c *gin.Context) {
	filter, err := tracker.ParseFilter(c.Query("status"))
	if err != nil {
		s.renderTrackerError(c, err)
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page > math.MaxInt32/pageSize {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("page %d out of range", page))
		return
	}

	snaps, total, err := s.tracker.List(tracker.ListOptions{
		SOPID:  strings.TrimSpace(c.Query("sop")),
		Filter: filter,
		Query:  strings.TrimSpace(c.Query("q")),
		Sort:   strings.TrimSpace(c.Query("sort")),
		Offset: page * pageSize,
		Limit:  pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, SLAsResponse{Items: s.toDTOs(snaps), Total: total})
}

func (s *Server) handleCreateSLA(c *gin.Context) {
	var req CreateSLARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	snap, err := s.tracker.Create(tracker.CreateInput{
		Name:       req.Name,
		Type:       req.Type,
		SOPID:      req.SOPID,
		Assignment: req.Assignment,
		Owner:      req.Owner,
	})
	if err != nil {
		s.renderTrackerError(c, err)
		return
	}
	s.metrics.ObserveEvent("created")
	c.JSON(http.StatusCreated, s.toDTO(snap))
}

func (s *Server) handleGetSLA(c *gin.Context) {
	snap, err := s.tracker.Get(c.Param("id"))
	if err != nil {
		s.renderTrackerError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toDTO(snap))
}

func (s *Server) handleUpdateSLA(c *gin.Context) {
	var req UpdateSLARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	snap, err := s.tracker.Update(c.Param("id"), tracker.UpdateInput{
		Name:       req.Name,
		Assignment: req.Assignment,
		Owner:      req.Owner,
	})
	if err != nil {
		s.renderTrackerError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toDTO(snap))
}

func (s *Server) handleAdjustSLA(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	var add bool
	switch strings.ToLower(strings.TrimSpace(req.Mode)) {
	case "", "add":
		add = true
	case "subtract":
		add = false
	default:
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("mode must be add or subtract, got %q", req.Mode))
		return
	}
	snap, err := s.tracker.AdjustTime(c.Param("id"), req.Hours, req.Minutes, add)
	if err != nil {
		s.renderTrackerError(c, err)
		return
	}
	s.metrics.ObserveEvent("adjusted")
	c.JSON(http.StatusOK, s.toDTO(snap))
}

func (s *Server) handleCompleteSLA(c *gin.Context) {
	var req CompleteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.renderError(c, http.StatusBadRequest, err)
			return
		}
	}
	snap, err := s.tracker.Complete(c.Param("id"), req.Comments)
	if err != nil {
		s.renderTrackerError(c, err)
		return
	}
	s.metrics.ObserveEvent("completed")
	c.JSON(http.StatusOK, s.toDTO(snap))
}

func (s *Server) handleDeleteSLA(c *gin.Context) {
	if err := s.tracker.Delete(c.Param("id")); err != nil {
		s.renderTrackerError(c, err)
		return
	}
	s.metrics.ObserveEvent("deleted")
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportCSV(c *gin.Context) {
	snaps, err := s.exportRows(c)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=sla-export.csv")
	c.Header("Content-Type", "text/csv")

	writer := csv.NewWriter(c.Writer)
	headers := []string{"id", "sop_id", "sop_title", "name", "type", "type_name", "status", "policy", "start", "due", "end", "budget_hours", "elapsed_hours", "overdue", "assignment", "owner", "comments"}
	if err := writer.Write(headers); err != nil {
		return
	}
	loc := s.tracker.Calendar().Location()
	for _, snap := range snaps {
		dto := FromSnapshot(snap, loc)
		end := ""
		if t, ok := snap.SLA.EndTime(); ok {
			end = t.In(loc).Format(tracker.DateLayout)
		}
		line := []string{
			dto.ID,
			dto.SOPID,
			dto.SOPTitle,
			dto.Name,
			dto.Type,
			dto.TypeName,
			dto.Status,
			dto.Policy,
			dto.StartLabel,
			dto.DueLabel,
			end,
			fmt.Sprintf("%.2f", snap.Budget.Hours()),
			fmt.Sprintf("%.2f", snap.Elapsed.Hours()),
			strconv.FormatBool(dto.Overdue),
			dto.Assignment,
			dto.Owner,
			dto.Comments,
		}
		if err := writer.Write(line); err != nil {
			return
		}
	}
	writer.Flush()
}

func (s *Server) handleExportJSON(c *gin.Context) {
	snaps, err := s.exportRows(c)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=sla-export.json")
	c.JSON(http.StatusOK, s.toDTOs(snaps))
}

func (s *Server) exportRows(c *gin.Context) ([]tracker.Snapshot, error) {
	snaps, _, err := s.tracker.List(tracker.ListOptions{
		SOPID:  strings.TrimSpace(c.Query("sop")),
		Filter: tracker.FilterAll,
		Limit:  -1,
	})
	return snaps, err
}

func (s *Server) toDTO(snap tracker.Snapshot) SLADTO {
	return FromSnapshot(snap, s.tracker.Calendar().Location())
}

func (s *Server) toDTOs(snaps []tracker.Snapshot) []SLADTO {
	dtos := make([]SLADTO, 0, len(snaps))
	for _, snap := range snaps {
		dtos = append(dtos, s.toDTO(snap))
	}
	return dtos
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) renderTrackerError(c *gin.Context, err error) {
	s.renderError(c, statusFor(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tracker.ErrInvalidInput), errors.Is(err, tracker.ErrUnknownType):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrAlreadyCompleted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
