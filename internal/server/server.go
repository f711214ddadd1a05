// Package server exposes the connector over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rezonia/peppol-connector/internal/lifecycle"
	"github.com/rezonia/peppol-connector/internal/model"
	"github.com/rezonia/peppol-connector/internal/network"
	"github.com/rezonia/peppol-connector/internal/ubl"
	"github.com/rezonia/peppol-connector/internal/xrechnung"
)

// Config holds server configuration
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
	// Profile is the default for /api/v1/validate
	Profile string
	SMLZone string
}

// Server represents the HTTP API server
type Server struct {
	config  *Config
	router  *gin.Engine
	manager *lifecycle.Manager
	readers *ubl.Registry
	log     logrus.FieldLogger
}

// NewServer creates a new API server over manager
func NewServer(config *Config, manager *lifecycle.Manager, log logrus.FieldLogger) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.SMLZone == "" {
		config.SMLZone = network.SMLZoneProduction
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{
		config:  config,
		router:  router,
		manager: manager,
		readers: ubl.NewRegistry(),
		log:     log.WithField("module", "server"),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		// Stateless document tooling
		v1.POST("/render", s.handleRender)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/xrechnung/extend", s.handleExtend)
		v1.GET("/routing-ids/:id", s.handleRoutingID)
		v1.GET("/participants/:participant/sml", s.handleSML)

		// Registry
		docs := v1.Group("/documents")
		docs.POST("", s.handleCreate)
		docs.GET("", s.handleList)
		docs.GET("/:id", s.handleGet)
		docs.DELETE("/:id", s.handleDelete)
		docs.POST("/:id/validate", s.handleValidateDocument)
		docs.POST("/:id/xml", s.handleSetXML)
		docs.POST("/:id/submit", s.handleSubmit)
		docs.POST("/:id/refresh", s.handleRefresh)
		docs.POST("/:id/transition", s.handleTransition)

		v1.GET("/stats", s.handleStats)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// readDocument accepts either a JSON document or a UBL Invoice/CreditNote
func (s *Server) readDocument(c *gin.Context) (*model.Document, bool) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return nil, false
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty request body"})
		return nil, false
	}

	if body[0] == '<' {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		doc, err := s.readers.Parse(ctx, body)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "failed to parse UBL document", Details: err.Error()})
			return nil, false
		}
		return doc, true
	}

	var doc model.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid document JSON", Details: err.Error()})
		return nil, false
	}
	if doc.Kind == "" {
		doc.Kind = model.KindInvoice
	}
	return &doc, true
}

func (s *Server) handleRender(c *gin.Context) {
	doc, ok := s.readDocument(c)
	if !ok {
		return
	}
	out, err := ubl.Render(doc)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "failed to render document", Details: err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", out)
}

func (s *Server) handleValidate(c *gin.Context) {
	validate, err := lifecycle.ValidatorFor(c.DefaultQuery("profile", s.config.Profile))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	doc, ok := s.readDocument(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, validate(doc))
}

func (s *Server) handleExtend(c *gin.Context) {
	id, err := xrechnung.ParseRoutingIdentifier(c.Query("routing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid routing_id", Details: err.Error()})
		return
	}
	doc, ok := s.readDocument(c)
	if !ok {
		return
	}

	extended := xrechnung.Extend(*doc, id)
	if c.Query("format") == "xml" {
		out, err := ubl.Render(&extended)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "failed to render document", Details: err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/xml; charset=utf-8", out)
		return
	}
	c.JSON(http.StatusOK, extended)
}

func (s *Server) handleRoutingID(c *gin.Context) {
	input := c.Param("id")
	id, err := xrechnung.ParseRoutingIdentifier(input)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, RoutingIDResponse{Input: input, Valid: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, RoutingIDResponse{
		Input:         input,
		Valid:         true,
		Coarse:        id.Coarse,
		Fine:          id.Fine,
		Check:         id.Check,
		ChecksumValid: id.ChecksumValid(),
		ExpectedCheck: id.ExpectedCheck(),
	})
}

func (s *Server) handleSML(c *gin.Context) {
	p, err := model.ParseParticipant(c.Param("participant"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid participant", Details: err.Error()})
		return
	}
	zone := c.DefaultQuery("zone", s.config.SMLZone)
	c.JSON(http.StatusOK, SMLResponse{
		Participant:   p.URN(),
		Hash:          network.ParticipantHash(p),
		Hostname:      network.SMLHostname(p, zone),
		NAPTRHostname: network.NAPTRHostname(p, zone),
	})
}

func (s *Server) handleCreate(c *gin.Context) {
	var req lifecycle.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	doc, err := s.manager.CreateDocument(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (s *Server) handleList(c *gin.Context) {
	filter := lifecycle.Filter{
		Status:       model.Status(strings.ToUpper(c.Query("status"))),
		DocumentType: model.DocumentKind(c.Query("type")),
	}
	docs, err := s.manager.ListDocuments(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Documents: docs, Count: len(docs)})
}

func (s *Server) handleGet(c *gin.Context) {
	doc, err := s.manager.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.manager.RemoveDocument(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleValidateDocument(c *gin.Context) {
	result, err := s.manager.ValidateDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleSetXML stores the request body, or renders the registered document
// when the body is empty
func (s *Server) handleSetXML(c *gin.Context) {
	id := c.Param("id")
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}

	if len(bytes.TrimSpace(body)) == 0 {
		out, err := s.manager.GenerateXML(c.Request.Context(), id)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, XMLResponse{DocumentID: id, Size: len(out), Generated: true})
		return
	}

	if err := s.manager.SetDocumentXml(c.Request.Context(), id, body); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, XMLResponse{DocumentID: id, Size: len(body)})
}

func (s *Server) handleSubmit(c *gin.Context) {
	result, err := s.manager.SubmitDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusBadGateway, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRefresh(c *gin.Context) {
	doc, err := s.manager.RefreshDocumentStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleTransition(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}

	id := c.Param("id")
	ctx := c.Request.Context()
	target := model.Status(strings.ToUpper(string(req.Status)))
	if !s.manager.TransitionStatus(ctx, id, target, req.Message, req.Actor) {
		if _, err := s.manager.GetDocument(ctx, id); err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: "transition not allowed",
			Code:  lifecycle.ErrCodeIllegalTransition,
		})
		return
	}

	doc, err := s.manager.GetDocument(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.manager.Statistics(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// fail maps lifecycle error codes onto HTTP statuses
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := lifecycle.ErrorCode(err)
	switch code {
	case lifecycle.ErrCodeNotFound:
		status = http.StatusNotFound
	case lifecycle.ErrCodeAlreadyExists, lifecycle.ErrCodeIllegalTransition,
		lifecycle.ErrCodeInvalidState, lifecycle.ErrCodeInFlight, lifecycle.ErrCodeMissingXML:
		status = http.StatusConflict
	case lifecycle.ErrCodeInvalidDocument:
		status = http.StatusUnprocessableEntity
	case lifecycle.ErrCodeNoTransmitter:
		status = http.StatusServiceUnavailable
	case lifecycle.ErrCodeStatusUnavailable:
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}

	msg := err.Error()
	var lerr *lifecycle.Error
	if errors.As(err, &lerr) {
		msg = lerr.Message
	}
	c.JSON(status, ErrorResponse{Error: msg, Code: code, Details: detail(err)})
}

func detail(err error) string {
	if cause := errors.Unwrap(err); cause != nil {
		return cause.Error()
	}
	return ""
}
