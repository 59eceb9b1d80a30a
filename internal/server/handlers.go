package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crimson-sun/quill/internal/model"
	"github.com/crimson-sun/quill/internal/output"
)

const (
	headerTimeout = "X-Request-Timeout"

	homeMessage       = "Model is running."
	msgNoText         = "No text provided"
	msgBusy           = "server busy"
	msgTimeout        = "correction timed out"
	msgTooLarge       = "request too large"
	genericFailure    = "correction failed"
	statusClientGone  = 499
)

type correctRequest struct {
	Text *string `json:"text"`
}

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}

func (s *Server) home(c *gin.Context) {
	c.String(http.StatusOK, homeMessage)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "engine": s.proc.CorrectorName()})
}

func (s *Server) labels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"labels": s.proc.Labels()})
}

func (s *Server) correct(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxBodyBytes)

	var req correctRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorBody(msgTooLarge))
			return
		}
		c.JSON(http.StatusBadRequest, errorBody(msgNoText))
		return
	}
	if req.Text == nil || *req.Text == "" {
		c.JSON(http.StatusBadRequest, errorBody(msgNoText))
		return
	}

	if !s.slots.TryAcquire(1) {
		c.JSON(http.StatusServiceUnavailable, errorBody(msgBusy))
		return
	}
	defer s.slots.Release(1)

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout(c))
	defer cancel()

	res, err := s.proc.Process(ctx, model.CorrectionRequest{Text: *req.Text})
	if err != nil {
		s.fail(ctx, c, err)
		return
	}

	c.Set(ctxErrorType, string(res.ErrorType))
	c.JSON(http.StatusOK, output.FromResult(res))
}

// timeout reads X-Request-Timeout in seconds, capped at MaxRequestTimeout.
// Missing or invalid values use RequestTimeout.
func (s *Server) timeout(c *gin.Context) time.Duration {
	v := c.GetHeader(headerTimeout)
	if v == "" {
		return s.opts.RequestTimeout
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return s.opts.RequestTimeout
	}
	d := time.Duration(secs * float64(time.Second))
	if d > s.opts.MaxRequestTimeout {
		return s.opts.MaxRequestTimeout
	}
	return d
}

// fail maps a pipeline error to a status and body.
func (s *Server) fail(ctx context.Context, c *gin.Context, err error) {
	id := c.GetString(ctxRequestID)
	switch {
	case errors.Is(err, model.ErrValidation):
		c.JSON(http.StatusBadRequest, errorBody(msgNoText))
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		s.log.Warn("correction timed out", "request_id", id, "error", err)
		c.JSON(http.StatusGatewayTimeout, errorBody(msgTimeout))
	case errors.Is(err, context.Canceled):
		s.log.Info("client went away", "request_id", id)
		c.Status(statusClientGone)
	default:
		s.log.Error("correction failed", "request_id", id, "error", err)
		msg := genericFailure
		if s.opts.ExposeErrors {
			msg = err.Error()
		}
		c.JSON(http.StatusInternalServerError, errorBody(msg))
	}
}
