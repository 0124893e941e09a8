// Package httpapi defines the single response envelope shared by every
// route: {"ok":true, ...} on success, {"ok":false,"err","code"} on
// failure. The legacy widgets mixed response.success/data.ok/status-code
// checks; the gateway serves exactly one shape.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	registrychat "github.com/onlymatt/gateway/internal/registry/chat"
	registrystore "github.com/onlymatt/gateway/internal/registry/store"
)

// Error codes surfaced in the "code" field.
const (
	CodeValidation       = "validation"
	CodeAuthMissing      = "auth_missing"
	CodeAuthInvalid      = "auth_invalid"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeUpstream         = "upstream"
	CodeUpstreamDisabled = "upstream_disabled"
	CodeInternal         = "internal"
)

// OK writes a 200 success envelope merged with the given fields.
func OK(c *gin.Context, fields gin.H) {
	write(c, http.StatusOK, fields)
}

// Created writes a 201 success envelope merged with the given fields.
func Created(c *gin.Context, fields gin.H) {
	write(c, http.StatusCreated, fields)
}

func write(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

// Fail writes a failure envelope with the given status, code, and message.
func Fail(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{"ok": false, "err": msg, "code": code})
}

// Error maps a typed error to the failure envelope. Unrecognized errors
// become 500s with the detail kept in the server log, not the response.
func Error(c *gin.Context, err error) {
	var (
		validationErr *registrystore.ValidationError
		notFoundErr   *registrystore.NotFoundError
		conflictErr   *registrystore.ConflictError
		upstreamErr   *registrychat.UpstreamError
	)
	switch {
	case errors.As(err, &validationErr):
		Fail(c, http.StatusBadRequest, CodeValidation, validationErr.Error())
	case errors.As(err, &notFoundErr):
		Fail(c, http.StatusNotFound, CodeNotFound, notFoundErr.Error())
	case errors.As(err, &conflictErr):
		Fail(c, http.StatusConflict, CodeConflict, conflictErr.Error())
	case errors.Is(err, registrychat.ErrDisabled):
		Fail(c, http.StatusServiceUnavailable, CodeUpstreamDisabled, "no chat provider is configured")
	case errors.As(err, &upstreamErr):
		Fail(c, http.StatusBadGateway, CodeUpstream, upstreamErr.Error())
	default:
		log.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		Fail(c, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}
