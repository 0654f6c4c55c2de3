package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agrolink/backend/internal/domain/ordering"
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/agrolink/backend/internal/interfaces/http/dto"
	"github.com/agrolink/backend/internal/interfaces/http/middleware"
)

const actorHelp = "Send X-User-ID with a UUID and X-Actor-Role with BUYER or SUPPLIER"

// BaseHandler writes the response envelopes shared by every handler
type BaseHandler struct{}

var errNoActor = errors.New("no actor on request")

func getActor(c *gin.Context) (ordering.Actor, error) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return nil, errNoActor
	}
	return actor, nil
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// Success writes 200 with data
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta writes 200 with one page of a list
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created writes 201 with data
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// fail writes an error envelope and leaves the code for the span enricher
func (h *BaseHandler) fail(c *gin.Context, code, message string, opts ...dto.ErrorOption) {
	c.Set(middleware.ErrorCodeKey, code)
	opts = append([]dto.ErrorOption{dto.WithRequestID(middleware.RequestIDFrom(c))}, opts...)
	c.JSON(dto.StatusFor(code), dto.NewErrorResponse(code, message, opts...))
}

// BadRequest writes 400 for a malformed path or query value
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.fail(c, dto.ErrCodeBadRequest, message)
}

// ActorRequired writes 401 for a mutation that arrived without actor headers
func (h *BaseHandler) ActorRequired(c *gin.Context) {
	h.fail(c, dto.ErrCodeUnauthorized, "Actor identity required", dto.WithHelp(actorHelp))
}

// BindJSON binds and validates the body. It writes the error response and
// returns false when binding fails.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	switch {
	case err == nil:
		return true
	case middleware.IsBodyTooLarge(err):
		h.fail(c, dto.ErrCodePayloadTooLarge, "request body exceeds the allowed size")
	default:
		middleware.HandleValidationError(c, err)
	}
	return false
}

// BindQuery binds and validates query parameters
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// HandleError maps an application error to its envelope. Unknown errors are
// reported as internal without their message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var overErr *shared.OverAllocationError
	var domainErr *shared.DomainError
	switch {
	case errors.As(err, &overErr):
		h.fail(c, dto.ErrCodeOverAllocation, overErr.Error(), dto.WithDetails(
			dto.ValidationDetail{Field: "quantity", Message: "requested", Value: overErr.Requested.String()},
			dto.ValidationDetail{Field: "available_quantity", Message: "available", Value: overErr.Available.String()},
		))
	case errors.As(err, &domainErr):
		h.fail(c, dto.FromDomainCode(domainErr.Code), domainErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		h.fail(c, dto.ErrCodeTimeout, "The request timed out")
	default:
		h.fail(c, dto.ErrCodeInternal, "An unexpected error occurred")
	}
}
