// Package dto defines the JSON envelope shared by every API response.
package dto

import "time"

// Response is the envelope written by every handler
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo describes a failed request
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Details   []ValidationDetail `json:"details,omitempty"`
	Help      string             `json:"help,omitempty"`
}

// ValidationDetail points at one offending field. Value carries the
// quantities of an over-allocation.
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
	Value   string `json:"value,omitempty"`
}

// Meta is the pagination block of list responses
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

const defaultPageSize = 20

// NewSuccessResponse wraps data in a success envelope
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewSuccessResponseWithMeta wraps one page of a list
func NewSuccessResponseWithMeta(data any, total int64, page, pageSize int) Response {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{Total: total, Page: page, PageSize: pageSize, TotalPages: pages},
	}
}

// ErrorOption decorates an error envelope
type ErrorOption func(*ErrorInfo)

// WithRequestID stamps the request id
func WithRequestID(id string) ErrorOption {
	return func(e *ErrorInfo) { e.RequestID = id }
}

// WithDetails attaches per-field details
func WithDetails(details ...ValidationDetail) ErrorOption {
	return func(e *ErrorInfo) { e.Details = append(e.Details, details...) }
}

// WithHelp adds a hint on how to fix the request
func WithHelp(help string) ErrorOption {
	return func(e *ErrorInfo) { e.Help = help }
}

// NewErrorResponse builds an error envelope for an API code
func NewErrorResponse(code, message string, opts ...ErrorOption) Response {
	info := &ErrorInfo{Code: code, Message: message, Timestamp: time.Now().UTC()}
	for _, opt := range opts {
		opt(info)
	}
	return Response{Error: info}
}
