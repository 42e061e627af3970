package response

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"starview/internal/contextutils"
	"starview/internal/services"

	"go.uber.org/zap"
)

// Config holds configuration for the response system
type Config struct {
	PrettyJSON         bool   `json:"pretty_json"`
	IncludeRequestID   bool   `json:"include_request_id"`
	IncludeTimestamp   bool   `json:"include_timestamp"`
	APIVersion         string `json:"api_version"`
	MaskInternalErrors bool   `json:"mask_internal_errors"`
}

// DefaultConfig returns production-ready response configuration
func DefaultConfig() *Config {
	return &Config{
		PrettyJSON:         false,
		IncludeRequestID:   true,
		IncludeTimestamp:   true,
		APIVersion:         "v1",
		MaskInternalErrors: true,
	}
}

// APIResponse represents a standardized API response
type APIResponse struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Timestamp int64        `json:"timestamp,omitempty"`
	Version   string       `json:"version,omitempty"`
}

// ErrorDetail represents error information in API responses
type ErrorDetail struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Fields  []FieldError           `json:"fields,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// FieldError represents field-specific validation errors
type FieldError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
}

// Builder assembles and writes API responses
type Builder struct {
	config *Config
	logger *zap.Logger
}

// NewBuilder creates a new response builder
func NewBuilder(config *Config, logger *zap.Logger) *Builder {
	if config == nil {
		config = DefaultConfig()
	}
	return &Builder{
		config: config,
		logger: logger,
	}
}

// Success creates a successful API response
func (b *Builder) Success(ctx context.Context, data interface{}) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: b.getRequestID(ctx),
		Timestamp: b.getTimestamp(),
		Version:   b.config.APIVersion,
	}
}

// Error creates an error response from a service error
func (b *Builder) Error(ctx context.Context, err error) *APIResponse {
	errorDetail := b.convertError(err)

	response := &APIResponse{
		Success:   false,
		Error:     errorDetail,
		RequestID: b.getRequestID(ctx),
		Timestamp: b.getTimestamp(),
		Version:   b.config.APIVersion,
	}

	b.logError(ctx, err, errorDetail)
	return response
}

// WriteJSON writes a JSON response with appropriate headers
func (b *Builder) WriteJSON(w http.ResponseWriter, r *http.Request, response *APIResponse, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if statusCode >= 400 {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	}
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	if b.config.PrettyJSON {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(response); err != nil {
		b.logger.Error("Failed to encode JSON response",
			zap.Error(err),
			zap.String("request_id", b.getRequestID(r.Context())),
		)
	}
}

// WriteSuccess writes a successful JSON response
func (b *Builder) WriteSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.WriteJSON(w, r, b.Success(r.Context(), data), http.StatusOK)
}

// WriteCreated writes a successful creation response
func (b *Builder) WriteCreated(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.WriteJSON(w, r, b.Success(r.Context(), data), http.StatusCreated)
}

// WriteNoContent writes a successful no-content response
func (b *Builder) WriteNoContent(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError writes an error response with appropriate status code
func (b *Builder) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	response := b.Error(r.Context(), err)
	b.WriteJSON(w, r, response, b.getStatusCodeFromError(err))
}

func (b *Builder) convertError(err error) *ErrorDetail {
	if err == nil {
		return nil
	}

	if valErr, ok := err.(*services.ValidationError); ok {
		fields := make([]FieldError, len(valErr.Fields))
		for i, field := range valErr.Fields {
			fields[i] = FieldError{
				Field:   field.Field,
				Value:   field.Value,
				Message: field.Message,
				Code:    field.Code,
			}
		}
		return &ErrorDetail{
			Type:    valErr.Type,
			Message: valErr.Message,
			Code:    valErr.Code,
			Fields:  fields,
			Details: valErr.Details,
		}
	}

	serviceErr := services.GetServiceError(err)
	detail := &ErrorDetail{
		Type:    serviceErr.Type,
		Message: serviceErr.Message,
		Code:    serviceErr.Code,
		Details: serviceErr.Details,
	}

	if b.config.MaskInternalErrors && serviceErr.Type == "INTERNAL_ERROR" {
		detail.Message = "An internal error occurred"
		detail.Details = nil
	}
	return detail
}

func (b *Builder) getStatusCodeFromError(err error) int {
	if serviceErr := services.GetServiceError(err); serviceErr != nil {
		return serviceErr.GetStatusCode()
	}
	return http.StatusInternalServerError
}

func (b *Builder) getRequestID(ctx context.Context) string {
	if !b.config.IncludeRequestID {
		return ""
	}
	return contextutils.GetRequestID(ctx)
}

func (b *Builder) getTimestamp() int64 {
	if !b.config.IncludeTimestamp {
		return 0
	}
	return time.Now().Unix()
}

func (b *Builder) logError(ctx context.Context, err error, errorDetail *ErrorDetail) {
	requestID := b.getRequestID(ctx)

	switch errorDetail.Type {
	case "VALIDATION_ERROR", "BUSINESS_ERROR", "INVALID_SELECTION":
		b.logger.Warn("Request error",
			zap.String("request_id", requestID),
			zap.String("error_type", errorDetail.Type),
			zap.String("error_message", errorDetail.Message),
		)
	case "INTERNAL_ERROR", "METRIC_COMPUTATION_ERROR":
		b.logger.Error("Internal error",
			zap.String("request_id", requestID),
			zap.String("error_type", errorDetail.Type),
			zap.Error(err),
		)
	default:
		b.logger.Info("Request completed with error",
			zap.String("request_id", requestID),
			zap.String("error_type", errorDetail.Type),
			zap.String("error_message", errorDetail.Message),
		)
	}
}
