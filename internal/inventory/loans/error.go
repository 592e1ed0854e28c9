package loans

import (
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	// CodeStockRace means another transaction took the stock between our
	// availability check and the decrement. Safe to retry.
	CodeStockRace Code = "STOCK_RACE"
	CodeInternal  Code = "INTERNAL"
)

type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func ErrInsufficientStock(toolName string, effective, requested int) *APIError {
	return &APIError{
		Code:    CodeInsufficientStock,
		Message: fmt.Sprintf("insufficient stock for %q: %d available, %d requested", toolName, effective, requested),
	}
}

func ErrStockRace(toolName string) *APIError {
	return &APIError{
		Code:    CodeStockRace,
		Message: fmt.Sprintf("stock for %q changed concurrently, retry the operation", toolName),
	}
}

func ToHTTPStatus(err error) int {
	if api, ok := err.(*APIError); ok {
		switch api.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict, CodeInsufficientStock, CodeStockRace:
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}
