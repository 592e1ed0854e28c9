package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ===== Error model =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
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

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		case CodeConflict:
			return 409
		default:
			return 500
		}
	}
	return 500
}

type Service struct {
	db    *sql.DB
	store *Store
}

func NewService(db *sql.DB) *Service { return &Service{db: db, store: NewStore(db)} }

// Create registers a new tool. Code and barcode are generated; available
// stock starts equal to total stock.
func (s *Service) Create(ctx context.Context, in CreateToolRequest) (ToolResponse, error) {
	if strings.TrimSpace(in.Name) == "" {
		return ToolResponse{}, ErrInvalid("name is required")
	}
	cat := Category(in.Category)
	if !cat.Valid() {
		return ToolResponse{}, ErrInvalid("category must be one of durable, consumable, key, key_vehicle")
	}
	stock := in.Stock
	if stock < 0 {
		stock = 0
	}

	code, err := s.store.NextCode(ctx)
	if err != nil {
		return ToolResponse{}, err
	}

	t := &Tool{
		Code:           code,
		Barcode:        "*" + code + "*",
		Name:           strings.TrimSpace(in.Name),
		Category:       cat,
		TotalStock:     stock,
		AvailableStock: stock,
	}
	if err := s.store.Insert(ctx, t); err != nil {
		return ToolResponse{}, err
	}
	return toResponse(t), nil
}

// Get resolves a tool by code or barcode alias.
func (s *Service) Get(ctx context.Context, token string) (ToolResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return ToolResponse{}, ErrInvalid("code is required")
	}
	t, err := s.store.FindByCodeOrBarcode(ctx, s.db, token)
	if err != nil {
		return ToolResponse{}, err
	}
	return toResponse(t), nil
}

// AddStock tops up both counters. Refused for key categories, there is
// exactly one physical key per code.
func (s *Service) AddStock(ctx context.Context, code string, in AddStockRequest) (ToolResponse, error) {
	if in.Quantity <= 0 {
		return ToolResponse{}, ErrInvalid("quantity must be > 0")
	}
	t, err := s.store.FindByCodeOrBarcode(ctx, s.db, code)
	if err != nil {
		return ToolResponse{}, err
	}
	if !t.Category.StockTopUpAllowed() {
		return ToolResponse{}, ErrInvalid(fmt.Sprintf("stock of key-category tool %q cannot be topped up", t.Name))
	}
	if err := s.store.ApplyDelta(ctx, s.db, t.Code, in.Quantity, in.Quantity); err != nil {
		return ToolResponse{}, err
	}
	t.TotalStock += in.Quantity
	t.AvailableStock += in.Quantity
	return toResponse(t), nil
}

func (s *Service) List(ctx context.Context, q SearchQuery, p Page) ([]ToolResponse, int64, error) {
	items, total, err := s.store.List(ctx, q, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ToolResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	return out, total, nil
}
