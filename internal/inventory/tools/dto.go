package tools

// ===== Requests =====

type CreateToolRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category" binding:"required"`
	Stock    int    `json:"stock"`
}

type AddStockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// ===== Responses =====

type ToolResponse struct {
	Code           string `json:"code"`
	Barcode        string `json:"barcode"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	TotalStock     int    `json:"total_stock"`
	AvailableStock int    `json:"available_stock"`
}

func toResponse(t *Tool) ToolResponse {
	return ToolResponse{
		Code:           t.Code,
		Barcode:        t.Barcode,
		Name:           t.Name,
		Category:       string(t.Category),
		TotalStock:     t.TotalStock,
		AvailableStock: t.AvailableStock,
	}
}

// ===== Listing helpers =====

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" or "desc"
}

type SearchQuery struct {
	Text     *string // matches name or code
	Category *string
}
