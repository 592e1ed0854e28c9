package tools

// Category is a closed set. The old system dispatched on string prefixes
// ("llave*", "consumible"); every behavior difference now goes through the
// methods below instead.
type Category string

const (
	CategoryDurable    Category = "durable"
	CategoryConsumable Category = "consumable"
	CategoryKey        Category = "key"
	CategoryKeyVehicle Category = "key_vehicle"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryDurable, CategoryConsumable, CategoryKey, CategoryKeyVehicle:
		return true
	}
	return false
}

// IsKey covers both plain keys and vehicle keys.
func (c Category) IsKey() bool {
	return c == CategoryKey || c == CategoryKeyVehicle
}

// LoanableToStudent: key-category tools go to teachers only.
func (c Category) LoanableToStudent() bool { return !c.IsKey() }

// WriteOffEligible: keys are never written off; write-off lines for them are
// skipped silently.
func (c Category) WriteOffEligible() bool { return !c.IsKey() }

// ConsumesTotalOnLoan: consumables reduce total stock when handed out and get
// it back on return. Durables and keys only move available stock.
func (c Category) ConsumesTotalOnLoan() bool { return c == CategoryConsumable }

// StockTopUpAllowed: adding units to a key makes no sense, there is exactly
// one physical key per code.
func (c Category) StockTopUpAllowed() bool { return !c.IsKey() }

// Tool is one row of the tools table. Code is the stable identifier, Barcode
// an alias scanners produce.
type Tool struct {
	Code           string
	Barcode        string
	Name           string
	Category       Category
	TotalStock     int
	AvailableStock int
}
