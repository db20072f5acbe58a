package requirements

// Item kinds recognised in order contexts.
const (
	ItemKindProduct = "product"
	ItemKindService = "service"
)

// Field names exposed to rule conditions.
const (
	FieldItemID        = "itemId"
	FieldSelectedItems = "selectedItems"
	FieldServiceID     = "serviceId"
	FieldProductID     = "productId"
	FieldTotalAmount   = "totalAmount"
	FieldItemCount     = "itemCount"
	FieldClientType    = "clientType"
	FieldCurrency      = "currency"
)

// SelectedItem is one line of an order.
type SelectedItem struct {
	ItemID    string  `json:"itemId" yaml:"itemId"`
	Kind      string  `json:"kind,omitempty" yaml:"kind,omitempty"`
	Quantity  float64 `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	UnitPrice float64 `json:"unitPrice,omitempty" yaml:"unitPrice,omitempty"`
}

// OrderContext is the snapshot of an order that rules are evaluated against.
type OrderContext struct {
	SelectedItems []SelectedItem   `json:"selectedItems" yaml:"selectedItems"`
	TotalAmount   float64          `json:"totalAmount" yaml:"totalAmount"`
	ClientType    string           `json:"clientType,omitempty" yaml:"clientType,omitempty"`
	Currency      string           `json:"currency,omitempty" yaml:"currency,omitempty"`
	Extra         map[string]Value `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Fields flattens the context into condition fields. Items with no kind count
// as both products and services. Built-in fields take precedence over Extra.
func (o OrderContext) Fields() map[string]Value {
	fields := make(map[string]Value, 8+len(o.Extra))
	for k, v := range o.Extra {
		fields[k] = v
	}

	all := make([]string, 0, len(o.SelectedItems))
	var services, products []string
	for _, it := range o.SelectedItems {
		all = append(all, it.ItemID)
		switch it.Kind {
		case ItemKindService:
			services = append(services, it.ItemID)
		case ItemKindProduct:
			products = append(products, it.ItemID)
		default:
			services = append(services, it.ItemID)
			products = append(products, it.ItemID)
		}
	}

	fields[FieldItemID] = Strings(all...)
	fields[FieldSelectedItems] = Strings(all...)
	fields[FieldServiceID] = Strings(services...)
	fields[FieldProductID] = Strings(products...)
	fields[FieldTotalAmount] = Number(o.TotalAmount)
	fields[FieldItemCount] = Number(float64(len(o.SelectedItems)))
	if o.ClientType != "" {
		fields[FieldClientType] = String(o.ClientType)
	}
	if o.Currency != "" {
		fields[FieldCurrency] = String(o.Currency)
	}
	return fields
}

// Env returns the fields as plain Go values for expression evaluation.
// Unlike Fields, clientType and currency are always present.
func (o OrderContext) Env() map[string]any {
	fields := o.Fields()
	env := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		env[k] = v.Native()
	}
	env[FieldClientType] = o.ClientType
	env[FieldCurrency] = o.Currency
	return env
}
