// Package gen generates typed wrappers around entity proxies.
//
// For every schema, Generate writes one file holding a struct that embeds
// *proxy.Entity, typed getters and setters for its values, lazy accessors
// for its relations and constructors bound to an entity context:
//
//	type Order struct {
//		*proxy.Entity
//	}
//
//	func (o *Order) Code() string
//	func (o *Order) SetCode(value string) error
//	func (o *Order) Customer(ctx context.Context) (*Customer, error)
//	func GetOrder(ctx context.Context, ec *magicstore.EntityContext, id uuid.UUID) (*Order, error)
//
// Each file also declares the schema and field names as constants for use
// in conditions:
//
//	orders, err := shop.SearchOrders(ctx, ec, condition.And(
//		condition.FieldEQ(shop.OrderFieldRegion, "EU"),
//	), nil)
//
// Files are rendered with jennifer and written in parallel.
package gen
