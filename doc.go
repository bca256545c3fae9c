// Package magicstore is a lightweight object persistence engine.
//
// Entity types are declared as schemas, either with the builders of
// schema/field and schema/edge or derived from Go structs:
//
//	type Customer struct {
//		Name   string   `magicstore:"required,length=1:50"`
//		Orders []*Order
//	}
//
//	type Order struct {
//		Code   string `magicstore:"required,unique=code"`
//		Region string `magicstore:"unique=code"`
//		Total  float64
//	}
//
// An EntityContext validates the schemas, describes a proxy type for each
// one and prepares their storage in a dialect.Repository:
//
//	ec, err := magicstore.New(ctx, memory.New(), []*schema.Entity{
//		schema.MustFromStruct(Customer{}),
//		schema.MustFromStruct(Order{}),
//	})
//
// Every entity read through the context is a *proxy.Entity. Proxies track
// their previous values for dirty checking and load relations lazily:
//
//	c, err := ec.Get(ctx, "Customer", id)
//	orders, err := c.Collection(ctx, "Orders")
//
// Save accepts proxies and plain structs. It converts the graph reachable
// from its argument into proxies, then validates and saves every new or
// changed entity once, and returns the stored state of the root:
//
//	stored, err := ec.Save(ctx, &Customer{Name: "a8m", Orders: []*Order{{Code: "A1"}}})
//	if errs, ok := magicstore.AsErrors(err); ok {
//		fmt.Println(errs.Messages())
//	}
package magicstore
