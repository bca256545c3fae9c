// Package schema describes entity types: their names, fields, relations and
// the constraints checked when entities are saved.
//
// Schemas can be declared three ways, and all produce the same *Entity:
//
//   - [field] and [edge] builders passed to New
//   - Go structs read by FromStruct
//   - YAML catalogs read by LoadCatalog
//
// # Builders
//
//	customer := schema.MustNew("Customer",
//	    field.String("Name").Required().Length(1, 50),
//	    edge.To("Orders", "Order"),
//	)
//	order := schema.MustNew("Order",
//	    field.String("Code").UniqueIn("code"),
//	    field.String("Region").UniqueIn("code"),
//	    field.Float("Total"),
//	    edge.To("Customer", "Customer").Unique(),
//	)
//
// # Structs
//
//	type Order struct {
//	    Code     string    `magicstore:"required,length=1:20,unique=code"`
//	    Customer *Customer
//	    Items    []*OrderItem
//	}
//
//	order, err := schema.FromStruct(Order{})
//
// Relations declared through pointers are virtual. Relations declared by value
// cannot be intercepted by the proxy layer and are rejected by Validate.
//
// # Validation
//
// Validate checks a whole set of schemas once, before any of them is used, and
// reports every violation it finds:
//
//	if err := schema.Validate([]*schema.Entity{customer, order}); err != nil {
//	    var verr *schema.ValidationError
//	    if errors.As(err, &verr) {
//	        for _, v := range verr.Violations {
//	            log.Println(v)
//	        }
//	    }
//	}
package schema
