// Package edge provides fluent builders for declaring relations between entities.
//
// A relation references another entity by schema name. edge.To declares a
// collection relation (one-to-many); Unique turns it into a singular relation
// (many-to-one or one-to-one):
//
//	// Customer has many Orders
//	edge.To("Orders", "Order")
//
//	// Order belongs to one Customer
//	edge.To("Customer", "Customer").Unique()
//
// A singular relation must be named after its target and is backed by a
// generated id property named "<Relation>Id". When a collection's target does
// not declare the singular relation back to the owner, the proxy layer injects
// one named after the owner, so every one-to-many relation can be navigated
// from both ends.
//
// Many-to-many relations are not supported; model them as two one-to-many
// relations through a join entity.
package edge
