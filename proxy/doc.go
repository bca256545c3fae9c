// Package proxy derives the tracked form of entity schemas.
//
// A Descriptor is built once per schema and lists the slots of its proxies:
// EntityId first, then every declared stored field, then one "<Relation>Id"
// slot per singular relation. Every slot has a previous-value shadow, and
// every relation a loaded flag. When a schema declares a collection of a
// target that has no singular relation back to it, the target's descriptor
// gains an injected relation named after the owner:
//
//	Customer{Orders []*Order} + Order{Code string}
//	=> Order slots: EntityId, Code, CustomerId
//	=> Order relations: Customer (injected)
//
// An Entity is an instance of a descriptor. Reading an unloaded relation
// through Related or Collection asks the bound Loader for it once and caches
// the result; setting a relation marks it loaded so it is never fetched.
//
//	customer, err := order.Related(ctx, "Customer")
//	orders, err := customer.Collection(ctx, "Orders")
package proxy
