// Package privacy provides privacy layer types and rule implementations for
// magicstore entity contexts.
//
// A policy is evaluated by the entity context before a search reaches the
// repository and before every entity of a cascading save or a delete is
// persisted.
//
// # Core Concepts
//
//   - Policy: query and mutation rules that decide access to entities
//   - Rule: a function that returns Allow, Deny, or Skip decisions
//   - Viewer: an interface representing the current user
//
// # Defining Policies
//
//	ec, err := magicstore.New(repo, schemas,
//	    magicstore.WithPolicy(privacy.Policy{
//	        Mutation: privacy.MutationPolicy{
//	            privacy.DenyIfNoViewer(),
//	            privacy.HasRole("admin"),
//	            privacy.IsOwner("OwnerId"),
//	            privacy.AlwaysDenyRule(),
//	        },
//	        Query: privacy.QueryPolicy{
//	            privacy.TenantQueryRule("TenantId"),
//	        },
//	    }),
//	)
//
// # Rule Evaluation
//
// Rules are evaluated in order until one returns a final decision:
//
//   - Allow: grants access and stops evaluation
//   - Deny: denies access and stops evaluation
//   - Skip: continues to the next rule
//
// If all rules skip, the operation is allowed.
//
// # Query Filters
//
// Query rules receive the pending search and may narrow it. OwnerQueryRule
// and TenantQueryRule AND an equality on the viewer's ID or tenant into the
// search conditions; FilterFunc adapts any function to do the same.
//
// # Mutation Operations
//
// Saves of new entities are OpCreate, saves of changed entities are
// OpUpdate and deletes are OpDelete. OnMutationOperation and OnSchema bind a
// rule to a subset of them.
//
// # Context Integration
//
//	ctx := privacy.WithViewer(ctx, &privacy.SimpleViewer{
//	    UserID: "user-123",
//	    Roles:  []string{"user"},
//	})
//	orders, err := ec.Search(ctx, "Order", nil, nil)
//
// A denied operation fails with an error matching magicstore.ErrPrivacyDenied
// that wraps the decision.
package privacy
