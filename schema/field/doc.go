// Package field provides fluent builders for declaring entity fields.
//
// Field names are the property names used by proxies, conditions and storage
// columns, so they must be valid identifiers:
//
//	field.String("Code")     // String kind
//	field.Int64("Total")     // Primitive kind
//	field.UUID("ExternalId") // Id kind
//	field.Time("CreatedAt")  // DateTime kind
//
// # Constraints
//
// Builders record the constraints checked by the data validator on save:
//
//	field.String("Code").
//	    Required().      // rejects nil and blank values
//	    Length(1, 20).   // rune length bounds
//	    UniqueIn("code") // joins the "code" unique group
//
// Invalid constraint parameters are configuration errors. They are recorded on
// the descriptor and reported by schema.New:
//
//	field.String("Code").Length(10, 5) // max length must be greater or equal to min length
//
// # Nullability
//
// Nullable fields accept nil values and map to nullable columns:
//
//	field.Time("ClosedAt").Nullable()
package field
