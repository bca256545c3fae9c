// Package condition implements the condition model used to search entities
// and to check data: typed comparisons, AND/OR groups and page settings.
//
// Conditions are built with helpers or parsed from an expression:
//
//	cs := condition.And(
//	    condition.FieldEQ("Code", "A"),
//	    condition.Or(
//	        condition.FieldGT("Total", 10),
//	        condition.FieldLike("Name", "ab%"),
//	    ),
//	)
//
//	cs, err := condition.Parse(`Code == "A" && (Total > 10 || like(Name, "ab%"))`)
//
// Backends either evaluate a tree in memory with Match or translate it into
// their own query language by walking Items.
//
// # Matching
//
// Ordering operators compare with Compare: nil equals nil, a present value is
// greater than nil, numbers are compared by value whatever their width, and a
// string compared with a non-string is parsed as the other side's type.
//
// Like is case-insensitive and anchored; '%' matches any run of characters
// and '_' matches one. A pattern without '%' matches anywhere in the value.
//
// An empty group matches every record, whether it is an AND or an OR group.
//
// OpIn and OpNotIn are reserved for backends that can translate them. In
// memory they match every record; see Operator.Implemented.
package condition
