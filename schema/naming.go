package schema

// IDField is the name of the identifier slot every proxy carries.
const IDField = "EntityId"

// DefaultUniqueGroup is the group joined by fields marked unique without a group name.
const DefaultUniqueGroup = "default"

// RelationIDField returns the name of the id slot that backs a singular relation.
func RelationIDField(relation string) string {
	return relation + "Id"
}
