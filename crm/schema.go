// Package crm implements artefact containers over the SQLite mirror of the
// record store.
package crm

import "github.com/teranos/pam/artefact"

const (
	ownerIDColumn   = "ownerid"
	ownerTypeColumn = "owneridtype"
)

// Schema describes the table backing one artefact type.
type Schema struct {
	Type              artefact.Type
	Entity            string
	IDColumn          string
	NameColumn        string
	DescriptionColumn string
	// PayloadColumns are copied verbatim by Duplicate.
	PayloadColumns []string
}

var (
	UserQuerySchema = Schema{
		Type:              artefact.TypeUserQuery,
		Entity:            "userquery",
		IDColumn:          "userqueryid",
		NameColumn:        "name",
		DescriptionColumn: "description",
		PayloadColumns:    []string{"returnedtypecode", "fetchxml", "layoutxml", "querytype"},
	}
	UserFormSchema = Schema{
		Type:              artefact.TypeUserForm,
		Entity:            "userform",
		IDColumn:          "userformid",
		NameColumn:        "name",
		DescriptionColumn: "description",
		PayloadColumns:    []string{"formxml", "type"},
	}
	UserQueryVisualizationSchema = Schema{
		Type:              artefact.TypeUserQueryVisualization,
		Entity:            "userqueryvisualization",
		IDColumn:          "userqueryvisualizationid",
		NameColumn:        "name",
		DescriptionColumn: "description",
		PayloadColumns:    []string{"primaryentitytypecode", "datadescription", "presentationdescription"},
	}
)

// Schemas returns the schema of every artefact type.
func Schemas() []Schema {
	return []Schema{UserQuerySchema, UserFormSchema, UserQueryVisualizationSchema}
}

// SchemaFor looks up the schema for t.
func SchemaFor(t artefact.Type) (Schema, bool) {
	for _, s := range Schemas() {
		if s.Type == t {
			return s, true
		}
	}
	return Schema{}, false
}
