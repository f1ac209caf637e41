package changeset

// Scalar field registry per lettered section. The diff builder only looks at
// known fields, so a mistyped path can never silently read as "no diff".
// Sections C (work orders), D (condition metrics) and E (spares) are
// list-bearing and have no scalar fields.
var SectionFields = map[string][]string{
	"A": {"maker", "model", "serialNo", "drawingNo", "equipmentType", "description"},
	"B": {"location", "installedDate", "department", "criticality"},
	"F": {"classSociety", "certificateNo", "surveyDate"},
	"G": {"runningHours", "runningHoursSource"},
	"H": {"remarks"},
}

// ScalarSections returns the section letters with scalar fields, in a stable
// order for deterministic payloads.
func ScalarSections() []string {
	return []string{"A", "B", "F", "G", "H"}
}

// KnownField reports whether section.field is part of the registry.
func KnownField(section, field string) bool {
	for _, f := range SectionFields[section] {
		if f == field {
			return true
		}
	}
	return false
}
