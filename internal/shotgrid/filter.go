package shotgrid

// Filter is one condition of a search, encoded as [field, operator, value].
type Filter []any

// Link references another entity inside a filter value.
type Link struct {
	Type string `json:"type"`
	ID   int    `json:"id"`
}

func Is(field string, value any) Filter {
	return Filter{field, "is", value}
}

func InProject(projectID int) Filter {
	return Is("project", Link{Type: "Project", ID: projectID})
}
