package nav

const DefaultDashboardPath = "/dashboard/default"

func dashboard(url string) Item {
	return Item{
		ID:    "dashboard",
		Title: "Dashboard",
		Type:  TypeGroup,
		Children: []Item{
			{ID: "default", Title: "Dashboard", Type: TypeItem, URL: url, Icon: "dashboard"},
		},
	}
}

func schools() Item {
	return Item{ID: "schools-page", Title: "Schools", Type: TypeGroup, URL: "/schools", Icon: "buildings", Breadcrumbs: true}
}

func plans() Item {
	return Item{ID: "plans-page", Title: "Plans", Type: TypeGroup, URL: "/plans", Icon: "credit-card", Breadcrumbs: true}
}

func academicCore() Item {
	return Item{
		ID:   "academic-core",
		Type: TypeGroup,
		Children: []Item{
			{
				ID:    "academic-core-menu",
				Title: "Academic Core",
				Type:  TypeCollapse,
				Icon:  "school",
				Children: []Item{
					{ID: "academic-setup", Title: "Academic Setup", Type: TypeItem, URL: "/academic-core/academic-setup"},
					{ID: "sessions", Title: "Sessions", Type: TypeItem, URL: "/academic-core/sessions"},
					{ID: "classes", Title: "Classes", Type: TypeItem, URL: "/academic-core/classes"},
					{ID: "sections", Title: "Sections", Type: TypeItem, URL: "/academic-core/sections"},
				},
			},
		},
	}
}

func students() Item {
	return Item{
		ID:   "students",
		Type: TypeGroup,
		Icon: "school",
		Children: []Item{
			{
				ID:    "students-menu",
				Title: "Students",
				Type:  TypeCollapse,
				Icon:  "school",
				Children: []Item{
					{ID: "all-students", Title: "All Students", Type: TypeItem, URL: "/students/all-students"},
					{ID: "new-admission", Title: "New Admission", Type: TypeItem, URL: "/students/new-admission"},
				},
			},
		},
	}
}

func admissionForm() Item {
	return Item{
		ID:    "admission",
		Title: "Admission",
		Type:  TypeGroup,
		Children: []Item{
			{ID: "admission-form", Title: "Admission Form", Type: TypeItem, URL: "/admission-form", Icon: "brand-chrome", Breadcrumbs: true},
		},
	}
}
