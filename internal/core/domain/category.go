package domain

// Category is the classifier's output label. It selects which retrieval
// strategy handles a query.
type Category string

const (
	CategoryGeneral        Category = "general"
	CategoryComprehensive  Category = "comprehensive"
	CategoryHistory        Category = "history"
	CategoryLeadership     Category = "leadership"
	CategoryDeans          Category = "deans"
	CategoryOffice         Category = "office"
	CategoryPrograms       Category = "programs"
	CategoryFaculties      Category = "faculties"
	CategoryStudentOrg     Category = "student_org"
	CategoryAdmission      Category = "admission"
	CategoryHymn           Category = "hymn"
	CategoryVisionMission  Category = "vision_mission"
	CategoryValuesOutcomes Category = "values_outcomes"
	CategorySchedule       Category = "schedule"
	CategoryScholarship    Category = "scholarship"
)

var allCategories = []Category{
	CategoryGeneral,
	CategoryComprehensive,
	CategoryHistory,
	CategoryLeadership,
	CategoryDeans,
	CategoryOffice,
	CategoryPrograms,
	CategoryFaculties,
	CategoryStudentOrg,
	CategoryAdmission,
	CategoryHymn,
	CategoryVisionMission,
	CategoryValuesOutcomes,
	CategorySchedule,
	CategoryScholarship,
}

// Categories returns every known category. The slice is a copy.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory validates a caller-supplied category override.
func ParseCategory(s string) (Category, bool) {
	for _, c := range allCategories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}
