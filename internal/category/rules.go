package category

import "regexp"

type Category string

const (
	Quizzes       Category = "Quizzes"
	Assignments   Category = "Assignments"
	Projects      Category = "Projects"
	Participation Category = "Participation"
	PrelimExam    Category = "Prelim Exam"
	MidtermExam   Category = "Midterm Exam"
	PreFinalExam  Category = "Pre-Final Exam"
	FinalExam     Category = "Final Exam"
	Labs          Category = "Labs"
	Recitation    Category = "Recitation"
	Presentations Category = "Presentations"
	CaseStudy     Category = "Case Study"
	Essays        Category = "Essays"
	Practicum     Category = "Practicum"
	Thesis        Category = "Thesis"
	OralExam      Category = "Oral Exam"
)

// Kind says whether a category is scored from one column or averaged
// over every matching column.
type Kind int

const (
	SingleValued Kind = iota
	MultiValued
)

// Rule describes how headers are recognised for one category. Aliases are
// compared case-insensitively after trimming; patterns run against the
// trimmed header and a header matching any Exclude pattern never matches.
type Rule struct {
	Category Category
	Kind     Kind
	Aliases  []string
	Patterns []*regexp.Regexp
	Exclude  []*regexp.Regexp
}

func re(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + expr)
}

// DefaultRules is the resolution table. Order matters: the first rule to
// claim a header in Resolve wins.
var DefaultRules = []Rule{
	{
		Category: Quizzes,
		Kind:     MultiValued,
		Aliases:  []string{"Quizzes", "Quiz", "Quizes", "Pop Quiz", "Pop Quizzes", "Short Quiz"},
		Patterns: []*regexp.Regexp{re(`^q\s*\d+$`), re(`^quiz(z?es)?\s*#?\s*\d+$`), re(`quiz`)},
	},
	{
		Category: Assignments,
		Kind:     MultiValued,
		Aliases:  []string{"Assignments", "Assignment", "Homework", "Homeworks", "HW", "Seatwork", "Seatworks"},
		Patterns: []*regexp.Regexp{re(`^a\s*\d+$`), re(`^as\s*\d+$`), re(`^hw\s*#?\s*\d+$`), re(`^sw\s*\d+$`), re(`assign`), re(`homework`), re(`seatwork`)},
	},
	{
		Category: Projects,
		Kind:     MultiValued,
		Aliases:  []string{"Projects", "Project", "Proj"},
		Patterns: []*regexp.Regexp{re(`^p\s*\d+$`), re(`^proj\s*\d+$`), re(`project`)},
	},
	{
		Category: Participation,
		Kind:     SingleValued,
		Aliases:  []string{"Participation", "Class Participation", "CP", "Attendance"},
		Patterns: []*regexp.Regexp{re(`particip`), re(`attendance`)},
	},
	{
		Category: PrelimExam,
		Kind:     SingleValued,
		Aliases:  []string{"Prelim Exam", "Prelim", "Prelims", "Preliminary Exam", "Preliminary", "PE"},
		Patterns: []*regexp.Regexp{re(`prelim`)},
	},
	{
		Category: MidtermExam,
		Kind:     SingleValued,
		Aliases:  []string{"Midterm Exam", "Midterm", "Midterms", "Mid-term", "Mid Term", "ME", "MT"},
		Patterns: []*regexp.Regexp{re(`mid[\s-]?terms?`)},
	},
	{
		Category: PreFinalExam,
		Kind:     SingleValued,
		Aliases:  []string{"Pre-Final Exam", "Pre-Final", "Pre-Finals", "Prefinal", "Prefinals", "Pre Final", "Semi-Final", "PFE"},
		Patterns: []*regexp.Regexp{re(`pre[\s-]?finals?`), re(`semi[\s-]?finals?`)},
	},
	{
		Category: FinalExam,
		Kind:     SingleValued,
		Aliases:  []string{"Final Exam", "Final", "Finals", "Final Examination", "FE"},
		Patterns: []*regexp.Regexp{re(`finals?`)},
		Exclude:  []*regexp.Regexp{re(`pre[\s-]?final`), re(`semi[\s-]?final`), re(`grade`)},
	},
	{
		Category: Labs,
		Kind:     MultiValued,
		Aliases:  []string{"Labs", "Lab", "Laboratory", "Laboratories", "Lab Work", "Lab Activities"},
		Patterns: []*regexp.Regexp{re(`^lab`), re(`laborator`), re(`^l\s*\d+$`), re(`^le\s*\d+$`)},
	},
	{
		Category: Recitation,
		Kind:     MultiValued,
		Aliases:  []string{"Recitation", "Recitations", "Rec"},
		Patterns: []*regexp.Regexp{re(`recit`), re(`^rec\s*\d+$`), re(`^r\s*\d+$`)},
	},
	{
		Category: Presentations,
		Kind:     MultiValued,
		Aliases:  []string{"Presentations", "Presentation", "Pres", "Reporting"},
		Patterns: []*regexp.Regexp{re(`presentation`), re(`^pres\s*\d+$`)},
	},
	{
		Category: CaseStudy,
		Kind:     MultiValued,
		Aliases:  []string{"Case Study", "Case Studies", "CS"},
		Patterns: []*regexp.Regexp{re(`case\s*stud`), re(`^cs\s*\d+$`)},
	},
	{
		Category: Essays,
		Kind:     MultiValued,
		Aliases:  []string{"Essays", "Essay", "Written Work"},
		Patterns: []*regexp.Regexp{re(`essay`), re(`^e\s*\d+$`)},
	},
	{
		Category: Practicum,
		Kind:     SingleValued,
		Aliases:  []string{"Practicum", "Practical", "Practicals", "Practical Exam"},
		Patterns: []*regexp.Regexp{re(`practicum`), re(`practical`)},
	},
	{
		Category: Thesis,
		Kind:     SingleValued,
		Aliases:  []string{"Thesis", "Dissertation", "Capstone"},
		Patterns: []*regexp.Regexp{re(`thesis`), re(`dissertation`), re(`capstone`)},
	},
	{
		Category: OralExam,
		Kind:     SingleValued,
		Aliases:  []string{"Oral Exam", "Oral", "Orals", "Oral Examination", "Viva"},
		Patterns: []*regexp.Regexp{re(`oral`), re(`viva`)},
	},
}

// Identity column rules. They are kept apart from the grading categories so
// a student number column is never scored.
var (
	StudentNumberRule = Rule{
		Aliases: []string{
			"Student Number", "StudentNumber", "Student_Number", "Student No", "Student No.",
			"Student #", "Student ID", "StudentID", "Student_ID", "ID Number", "ID No", "ID No.", "ID",
		},
		Patterns: []*regexp.Regexp{re(`^student[\s_-]*(number|no\.?|num|#|id)$`), re(`^id[\s_-]*(number|no\.?)$`)},
	}
	StudentNameRule = Rule{
		Aliases:  []string{"Student Name", "Name", "Full Name", "Student", "StudentName", "Student_Name"},
		Patterns: []*regexp.Regexp{re(`^(student|full)[\s_-]*name$`)},
	}
)
