package grading

func LetterGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}

func Standing(percentage float64) string {
	switch {
	case percentage >= 80:
		return "Good Standing"
	case percentage >= 70:
		return "Passing"
	case percentage >= 60:
		return "At Risk"
	default:
		return "Failing"
	}
}
