package domain

import "strings"

// Batch is a class group with a subject, schedule and optional teacher.
type Batch struct {
	Meta

	Name        string   `json:"name" validate:"required"`
	Subject     string   `json:"subject" validate:"required"`
	TeacherID   string   `json:"teacher_id,omitempty"`
	Schedule    string   `json:"schedule" validate:"required"`
	StartDate   Date     `json:"start_date" validate:"required"`
	EndDate     Date     `json:"end_date"`
	MaxStudents *int     `json:"max_students,omitempty"`
	Fees        *float64 `json:"fees,omitempty"`
	Description string   `json:"description,omitempty"`
}

func (b *Batch) Base() *Meta            { return &b.Meta }
func (b *Batch) Collection() Collection { return Batches }

func (b *Batch) Prepare(academyID string) {
	b.AcademyID = academyID
	b.Name = strings.TrimSpace(b.Name)
	b.Subject = strings.TrimSpace(b.Subject)
	b.Schedule = strings.TrimSpace(b.Schedule)
	b.TeacherID = strings.TrimSpace(b.TeacherID)
}

// SubjectSuggestions are offered by the batch form; any subject text is accepted.
var SubjectSuggestions = []string{
	"Mathematics",
	"Physics",
	"Chemistry",
	"Biology",
	"English",
	"Hindi",
	"Computer Science",
	"Economics",
	"Accountancy",
	"Business Studies",
	"History",
	"Geography",
	"Political Science",
	"Sociology",
	"Psychology",
}

// ScheduleSuggestions are the usual timetable slots.
var ScheduleSuggestions = []string{
	"Monday, Wednesday, Friday - 9:00 AM to 10:30 AM",
	"Tuesday, Thursday, Saturday - 9:00 AM to 10:30 AM",
	"Monday, Wednesday, Friday - 2:00 PM to 3:30 PM",
	"Tuesday, Thursday, Saturday - 2:00 PM to 3:30 PM",
	"Monday, Wednesday, Friday - 4:00 PM to 5:30 PM",
	"Tuesday, Thursday, Saturday - 4:00 PM to 5:30 PM",
	"Monday, Wednesday, Friday - 6:00 PM to 7:30 PM",
	"Tuesday, Thursday, Saturday - 6:00 PM to 7:30 PM",
	"Daily - 9:00 AM to 10:00 AM",
	"Daily - 2:00 PM to 3:00 PM",
	"Daily - 4:00 PM to 5:00 PM",
	"Daily - 6:00 PM to 7:00 PM",
	"Weekends Only - Saturday & Sunday 10:00 AM to 12:00 PM",
}
