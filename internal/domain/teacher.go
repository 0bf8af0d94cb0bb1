package domain

import (
	"strings"

	"classcaptain/internal/ident"
)

// Teacher is a member of an academy's teaching staff.
type Teacher struct {
	Meta

	TeacherCode string `json:"teacher_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Subject     string `json:"subject" validate:"required"`
	DateOfBirth Date   `json:"date_of_birth" validate:"required"`
	Mobile      string `json:"mobile_number" validate:"required,mobile10"`
	Address     string `json:"address,omitempty"`
	JoinedOn    Date   `json:"joining_date" validate:"required"`
}

func (t *Teacher) Base() *Meta            { return &t.Meta }
func (t *Teacher) Collection() Collection { return Teachers }

func (t *Teacher) Code() (string, string) { return "teacher_id", t.TeacherCode }
func (t *Teacher) SetCode(code string)    { t.TeacherCode = code }

func (t *Teacher) Prepare(academyID string) {
	t.AcademyID = academyID
	t.Name = strings.TrimSpace(t.Name)
	t.Subject = strings.TrimSpace(t.Subject)
	t.Mobile = strings.TrimSpace(t.Mobile)
	t.Email = strings.TrimSpace(t.Email)
	if strings.TrimSpace(t.TeacherCode) == "" {
		t.TeacherCode = ident.Generate(ident.TeacherPrefix)
	}
	t.TeacherCode = strings.TrimSpace(t.TeacherCode)
}
