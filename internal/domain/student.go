package domain

import (
	"fmt"
	"strings"

	"classcaptain/internal/ident"
)

// Gender of a student.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
	Other  Gender = "other"
)

// Transport tells whether the student uses the academy's transport.
type Transport string

const (
	UsesTransport Transport = "uses-transport"
	NoTransport   Transport = "no-transport"
)

// DefaultBatch is stored when a student is admitted without selecting a batch.
const DefaultBatch = "General"

// Student is an enrolled student of one academy.
type Student struct {
	Meta

	Name         string    `json:"name" validate:"required"`
	StudentCode  string    `json:"student_id" validate:"required"`
	Email        string    `json:"email" validate:"omitempty,email"`
	RollNumber   string    `json:"roll_number,omitempty"`
	IDNumber     string    `json:"id_number,omitempty"`
	GuardianName string    `json:"father_name" validate:"required"`
	DateOfBirth  Date      `json:"date_of_birth" validate:"required"`
	Mobile1      string    `json:"mobile_number_1" validate:"required,mobile10"`
	Mobile2      string    `json:"mobile_number_2,omitempty" validate:"omitempty,mobile10"`
	Gender       Gender    `json:"gender" validate:"required,oneof=male female other"`
	Address      string    `json:"address,omitempty"`
	AdmittedOn   Date      `json:"admission_date" validate:"required"`
	Transport    Transport `json:"transport_use" validate:"required,oneof=uses-transport no-transport"`
	Field1       string    `json:"field_1,omitempty"`
	Field2       string    `json:"field_2,omitempty"`

	// BatchList is the denormalized, comma-joined list of batch names the student
	// attends. Read and write it through BatchNames/SetBatchNames only.
	BatchList string `json:"batch"`
}

func (s *Student) Base() *Meta            { return &s.Meta }
func (s *Student) Collection() Collection { return Students }

func (s *Student) Prepare(academyID string) {
	s.AcademyID = academyID
	s.Name = strings.TrimSpace(s.Name)
	s.GuardianName = strings.TrimSpace(s.GuardianName)
	s.Mobile1 = strings.TrimSpace(s.Mobile1)
	s.Mobile2 = strings.TrimSpace(s.Mobile2)
	s.Gender = Gender(strings.ToLower(strings.TrimSpace(string(s.Gender))))
	if s.Transport == "" {
		s.Transport = NoTransport
	}
	if strings.TrimSpace(s.StudentCode) == "" {
		s.StudentCode = ident.Generate(ident.StudentPrefix)
	}
	s.StudentCode = strings.TrimSpace(s.StudentCode)
	if s.Email == "" && academyID != "" {
		s.Email = strings.ToLower(fmt.Sprintf("%s@%s.com", s.StudentCode, academyID))
	}
	if strings.TrimSpace(s.BatchList) == "" {
		s.BatchList = DefaultBatch
	}
}

func (s *Student) Code() (string, string) { return "student_id", s.StudentCode }
func (s *Student) SetCode(code string)    { s.StudentCode = code }

// BatchNames splits the membership string into batch names.
func (s *Student) BatchNames() []string {
	var names []string
	for _, part := range strings.Split(s.BatchList, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// SetBatchNames stores the membership; an empty selection means DefaultBatch.
func (s *Student) SetBatchNames(names []string) {
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			kept = append(kept, n)
		}
	}
	if len(kept) == 0 {
		s.BatchList = DefaultBatch
		return
	}
	s.BatchList = strings.Join(kept, ", ")
}

// InBatch reports whether the student attends the named batch.
func (s *Student) InBatch(name string) bool {
	for _, n := range s.BatchNames() {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// Roster returns, in list order, the students attending the named batch.
func Roster(students []*Student, batchName string) []*Student {
	out := make([]*Student, 0)
	for _, s := range students {
		if s.InBatch(batchName) {
			out = append(out, s)
		}
	}
	return out
}
