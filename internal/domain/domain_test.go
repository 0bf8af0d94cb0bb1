package domain

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classcaptain/internal/validate"
)

func validStudent() *Student {
	return &Student{
		Name:         "Riya Sharma",
		GuardianName: "Arun Sharma",
		DateOfBirth:  NewDate(2010, time.March, 4),
		Mobile1:      "9876543210",
		Gender:       "Female",
		AdmittedOn:   NewDate(2024, time.June, 1),
	}
}

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func fieldMap(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *validate.ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	return verr.Map()
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("15/08/2024")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.August, 15), d)

	d, err = ParseDate("2024-08-15")
	require.NoError(t, err)
	assert.Equal(t, "15/08/2024", d.String())

	d, err = ParseDate("  ")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("31/02/2024")
	assert.Error(t, err)
	_, err = ParseDate("Aug 15")
	assert.Error(t, err)
}

func TestDate_JSON(t *testing.T) {
	var b Batch
	require.NoError(t, json.Unmarshal([]byte(`{"name":"A","start_date":"2024-01-10","end_date":null}`), &b))
	assert.Equal(t, NewDate(2024, time.January, 10), b.StartDate)
	assert.True(t, b.EndDate.IsZero())

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"start_date":"10/01/2024"`)
	assert.Contains(t, string(out), `"end_date":null`)

	assert.Error(t, json.Unmarshal([]byte(`{"start_date":"tomorrow"}`), &b))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2023, time.May, 2, 17, 30, 0, 0, time.Local)))
	assert.Equal(t, NewDate(2023, time.May, 2), d)

	require.NoError(t, d.Scan([]byte("2023-05-03")))
	assert.Equal(t, "03/05/2023", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	v, err := d.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Error(t, d.Scan(12))
}

func TestStudent_Prepare(t *testing.T) {
	s := validStudent()
	s.Prepare("Sunrise")

	assert.Equal(t, "Sunrise", s.AcademyID)
	assert.Regexp(t, regexp.MustCompile(`^STU\d{6}[0-9A-Z]{3}$`), s.StudentCode)
	assert.Equal(t, strings.ToLower(s.StudentCode)+"@sunrise.com", s.Email)
	assert.Equal(t, Female, s.Gender)
	assert.Equal(t, NoTransport, s.Transport)
	assert.Equal(t, DefaultBatch, s.BatchList)
}

func TestStudent_PrepareKeepsGivenValues(t *testing.T) {
	s := validStudent()
	s.StudentCode = "STU000001ABC"
	s.Email = "riya@example.com"
	s.BatchList = "Physics A"
	s.Prepare("sunrise")

	assert.Equal(t, "STU000001ABC", s.StudentCode)
	assert.Equal(t, "riya@example.com", s.Email)
	assert.Equal(t, "Physics A", s.BatchList)
}

func TestStudent_DerivedEmailIsLowercase(t *testing.T) {
	s := validStudent()
	s.StudentCode = "STU123456XYZ"
	s.Prepare("BrightMinds")
	assert.Equal(t, "stu123456xyz@brightminds.com", s.Email)
}

func TestStudent_BatchMembership(t *testing.T) {
	s := &Student{}
	s.SetBatchNames([]string{" Physics A ", "", "Maths B"})
	assert.Equal(t, "Physics A, Maths B", s.BatchList)
	assert.Equal(t, []string{"Physics A", "Maths B"}, s.BatchNames())
	assert.True(t, s.InBatch("maths b"))
	assert.False(t, s.InBatch("Maths"))

	s.SetBatchNames(nil)
	assert.Equal(t, DefaultBatch, s.BatchList)
}

func TestRoster(t *testing.T) {
	a := &Student{Meta: Meta{ID: "1"}, BatchList: "Physics A, Maths B"}
	b := &Student{Meta: Meta{ID: "2"}, BatchList: "General"}
	c := &Student{Meta: Meta{ID: "3"}, BatchList: "Maths B"}

	got := Roster([]*Student{a, b, c}, "Maths B")
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
	assert.Empty(t, Roster([]*Student{a, b, c}, "Chemistry"))
}

func TestValidator_Student(t *testing.T) {
	v := NewValidator()

	s := validStudent()
	s.Prepare("sunrise")
	assert.NoError(t, v.Struct(s))

	s.Mobile1 = "98765"
	s.DateOfBirth = Date{}
	s.Gender = "unknown"
	m := fieldMap(t, v.Struct(s))
	assert.Equal(t, "mobile_number_1 must be 10 digits", m["mobile_number_1"])
	assert.Equal(t, "this field is required", m["date_of_birth"])
	assert.Contains(t, m, "gender")
}

func TestValidator_Teacher(t *testing.T) {
	v := NewValidator()
	tc := &Teacher{
		Name:        "Meena Iyer",
		Subject:     "Physics",
		DateOfBirth: NewDate(1985, time.July, 1),
		Mobile:      "9123456780",
		JoinedOn:    NewDate(2020, time.April, 1),
	}
	tc.Prepare("sunrise")
	assert.Regexp(t, `^TCH\d{6}[0-9A-Z]{3}$`, tc.TeacherCode)
	assert.NoError(t, v.Struct(tc))

	tc.Email = "not-an-email"
	tc.Subject = ""
	m := fieldMap(t, v.Struct(tc))
	assert.Contains(t, m, "email")
	assert.Equal(t, "this field is required", m["subject"])
}

func TestValidator_Batch(t *testing.T) {
	v := NewValidator()
	ok := &Batch{
		Name:        "Physics A",
		Subject:     "Physics",
		Schedule:    ScheduleSuggestions[0],
		StartDate:   NewDate(2024, time.January, 10),
		EndDate:     NewDate(2024, time.June, 10),
		MaxStudents: intPtr(30),
		Fees:        floatPtr(0),
	}
	assert.NoError(t, v.Struct(ok))

	tests := []struct {
		name  string
		mut   func(b *Batch)
		field string
		msg   string
	}{
		{"missing name", func(b *Batch) { b.Name = "" }, "name", "this field is required"},
		{"missing schedule", func(b *Batch) { b.Schedule = "" }, "schedule", "this field is required"},
		{"missing start", func(b *Batch) { b.StartDate = Date{} }, "start_date", "this field is required"},
		{"end equals start", func(b *Batch) { b.EndDate = b.StartDate }, "end_date", "end_date must be after start date"},
		{"end before start", func(b *Batch) { b.EndDate = NewDate(2023, time.December, 31) }, "end_date", "end_date must be after start date"},
		{"zero capacity", func(b *Batch) { b.MaxStudents = intPtr(0) }, "max_students", "max_students must be a positive number"},
		{"negative fees", func(b *Batch) { b.Fees = floatPtr(-1) }, "fees", "fees must be a valid amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := *ok
			tt.mut(&b)
			m := fieldMap(t, v.Struct(&b))
			assert.Equal(t, tt.msg, m[tt.field])
		})
	}
}

func TestValidator_BatchOptionalFields(t *testing.T) {
	b := &Batch{
		Name:      "Open",
		Subject:   "English",
		Schedule:  "Daily - 9:00 AM to 10:00 AM",
		StartDate: NewDate(2024, time.January, 10),
	}
	assert.NoError(t, NewValidator().Struct(b))
}

func TestCollection_Valid(t *testing.T) {
	for _, c := range Collections {
		assert.True(t, c.Valid())
	}
	assert.False(t, Collection("attendance").Valid())
}
