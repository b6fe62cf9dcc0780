package attendance

import (
	"strconv"
	"time"

	"github.com/amigodopovo/academia/core"
)

type Status string

const (
	StatusPresent   Status = "P"
	StatusAbsent    Status = "F"
	StatusJustified Status = "J"
)

func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusJustified
}

// Kind tells how a record entered the system.
type Kind string

const (
	KindManual   Kind = "MANUAL"
	KindImported Kind = "IMPORTED"
	KindAuto     Kind = "AUTO"
)

func (k Kind) Valid() bool {
	return k == KindManual || k == KindImported || k == KindAuto
}

// Record is a presence entry (presenca). StudentID holds the textual form of the student id.
type Record struct {
	ID         int       `json:"id"`
	StudentID  string    `json:"student_id"`
	Date       time.Time `json:"date"`
	Status     Status    `json:"status"`
	Kind       Kind      `json:"record_kind"`
	ClassID    *int      `json:"class_id"`
	Notes      string    `json:"notes"`
	RecordedAt time.Time `json:"recorded_at"` // UTC
}

type NewRecord struct {
	StudentID int       `json:"student_id" validate:"required,gt=0"`
	Date      time.Time `json:"date" validate:"required"`
	Status    string    `json:"status" validate:"required,attendance_status"`
	Kind      string    `json:"record_kind" validate:"omitempty,record_kind"`
	ClassID   *int      `json:"class_id" validate:"omitempty,gt=0"`
	Notes     string    `json:"notes"`
}

func (nr *NewRecord) Validate(v *core.Validator) error {
	nr.Status = core.CleanString(nr.Status)
	nr.Kind = core.CleanString(nr.Kind)
	nr.Notes = core.CleanString(nr.Notes)
	if nr.Kind == "" {
		nr.Kind = string(KindManual)
	}
	return v.Struct(nr)
}

// DateRange bounds a query on both ends, inclusive. Zero values leave that end open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) Contains(d time.Time) bool {
	d = Day(d)
	if !r.From.IsZero() && d.Before(Day(r.From)) {
		return false
	}
	if !r.To.IsZero() && d.After(Day(r.To)) {
		return false
	}
	return true
}

// Day truncates t to its calendar date, in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StudentKey is the textual student reference stored in presencas.aluno_id.
func StudentKey(studentID int) string {
	return strconv.Itoa(studentID)
}

// Frequency is the percentage of present records, 0 when there are none.
func Frequency(records []Record) float64 {
	if len(records) == 0 {
		return 0
	}
	var present int
	for _, r := range records {
		if r.Status == StatusPresent {
			present++
		}
	}
	return float64(present) * 100 / float64(len(records))
}
