// Package roster reads the class roster spreadsheet, writes photo status
// back to it and tracks the position within the selected class.
package roster

import "github.com/marcus/portrait/internal/models"

// Source is the spreadsheet-backed roster
type Source interface {
	// Locations returns the location (sheet) names in workbook order.
	Locations() ([]string, error)
	// Classes returns the distinct class names of a location, sorted.
	Classes(location string) ([]string, error)
	// People returns the people of a class ordered by last and first name.
	// Rows missing a last name, first name or id are skipped.
	People(location, className string) ([]models.Person, error)
	Marker
}

// Marker writes photo status back to a roster row.
type Marker interface {
	// MarkPhotographed records the outcome for row. date is used when
	// photographed is true, reason when it is false.
	MarkPhotographed(location string, row int, photographed bool, date, reason string) error
}

// Columns maps roster fields to spreadsheet column letters. The status
// columns are optional; an empty letter disables the write.
type Columns struct {
	Class        string
	LastName     string
	FirstName    string
	StudentID    string
	Photographed string
	Date         string
	Reason       string
}

// DefaultColumns returns the column layout of a freshly exported roster.
func DefaultColumns() Columns {
	return Columns{
		Class:        "A",
		LastName:     "B",
		FirstName:    "C",
		StudentID:    "D",
		Photographed: "E",
		Date:         "F",
		Reason:       "G",
	}
}

// DateLayout is the format written to the date column.
const DateLayout = "02.01.2006"

// Values written to the photographed column
const (
	PhotographedYes = "Ja"
	PhotographedNo  = "Nein"
)
