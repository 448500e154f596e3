// Package entity holds the records moved by the import job.
package entity

import "fmt"

// Person is one input record.
type Person struct {
	FirstName string
	LastName  string
}

// String renders the record the way the job logs it.
func (p Person) String() string {
	return fmt.Sprintf("firstName: %s, lastName: %s", p.FirstName, p.LastName)
}

// PersonRow is the row model of the people table. The surrogate key is assigned by the database.
type PersonRow struct {
	PersonID  int64  `gorm:"column:person_id;primaryKey;autoIncrement"`
	FirstName string `gorm:"column:first_name"`
	LastName  string `gorm:"column:last_name"`
}

// TableName specifies the default table name for PersonRow.
func (PersonRow) TableName() string {
	return "people"
}

// NewPersonRow maps a Person to its row model.
func NewPersonRow(p Person) PersonRow {
	return PersonRow{FirstName: p.FirstName, LastName: p.LastName}
}

// PersonRecord is the Parquet layout of the post-run export.
type PersonRecord struct {
	FirstName string `parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	LastName  string `parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// NewPersonRecord maps a Person to its export record.
func NewPersonRecord(p Person) PersonRecord {
	return PersonRecord{FirstName: p.FirstName, LastName: p.LastName}
}
