package models

import "strings"

// PersonData is the identity carried inside a QR payload. It is never stored as its own row.
type PersonData struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	BirthDate string `json:"birthDate"`
}

// Complete reports whether all three fields are set.
func (p PersonData) Complete() bool {
	return p.FirstName != "" && p.LastName != "" && p.BirthDate != ""
}

// Normalized trims the name fields. BirthDate is kept as given.
func (p PersonData) Normalized() PersonData {
	return PersonData{
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		BirthDate: p.BirthDate,
	}
}

// FullName joins first and last name.
func (p PersonData) FullName() string {
	return p.FirstName + " " + p.LastName
}
