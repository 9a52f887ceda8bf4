package models

import "time"

type ContactSubmission struct {
	ID        string
	Name      string
	Email     string
	Phone     *string
	Subject   string
	Message   string
	CreatedAt time.Time
}
