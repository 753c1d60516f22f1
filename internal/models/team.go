package models

import "time"

const DefaultTeamPhoto = "/placeholder.svg?height=200&width=200"

type TeamMember struct {
	ID             string
	Name           string
	Position       string
	Experience     string
	Photo          string
	Specialization string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
