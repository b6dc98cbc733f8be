package entity

import "time"

type Film struct {
	Base
	Title             string `db:"title"`
	DurationInMinutes int    `db:"duration_in_minutes"`
}

func (f *Film) Duration() time.Duration {
	return time.Duration(f.DurationInMinutes) * time.Minute
}
