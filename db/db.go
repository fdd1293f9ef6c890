package db

import (
	"searcher/types"
)

type Database interface {
	Close() error
	EnsureDatabaseExists() error
	CreateTables() error
	DropTables() error

	Exec(query string, args ...any) error
	InsertSubmissions(subs types.Submissions) error

	QueryRecentSubmissions(limit uint) (types.Submissions, error)
	QueryLastSubmission() (*types.Submission, error)
}
