package database

import (
	"testing"
)

func TestDialectDriverNames(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		want    string
	}{
		{"sqlite", NewSQLiteDialect(), "sqlite3"},
		{"postgres", NewPostgresDialect(), "postgres"},
		{"mysql", NewMySQLDialect(), "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DriverName(); got != tt.want {
				t.Errorf("DriverName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO user_stats (user_id, xp) VALUES (?, ?)",
			expected: "INSERT INTO user_stats (user_id, xp) VALUES ($1, $2)",
		},
		{
			name:     "PostgreSQL upsert ordering",
			dialect:  NewPostgresDialect(),
			query:    "UPDATE user_stats SET xp = ?, hearts = ? WHERE user_id = ?",
			expected: "UPDATE user_stats SET xp = $1, hearts = $2 WHERE user_id = $3",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE user_stats SET xp = ?, hearts = ? WHERE user_id = ?",
			expected: "UPDATE user_stats SET xp = ?, hearts = ? WHERE user_id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}
