package database

import (
	"strings"
	"testing"
)

func TestDialects(t *testing.T) {
	tests := []struct {
		name       string
		dialect    Dialect
		driver     string
		subdir     string
		insertHint string
	}{
		{name: "SQLite", dialect: NewSQLiteDialect(), driver: "sqlite3", subdir: "sqlite", insertHint: "ON CONFLICT(cache_key) DO NOTHING"},
		{name: "PostgreSQL", dialect: NewPostgresDialect(), driver: "postgres", subdir: "postgres", insertHint: "ON CONFLICT (cache_key) DO NOTHING"},
		{name: "MySQL", dialect: NewMySQLDialect(), driver: "mysql", subdir: "mysql", insertHint: "INSERT IGNORE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DriverName(); got != tt.driver {
				t.Errorf("DriverName() = %v, want %v", got, tt.driver)
			}
			if got := tt.dialect.MigrationsSubdir(); got != tt.subdir {
				t.Errorf("MigrationsSubdir() = %v, want %v", got, tt.subdir)
			}
			if got := tt.dialect.InsertClipQuery(); !strings.Contains(got, tt.insertHint) {
				t.Errorf("InsertClipQuery() = %q, want it to contain %q", got, tt.insertHint)
			}
			if got := tt.dialect.CreateMigrationsTableQuery(); !strings.Contains(got, "migrations") {
				t.Errorf("CreateMigrationsTableQuery() = %q", got)
			}
		})
	}
}

func TestDialectDSN(t *testing.T) {
	cfg := DialectConfig{Path: "./clips.db", URL: "postgres://localhost/yomiage"}

	if got := NewSQLiteDialect().DSN(cfg); got != cfg.Path {
		t.Errorf("SQLite DSN() = %v, want %v", got, cfg.Path)
	}
	if got := NewPostgresDialect().DSN(cfg); got != cfg.URL {
		t.Errorf("PostgreSQL DSN() = %v, want %v", got, cfg.URL)
	}
	if got := NewMySQLDialect().DSN(cfg); got != cfg.URL {
		t.Errorf("MySQL DSN() = %v, want %v", got, cfg.URL)
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		dbType  string
		driver  string
		wantErr bool
	}{
		{dbType: "", driver: "sqlite3"},
		{dbType: "sqlite", driver: "sqlite3"},
		{dbType: "SQLite3", driver: "sqlite3"},
		{dbType: "postgresql", driver: "postgres"},
		{dbType: "mysql", driver: "mysql"},
		{dbType: "oracle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			dialect, err := DialectFor(tt.dbType)
			if tt.wantErr {
				if err == nil {
					t.Errorf("DialectFor(%q) should fail", tt.dbType)
				}
				return
			}
			if err != nil {
				t.Fatalf("DialectFor(%q) error = %v", tt.dbType, err)
			}
			if dialect.DriverName() != tt.driver {
				t.Errorf("DriverName() = %v, want %v", dialect.DriverName(), tt.driver)
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
			query:    "SELECT data FROM audio_clips WHERE cache_key = ?",
			expected: "SELECT data FROM audio_clips WHERE cache_key = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT data FROM audio_clips WHERE cache_key = ?",
			expected: "SELECT data FROM audio_clips WHERE cache_key = $1",
		},
		{
			name:     "PostgreSQL insert",
			dialect:  NewPostgresDialect(),
			query:    NewPostgresDialect().InsertClipQuery(),
			expected: "INSERT INTO audio_clips (cache_key, language, phrase, data) VALUES ($1, $2, $3, $4) ON CONFLICT (cache_key) DO NOTHING",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "DELETE FROM audio_clips WHERE created_at < ?",
			expected: "DELETE FROM audio_clips WHERE created_at < ?",
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

func TestEmbeddedMigrations(t *testing.T) {
	for _, d := range []Dialect{NewSQLiteDialect(), NewPostgresDialect(), NewMySQLDialect()} {
		name := "migrations/" + d.MigrationsSubdir() + "/001_audio_clips.sql"
		content, err := migrationFiles.ReadFile(name)
		if err != nil {
			t.Errorf("missing %s: %v", name, err)
			continue
		}
		if !strings.Contains(string(content), "audio_clips") {
			t.Errorf("%s does not create audio_clips", name)
		}
	}
}
