package database

import (
	"io/fs"
	"strings"
	"testing"
)

// Every up migration must have a matching down migration so rollbacks
// never strand the schema.
func TestMigrationsArePaired(t *testing.T) {
	ups := make(map[string]bool)
	downs := make(map[string]bool)

	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		name := d.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", name)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk migrations: %v", err)
	}
	if len(ups) == 0 {
		t.Fatalf("no migrations embedded")
	}
	for name := range ups {
		if !downs[name] {
			t.Errorf("migration %s has no down counterpart", name)
		}
	}
	for name := range downs {
		if !ups[name] {
			t.Errorf("migration %s has no up counterpart", name)
		}
	}
}

func TestMigrationContent(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/0001_init.up.sql")
	if err != nil {
		t.Fatalf("read init migration: %v", err)
	}
	sql := strings.ToLower(string(data))
	for _, table := range []string{"users", "refresh_tokens", "audit_log"} {
		if !strings.Contains(sql, "create table "+table) {
			t.Errorf("init migration missing table %s", table)
		}
	}
}
