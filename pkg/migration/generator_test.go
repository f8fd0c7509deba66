package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marshallshelly/pebble-apps/pkg/schema"
)

func TestGenerateVersion(t *testing.T) {
	version := GenerateVersion()
	if len(version) != 14 {
		t.Errorf("Expected version length 14, got %d", len(version))
	}
	for _, c := range version {
		if c < '0' || c > '9' {
			t.Errorf("Expected numeric version, got %s", version)
			break
		}
	}
}

func TestGenerateFileName(t *testing.T) {
	tests := []struct {
		version   string
		name      string
		direction string
		expected  string
	}{
		{"20240101120000", "create_cars", "up", "20240101120000_create_cars.up.sql"},
		{"20240101120000", "create_cars", "down", "20240101120000_create_cars.down.sql"},
		{"20240215153045", "add_vin_index", "up", "20240215153045_add_vin_index.up.sql"},
	}

	for _, test := range tests {
		result := GenerateFileName(test.version, test.name, test.direction)
		if result != test.expected {
			t.Errorf("GenerateFileName(%s, %s, %s) = %s, expected %s",
				test.version, test.name, test.direction, result, test.expected)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"create_cars":        "create_cars",
		"Add VIN index":      "add_vin_index",
		"  gym -- bookings ": "gym_bookings",
		"!!!":                "",
	}
	for in, want := range tests {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGeneratorGenerate(t *testing.T) {
	tmpDir := t.TempDir()
	generator := NewGenerator(filepath.Join(tmpDir, "migrations"))

	diff := &SchemaDiff{
		TablesAdded: []schema.TableMetadata{{
			Name: "tags",
			Columns: []schema.ColumnMetadata{
				{Name: "id", SQLType: "bigserial", AutoIncrement: true},
				{Name: "name", SQLType: "text", Unique: true},
			},
			PrimaryKey: &schema.PrimaryKeyMetadata{Name: "tags_pkey", Columns: []string{"id"}},
		}},
	}

	file, err := generator.Generate("create tags", diff)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if file.Name != "create_tags" {
		t.Errorf("expected name create_tags, got %s", file.Name)
	}

	up, err := os.ReadFile(file.UpPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(up), "-- Migration: create_tags\n") {
		t.Errorf("expected header, got:\n%s", up)
	}
	if !strings.Contains(string(up), "CREATE TABLE IF NOT EXISTS tags") {
		t.Errorf("expected CREATE TABLE in up migration:\n%s", up)
	}

	down, err := os.ReadFile(file.DownPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(down), `DROP TABLE IF EXISTS "tags";`) {
		t.Errorf("expected DROP TABLE in down migration:\n%s", down)
	}
}

func TestGeneratorGenerateRejectsEmptyName(t *testing.T) {
	if _, err := NewGenerator(t.TempDir()).GenerateEmpty("---"); err == nil {
		t.Error("expected an error for a name without letters or digits")
	}
}

func TestGeneratorListAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("20240301000000_second.up.sql", "CREATE TABLE b (id int);")
	write("20240301000000_second.down.sql", "DROP TABLE b;")
	write("20240101000000_first.up.sql", "CREATE TABLE a (id int);")
	write("20240101000000_first.down.sql", "DROP TABLE a;")
	write("20240401000000_orphan.up.sql", "SELECT 1;")
	write("README.md", "not a migration")

	generator := NewGenerator(tmpDir)

	files, err := generator.ListMigrations()
	if err != nil {
		t.Fatalf("ListMigrations: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 complete migrations, got %d", len(files))
	}
	if files[0].Version != "20240101000000" || files[1].Name != "second" {
		t.Errorf("unexpected order: %+v", files)
	}

	migrations, err := generator.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if migrations[1].UpSQL != "CREATE TABLE b (id int);" || migrations[0].DownSQL != "DROP TABLE a;" {
		t.Errorf("unexpected content: %+v", migrations)
	}
}

func TestGeneratorListMissingDir(t *testing.T) {
	files, err := NewGenerator(filepath.Join(t.TempDir(), "nope")).ListMigrations()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %d", len(files))
	}
}
