package migration

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Generator writes and reads migration files in one directory.
type Generator struct {
	migrationsDir string
	planner       *Planner
}

// NewGenerator creates a new migration file generator.
func NewGenerator(migrationsDir string) *Generator {
	return &Generator{
		migrationsDir: migrationsDir,
		planner:       NewPlanner(),
	}
}

// NormalizeName turns a free-form migration name into the snake_case used in file names.
func NormalizeName(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "_")
}

// Generate creates migration files from a schema diff.
func (g *Generator) Generate(name string, diff *SchemaDiff) (*MigrationFile, error) {
	upSQL, downSQL := g.planner.GenerateMigration(diff)
	return g.write(name, upSQL, downSQL)
}

// GenerateEmpty creates empty migration files for manual editing.
func (g *Generator) GenerateEmpty(name string) (*MigrationFile, error) {
	return g.write(name, "-- Write your UP migration here\n", "-- Write your DOWN migration here\n")
}

func (g *Generator) write(name, upSQL, downSQL string) (*MigrationFile, error) {
	name = NormalizeName(name)
	if name == "" {
		return nil, fmt.Errorf("migration name must contain letters or digits")
	}
	if err := os.MkdirAll(g.migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version := GenerateVersion()
	migrationFile := &MigrationFile{
		Version:  version,
		Name:     name,
		UpPath:   filepath.Join(g.migrationsDir, GenerateFileName(version, name, "up")),
		DownPath: filepath.Join(g.migrationsDir, GenerateFileName(version, name, "down")),
	}

	header := fmt.Sprintf("-- Migration: %s\n-- Version: %s\n\n", name, version)
	if err := g.writeFile(migrationFile.UpPath, header+upSQL); err != nil {
		return nil, fmt.Errorf("failed to write up migration: %w", err)
	}
	if err := g.writeFile(migrationFile.DownPath, header+downSQL); err != nil {
		return nil, fmt.Errorf("failed to write down migration: %w", err)
	}
	return migrationFile, nil
}

// ListMigrations lists complete (up and down) migration files, oldest first.
func (g *Generator) ListMigrations() ([]MigrationFile, error) {
	entries, err := os.ReadDir(g.migrationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []MigrationFile{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	fileMap := make(map[string]*MigrationFile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// {version}_{name}.{direction}.sql
		fileName := entry.Name()
		version, rest, ok := strings.Cut(fileName, "_")
		if !ok {
			continue
		}

		var name string
		var up bool
		if before, ok := strings.CutSuffix(rest, ".up.sql"); ok {
			name, up = before, true
		} else if before, ok := strings.CutSuffix(rest, ".down.sql"); ok {
			name = before
		} else {
			continue
		}

		mf, exists := fileMap[version]
		if !exists {
			mf = &MigrationFile{Version: version, Name: name}
			fileMap[version] = mf
		}
		if up {
			mf.UpPath = filepath.Join(g.migrationsDir, fileName)
		} else {
			mf.DownPath = filepath.Join(g.migrationsDir, fileName)
		}
	}

	migrations := make([]MigrationFile, 0, len(fileMap))
	for _, mf := range fileMap {
		if mf.UpPath != "" && mf.DownPath != "" {
			migrations = append(migrations, *mf)
		}
	}
	slices.SortFunc(migrations, func(a, b MigrationFile) int {
		return cmp.Compare(a.Version, b.Version)
	})
	return migrations, nil
}

// ReadMigration reads the SQL content from a migration file.
func (g *Generator) ReadMigration(file MigrationFile) (*Migration, error) {
	upSQL, err := g.readFile(file.UpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read up migration: %w", err)
	}
	downSQL, err := g.readFile(file.DownPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read down migration: %w", err)
	}
	return &Migration{
		Version: file.Version,
		Name:    file.Name,
		UpSQL:   upSQL,
		DownSQL: downSQL,
	}, nil
}

// LoadAll reads every migration in the directory, oldest first.
func (g *Generator) LoadAll() ([]Migration, error) {
	files, err := g.ListMigrations()
	if err != nil {
		return nil, err
	}
	migrations := make([]Migration, 0, len(files))
	for _, file := range files {
		m, err := g.ReadMigration(file)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", file.Version, err)
		}
		migrations = append(migrations, *m)
	}
	return migrations, nil
}

func (g *Generator) writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func (g *Generator) readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
