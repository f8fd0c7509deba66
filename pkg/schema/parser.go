package schema

import (
	"fmt"
	"reflect"
	"strings"
)

const (
	// StructTagKey is the key used in struct tags (e.g., `po:"..."`).
	StructTagKey = "po"
)

// Tabler is implemented by models that name their own table.
type Tabler interface {
	TableName() string
}

// TableIndexer is implemented by models that declare expression or partial indexes
// that a column tag cannot express.
type TableIndexer interface {
	TableIndexes() []IndexMetadata
}

// Parser parses struct definitions to extract table metadata.
type Parser struct {
	typeMapper *TypeMapper
	cache      map[reflect.Type]*TableMetadata
}

// NewParser creates a new Parser instance.
func NewParser() *Parser {
	return &Parser{
		typeMapper: DefaultTypeMapper,
		cache:      make(map[reflect.Type]*TableMetadata),
	}
}

// Parse extracts TableMetadata from a Go struct type.
func (p *Parser) Parse(modelType reflect.Type) (*TableMetadata, error) {
	for modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", modelType.Kind())
	}
	if cached, ok := p.cache[modelType]; ok {
		return cached, nil
	}

	table := &TableMetadata{
		Name:        p.extractTableName(modelType),
		GoType:      modelType,
		Columns:     make([]ColumnMetadata, 0),
		ForeignKeys: make([]ForeignKeyMetadata, 0),
		Indexes:     make([]IndexMetadata, 0),
		Constraints: make([]ConstraintMetadata, 0),
	}

	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		if !field.IsExported() {
			continue
		}
		tagValue := field.Tag.Get(StructTagKey)
		if tagValue == "" || tagValue == "-" {
			continue
		}
		opts, err := p.parseTag(tagValue)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tag for field %s: %w", field.Name, err)
		}

		column, err := p.createColumnMetadata(field, opts, i)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		if opts.Has("primaryKey") {
			if table.PrimaryKey == nil {
				table.PrimaryKey = &PrimaryKeyMetadata{
					Columns: []string{column.Name},
					Name:    table.Name + "_pkey",
				}
			} else {
				table.PrimaryKey.Columns = append(table.PrimaryKey.Columns, column.Name)
			}
		}

		if len(column.Enum) > 0 {
			table.Constraints = append(table.Constraints, ConstraintMetadata{
				Name:       fmt.Sprintf("chk_%s_%s_enum", table.Name, column.Name),
				Type:       CheckConstraint,
				Columns:    []string{column.Name},
				Expression: enumCheckExpression(column.Name, column.Enum),
			})
		}
		if expr := opts.Get("check"); expr != "" {
			table.Constraints = append(table.Constraints, ConstraintMetadata{
				Name:       fmt.Sprintf("chk_%s_%s", table.Name, column.Name),
				Type:       CheckConstraint,
				Columns:    []string{column.Name},
				Expression: "(" + expr + ")",
			})
		}
		if opts.Has("index") {
			table.Indexes = append(table.Indexes, IndexMetadata{
				Name:    fmt.Sprintf("idx_%s_%s", table.Name, column.Name),
				Columns: []string{column.Name},
			})
		}

		if fk, ok := p.parseForeignKey(table.Name, column.Name, opts); ok {
			table.ForeignKeys = append(table.ForeignKeys, fk)
		}

		table.Columns = append(table.Columns, column)
	}

	if indexer, ok := reflect.New(modelType).Elem().Interface().(TableIndexer); ok {
		table.Indexes = append(table.Indexes, indexer.TableIndexes()...)
	}

	p.cache[modelType] = table
	return table, nil
}

// extractTableName resolves the table name: the model's TableName, else the
// snake_case struct name.
func (p *Parser) extractTableName(modelType reflect.Type) string {
	if tabler, ok := reflect.New(modelType).Elem().Interface().(Tabler); ok {
		if name := tabler.TableName(); name != "" {
			return name
		}
	}
	return toSnakeCase(modelType.Name())
}

// createColumnMetadata creates a ColumnMetadata from a struct field.
func (p *Parser) createColumnMetadata(field reflect.StructField, opts *TagOptions, position int) (ColumnMetadata, error) {
	column := ColumnMetadata{
		Name:     opts.Name,
		GoField:  field.Name,
		GoType:   field.Type,
		Position: position,
	}
	if sqlType := opts.GetSQLType(); sqlType != "" {
		column.SQLType = sqlType
	} else {
		column.SQLType = p.typeMapper.GoTypeToPostgreSQL(field.Type)
	}
	if column.SQLType == "" {
		return column, fmt.Errorf("cannot infer SQL type for %s, declare it in the tag", field.Type)
	}

	column.Nullable = !opts.Has("notNull") && !opts.Has("primaryKey")
	if IsNullable(field.Type) {
		column.Nullable = true
	}
	if defaultVal := opts.Get("default"); defaultVal != "" {
		if err := ValidateDefaultValue(defaultVal); err != nil {
			return column, err
		}
		column.Default = &defaultVal
	}
	column.Unique = opts.Has("unique")
	column.AutoIncrement = opts.Has("serial") || opts.Has("bigserial") || opts.Has("autoIncrement")

	if values := opts.Get("enum"); values != "" {
		column.Enum = strings.Split(values, "|")
	}
	return column, nil
}

// parseForeignKey reads `fk:table.column` (or `fk:table(column)`) with optional
// `onDelete:` and `onUpdate:` actions from the same tag.
func (p *Parser) parseForeignKey(tableName, columnName string, opts *TagOptions) (ForeignKeyMetadata, bool) {
	fkStr := opts.Get("fk")
	if fkStr == "" {
		return ForeignKeyMetadata{}, false
	}

	var refTable, refColumn string
	if before, after, ok := strings.Cut(fkStr, "."); ok {
		refTable, refColumn = before, after
	} else if idx := strings.Index(fkStr, "("); idx > 0 && strings.HasSuffix(fkStr, ")") {
		refTable, refColumn = fkStr[:idx], fkStr[idx+1:len(fkStr)-1]
	}
	if refTable == "" || refColumn == "" {
		return ForeignKeyMetadata{}, false
	}

	return ForeignKeyMetadata{
		Name:              fmt.Sprintf("fk_%s_%s_%s", tableName, columnName, refTable),
		Columns:           []string{columnName},
		ReferencedTable:   refTable,
		ReferencedColumns: []string{refColumn},
		OnDelete:          parseReferenceAction(opts.Get("onDelete")),
		OnUpdate:          parseReferenceAction(opts.Get("onUpdate")),
	}, true
}

// TagOptions represents parsed tag options.
type TagOptions struct {
	Name    string            // Column name (first element)
	Options map[string]string // Other options
}

// parseTag parses a struct tag value into TagOptions.
// Format: "column_name,option1,option2(value),key:value"
func (p *Parser) parseTag(tag string) (*TagOptions, error) {
	parts := splitTag(tag)
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("empty tag value")
	}
	opts := &TagOptions{
		Name:    parts[0],
		Options: make(map[string]string),
	}
	for _, opt := range parts[1:] {
		colon, paren := strings.Index(opt, ":"), strings.Index(opt, "(")
		if colon != -1 && (paren == -1 || colon < paren) {
			opts.Options[opt[:colon]] = opt[colon+1:]
		} else if idx := paren; idx != -1 {
			if !strings.HasSuffix(opt, ")") {
				return nil, fmt.Errorf("invalid option format: %s", opt)
			}
			opts.Options[opt[:idx]] = opt[idx+1 : len(opt)-1]
		} else {
			opts.Options[opt] = ""
		}
	}
	return opts, nil
}

// Has checks if an option exists.
func (t *TagOptions) Has(key string) bool {
	_, ok := t.Options[key]
	return ok
}

// Get returns the value of an option.
func (t *TagOptions) Get(key string) string {
	return t.Options[key]
}

var tagSQLTypes = []string{
	"bigserial", "serial",
	"varchar", "text[]", "text", "char",
	"smallint", "integer", "bigint",
	"numeric", "decimal", "real", "double precision",
	"boolean",
	"date", "time", "timestamptz", "timestamp", "interval",
	"uuid", "bytea",
}

// GetSQLType returns the SQL type declared in the tag, if any.
func (t *TagOptions) GetSQLType() string {
	for _, pgType := range tagSQLTypes {
		if !t.Has(pgType) {
			continue
		}
		if value := t.Get(pgType); value != "" {
			return fmt.Sprintf("%s(%s)", pgType, value)
		}
		return pgType
	}
	return ""
}

// splitTag splits a tag value by commas, handling nested parentheses.
func splitTag(tag string) []string {
	var parts []string
	var current strings.Builder
	depth := 0
	for _, ch := range tag {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(current.String()))
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, strings.TrimSpace(current.String()))
	}
	return parts
}

// toSnakeCase converts a string from PascalCase to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, ch := range s {
		if i > 0 && ch >= 'A' && ch <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(ch)
	}
	return strings.ToLower(result.String())
}

// parseReferenceAction converts a tag value to a ReferenceAction.
func parseReferenceAction(action string) ReferenceAction {
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case "CASCADE":
		return Cascade
	case "RESTRICT":
		return Restrict
	case "SETNULL", "SET NULL":
		return SetNull
	case "SETDEFAULT", "SET DEFAULT":
		return SetDefault
	default:
		return NoAction
	}
}
