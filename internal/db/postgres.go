// Package db fetches schema metadata rows from PostgreSQL. It is the only
// component that talks to a database; everything downstream works off the
// flat []metadata.Row it produces.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/sabrimoh/erdash/pkg/metadata"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"name"`
	Schema   string `koanf:"schema"`
	SSLMode  string `koanf:"sslmode"`
}

// DSN builds a key=value connection string from the config.
func (c Config) DSN() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, c.Database, sslmode)
	if c.User != "" {
		dsn += fmt.Sprintf(" user=%s", c.User)
	}
	if c.Password != "" {
		dsn += fmt.Sprintf(" password=%s", c.Password)
	}
	return dsn
}

// SchemaName returns the configured schema, defaulting to public.
func (c Config) SchemaName() string {
	if c.Schema == "" {
		return "public"
	}
	return c.Schema
}

// Client fetches metadata rows from a live database connection.
type Client struct {
	db     *sql.DB
	schema string
	logger *slog.Logger
}

// Open connects to PostgreSQL and validates the connection.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("connecting to postgres",
		slog.String("host", cfg.Host),
		slog.String("database", cfg.Database),
		slog.String("schema", cfg.SchemaName()))

	conn, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Client{db: conn, schema: cfg.SchemaName(), logger: logger}, nil
}

// NewClient wraps an existing connection. Used by tests with a mock driver.
func NewClient(conn *sql.DB, schema string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{db: conn, schema: schema, logger: logger}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.db.Close()
}

// metadataQuery flattens columns, view dependencies, and key constraints of
// one schema into a single row shape.
const metadataQuery = `
WITH tables_and_views AS (
    SELECT
        c.table_schema,
        c.table_name,
        c.column_name,
        t.table_type AS object_type,
        NULL AS dependent_view_name,
        NULL AS source_table_name,
        NULL AS constraint_type,
        NULL AS target_table,
        NULL AS target_column
    FROM information_schema.columns c
    JOIN information_schema.tables t
        ON c.table_schema = t.table_schema AND c.table_name = t.table_name
    WHERE c.table_schema = $1

    UNION ALL

    SELECT
        NULL AS table_schema,
        vu.view_name AS table_name,
        NULL AS column_name,
        'VIEW_DEPENDENCY' AS object_type,
        vu.view_name AS dependent_view_name,
        vu.table_name AS source_table_name,
        NULL AS constraint_type,
        NULL AS target_table,
        NULL AS target_column
    FROM information_schema.view_table_usage vu
    WHERE vu.table_schema = $1

    UNION ALL

    SELECT
        tc.table_schema,
        tc.table_name,
        kcu.column_name,
        'PRIMARY_KEY' AS object_type,
        NULL AS dependent_view_name,
        NULL AS source_table_name,
        tc.constraint_type,
        NULL AS target_table,
        NULL AS target_column
    FROM information_schema.table_constraints tc
    JOIN information_schema.key_column_usage kcu
        ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
    WHERE tc.table_schema = $1
        AND tc.constraint_type = 'PRIMARY KEY'

    UNION ALL

    SELECT
        tc.table_schema,
        tc.table_name,
        kcu.column_name,
        'FOREIGN_KEY' AS object_type,
        NULL AS dependent_view_name,
        ccu.table_name AS source_table_name,
        tc.constraint_type,
        ccu.table_name AS target_table,
        ccu.column_name AS target_column
    FROM information_schema.table_constraints tc
    JOIN information_schema.key_column_usage kcu
        ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
    JOIN information_schema.constraint_column_usage ccu
        ON tc.constraint_name = ccu.constraint_name
    WHERE tc.table_schema = $1
        AND tc.constraint_type = 'FOREIGN KEY'
)
SELECT *
FROM tables_and_views
ORDER BY table_schema, table_name, column_name`

// viewDefinitionsQuery fetches the SQL text of every view in the schema.
const viewDefinitionsQuery = `
SELECT table_name, view_definition
FROM information_schema.views
WHERE table_schema = $1`

// FetchRows retrieves the flattened metadata for the configured schema and
// attaches each view's SQL definition to its rows.
func (c *Client) FetchRows(ctx context.Context) ([]metadata.Row, error) {
	rows, err := c.fetchMetadata(ctx)
	if err != nil {
		return nil, err
	}

	defs, err := c.fetchViewDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	for i := range rows {
		if def, ok := defs[rows[i].TableName]; ok {
			rows[i].ViewDefinition = def
		}
	}

	c.logger.Debug("fetched metadata",
		slog.Int("rows", len(rows)),
		slog.Int("view_definitions", len(defs)))

	return rows, nil
}

func (c *Client) fetchMetadata(ctx context.Context) ([]metadata.Row, error) {
	result, err := c.db.QueryContext(ctx, metadataQuery, c.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query schema metadata: %w", err)
	}
	defer func() { _ = result.Close() }()

	var out []metadata.Row
	for result.Next() {
		var (
			tableSchema, tableName, columnName, objectType sql.NullString
			dependentView, sourceTable, constraintType     sql.NullString
			targetTable, targetColumn                      sql.NullString
		)
		if err := result.Scan(
			&tableSchema, &tableName, &columnName, &objectType,
			&dependentView, &sourceTable, &constraintType,
			&targetTable, &targetColumn,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}

		out = append(out, metadata.Row{
			TableSchema:       tableSchema.String,
			TableName:         tableName.String,
			ColumnName:        columnName.String,
			ObjectType:        metadata.ObjectType(objectType.String),
			DependentViewName: dependentView.String,
			SourceTableName:   sourceTable.String,
			ConstraintType:    constraintType.String,
			TargetTable:       targetTable.String,
			TargetColumn:      targetColumn.String,
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed reading metadata rows: %w", err)
	}
	return out, nil
}

func (c *Client) fetchViewDefinitions(ctx context.Context) (map[string]string, error) {
	result, err := c.db.QueryContext(ctx, viewDefinitionsQuery, c.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query view definitions: %w", err)
	}
	defer func() { _ = result.Close() }()

	defs := make(map[string]string)
	for result.Next() {
		var name, definition sql.NullString
		if err := result.Scan(&name, &definition); err != nil {
			return nil, fmt.Errorf("failed to scan view definition: %w", err)
		}
		if name.String != "" {
			defs[name.String] = definition.String
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed reading view definitions: %w", err)
	}
	return defs, nil
}
