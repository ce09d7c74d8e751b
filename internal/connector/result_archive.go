package connector

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/nba-endpoint-analyzer/pkg/models"
)

// ArchiveTable holds one row per endpoint analysis
const ArchiveTable = "endpoint_analysis"

const createArchiveTable = "CREATE TABLE IF NOT EXISTS `" + ArchiveTable + "` (" +
	"`id` BIGINT AUTO_INCREMENT PRIMARY KEY, " +
	"`run_id` CHAR(36) NOT NULL, " +
	"`endpoint` VARCHAR(128) NOT NULL, " +
	"`status` VARCHAR(16) NOT NULL, " +
	"`parameters` JSON NOT NULL, " +
	"`required_parameters` JSON NOT NULL, " +
	"`nullable_parameters` JSON NOT NULL, " +
	"`parameter_patterns` JSON NOT NULL, " +
	"`data_sets` JSON NOT NULL, " +
	"`last_validated_date` DATE NULL, " +
	"`analyzed_at` TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP, " +
	"KEY `idx_endpoint` (`endpoint`), " +
	"KEY `idx_run` (`run_id`))"

const insertArchiveRow = "INSERT INTO `" + ArchiveTable + "` " +
	"(`run_id`, `endpoint`, `status`, `parameters`, `required_parameters`, `nullable_parameters`, " +
	"`parameter_patterns`, `data_sets`, `last_validated_date`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"

// ResultArchive exports analysis results to a MySQL database
type ResultArchive struct {
	Host     string
	User     string
	Password string
	Database string
	Port     string
	DB       *sql.DB
	Logger   *logrus.Logger
}

// NewResultArchive creates a new archive; empty arguments fall back to MYSQL_* environment variables
func NewResultArchive(host, user, password, database, port string, logger *logrus.Logger) *ResultArchive {
	if host == "" {
		host = getEnvOrDefault("MYSQL_HOST", "localhost")
	}
	if user == "" {
		user = getEnvOrDefault("MYSQL_USER", "root")
	}
	if password == "" {
		password = getEnvOrDefault("MYSQL_PASSWORD", "")
	}
	if database == "" {
		database = getEnvOrDefault("MYSQL_DATABASE", "")
	}
	if port == "" {
		port = getEnvOrDefault("MYSQL_PORT", "3306")
	}

	return &ResultArchive{
		Host:     host,
		User:     user,
		Password: password,
		Database: database,
		Port:     port,
		Logger:   logger,
	}
}

// DSN returns the driver connection string
func (ra *ResultArchive) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", ra.User, ra.Password, ra.Host, ra.Port, ra.Database)
}

// Connect opens the database and makes sure the archive table exists
func (ra *ResultArchive) Connect() error {
	if ra.Database == "" {
		return fmt.Errorf("database name must be provided either as an argument or as MYSQL_DATABASE environment variable")
	}

	db, err := sql.Open("mysql", ra.DSN())
	if err != nil {
		ra.Logger.Errorf("Error connecting to MySQL database: %v", err)
		return err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		ra.Logger.Errorf("Error pinging MySQL database: %v", err)
		_ = db.Close()
		return err
	}

	ra.DB = db
	ra.Logger.Infof("Connected to MySQL archive: %s", ra.Database)
	return ra.EnsureSchema()
}

// Disconnect closes the database connection
func (ra *ResultArchive) Disconnect() {
	if ra.DB == nil {
		return
	}
	if err := ra.DB.Close(); err != nil {
		ra.Logger.Errorf("Error closing database connection: %v", err)
		return
	}
	ra.Logger.Info("MySQL connection closed")
}

// EnsureSchema creates the archive table when missing
func (ra *ResultArchive) EnsureSchema() error {
	if ra.DB == nil {
		return fmt.Errorf("archive is not connected")
	}
	if _, err := ra.DB.Exec(createArchiveTable); err != nil {
		ra.Logger.Errorf("Error creating archive table: %v", err)
		return err
	}
	return nil
}

// Record inserts a single analysis result
func (ra *ResultArchive) Record(runID string, schema *models.EndpointSchema) error {
	if ra.DB == nil {
		return fmt.Errorf("archive is not connected")
	}

	args, err := archiveRow(runID, schema)
	if err != nil {
		return err
	}
	if _, err := ra.DB.Exec(insertArchiveRow, args...); err != nil {
		ra.Logger.Errorf("Error archiving %s: %v", schema.Endpoint, err)
		return err
	}
	return nil
}

// RecordBatch inserts many analysis results in one transaction
func (ra *ResultArchive) RecordBatch(runID string, schemas []*models.EndpointSchema) (int64, error) {
	if ra.DB == nil {
		return 0, fmt.Errorf("archive is not connected")
	}
	if len(schemas) == 0 {
		return 0, nil
	}

	// Start a transaction
	tx, err := ra.DB.Begin()
	if err != nil {
		ra.Logger.Errorf("Error starting transaction: %v", err)
		return 0, err
	}

	stmt, err := tx.Prepare(insertArchiveRow)
	if err != nil {
		ra.Logger.Errorf("Error preparing statement: %v", err)
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	var total int64
	for _, schema := range schemas {
		args, err := archiveRow(runID, schema)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}

		result, err := stmt.Exec(args...)
		if err != nil {
			ra.Logger.Errorf("Error archiving %s: %v", schema.Endpoint, err)
			_ = tx.Rollback()
			return 0, err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			ra.Logger.Errorf("Error getting affected rows: %v", err)
			_ = tx.Rollback()
			return 0, err
		}
		total += affected
	}

	if err := tx.Commit(); err != nil {
		ra.Logger.Errorf("Error committing transaction: %v", err)
		_ = tx.Rollback()
		return 0, err
	}

	ra.Logger.Infof("Archived %d analyses for run %s", total, runID)
	return total, nil
}

// archiveRow flattens a schema into insert arguments; collections are stored as JSON text
func archiveRow(runID string, schema *models.EndpointSchema) ([]interface{}, error) {
	columns := []interface{}{
		schema.Parameters,
		schema.RequiredParameters,
		schema.NullableParameters,
		schema.ParameterPatterns,
		schema.DataSets,
	}

	args := []interface{}{runID, schema.Endpoint, string(schema.Status)}
	for _, col := range columns {
		data, err := json.Marshal(col)
		if err != nil {
			return nil, fmt.Errorf("encode %s for archive: %w", schema.Endpoint, err)
		}
		args = append(args, string(data))
	}

	var validated interface{}
	if schema.LastValidatedDate != "" {
		validated = schema.LastValidatedDate
	}
	return append(args, validated), nil
}
