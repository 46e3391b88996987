package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/testhub/schema"
)

// dbTime scans timestamps stored natively or as RFC3339 text.
type dbTime struct {
	t time.Time
}

// Scan implements sql.Scanner.
func (d *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.t = time.Time{}
	case time.Time:
		d.t = v
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
	return nil
}

func (d *dbTime) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	d.t = t
	return nil
}

const sessionColumns = `id, scan_date, scan_directory, total_repositories, total_test_classes,
	total_test_methods, total_annotated_test_methods, total_test_case_ids, duration_ms, status, error_message`

func scanSession(sc interface{ Scan(...any) error }) (schema.ScanSession, error) {
	var row schema.ScanSession
	var date dbTime
	var status string
	var errMsg sql.NullString
	err := sc.Scan(&row.ID, &date, &row.ScanDirectory, &row.TotalRepositories, &row.TotalTestClasses,
		&row.TotalTestMethods, &row.TotalAnnotatedTestMethods, &row.TotalTestCaseIDs, &row.DurationMs, &status, &errMsg)
	if err != nil {
		return row, err
	}
	row.ScanDate = date.t
	row.Status = schema.SessionStatus(status)
	row.ErrorMessage = nullStringPtr(errMsg)
	return row, nil
}

// ListSessions returns the most recent sessions, newest first.
func (s *SQLStore) ListSessions(ctx context.Context, limit int) ([]schema.ScanSession, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id DESC", sessionColumns, s.d.quote(schema.ScanSessionsTable))
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return nil, s.classify("query sessions", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.ScanSession
	for rows.Next() {
		row, err := scanSession(rows)
		if err != nil {
			return nil, s.classify("scan session", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify("iterate sessions", err)
	}
	return out, nil
}

// LatestSession returns the newest completed session, or nil when there is none.
func (s *SQLStore) LatestSession(ctx context.Context) (*schema.ScanSession, error) {
	query := s.d.rebind(fmt.Sprintf("SELECT %s FROM %s WHERE status = ? ORDER BY id DESC LIMIT 1",
		sessionColumns, s.d.quote(schema.ScanSessionsTable)))
	row, err := scanSession(s.db.QueryRowContext(ctx, query, string(schema.SessionCompleted)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.classify("query latest session", err)
	}
	return &row, nil
}

// SessionClasses returns the class rows last touched by a session.
func (s *SQLStore) SessionClasses(ctx context.Context, sessionID int64) ([]schema.SessionClassRow, error) {
	query := s.d.rebind(fmt.Sprintf(`SELECT r.name, c.class_name, c.package_name, c.file_path,
		c.total_test_methods, c.annotated_test_methods, c.scan_session_id
		FROM %s c JOIN %s r ON r.id = c.repository_id
		WHERE c.scan_session_id = ?
		ORDER BY r.name, c.package_name, c.class_name`,
		s.d.quote(schema.TestClassesTable), s.d.quote(schema.RepositoriesTable)))
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, s.classify("query session classes", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.SessionClassRow
	for rows.Next() {
		var r schema.SessionClassRow
		var filePath sql.NullString
		if err := rows.Scan(&r.RepositoryName, &r.ClassName, &r.PackageName, &filePath,
			&r.TotalTestMethods, &r.AnnotatedTestMethods, &r.ScanSessionID); err != nil {
			return nil, s.classify("scan session class", err)
		}
		r.FilePath = filePath.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify("iterate session classes", err)
	}
	return out, nil
}

// SessionMethods returns the method rows last touched by a session.
func (s *SQLStore) SessionMethods(ctx context.Context, sessionID int64) ([]schema.SessionMethodRow, error) {
	query := s.d.rebind(fmt.Sprintf(`SELECT r.name, c.class_name, c.package_name, m.method_name, m.method_signature,
		m.file_path, m.line_number, m.title, m.author, m.status, m.test_case_ids, m.scan_session_id
		FROM %s m
		JOIN %s c ON c.id = m.test_class_id
		JOIN %s r ON r.id = c.repository_id
		WHERE m.scan_session_id = ?
		ORDER BY r.name, c.package_name, c.class_name, m.line_number, m.method_signature`,
		s.d.quote(schema.TestMethodsTable), s.d.quote(schema.TestClassesTable), s.d.quote(schema.RepositoriesTable)))
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, s.classify("query session methods", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.SessionMethodRow
	for rows.Next() {
		var r schema.SessionMethodRow
		var filePath, title, author, status, ids sql.NullString
		if err := rows.Scan(&r.RepositoryName, &r.ClassName, &r.PackageName, &r.MethodName, &r.MethodSignature,
			&filePath, &r.LineNumber, &title, &author, &status, &ids, &r.ScanSessionID); err != nil {
			return nil, s.classify("scan session method", err)
		}
		r.FilePath = filePath.String
		r.Title, r.Author, r.Status = nullStringPtr(title), nullStringPtr(author), nullStringPtr(status)
		r.TestCaseIDs = nullStringPtr(ids)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify("iterate session methods", err)
	}
	return out, nil
}

// TableCounts returns the row count of every table.
func (s *SQLStore) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(schema.AllTables))
	for _, table := range schema.AllTables {
		var n int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.d.quote(table))
		if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, s.classify("count "+table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// DailyMetrics returns the most recent daily rollups, newest first.
func (s *SQLStore) DailyMetrics(ctx context.Context, limit int) ([]schema.DailyMetric, error) {
	query := fmt.Sprintf(`SELECT metric_date, total_repositories, total_test_classes, total_test_methods,
		total_annotated_test_methods, coverage_rate, new_test_methods, new_annotated_test_methods, scan_session_id
		FROM %s ORDER BY metric_date DESC`, s.d.quote(schema.DailyMetricsTable))
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return nil, s.classify("query daily metrics", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.DailyMetric
	for rows.Next() {
		var m schema.DailyMetric
		var sessionID sql.NullInt64
		if err := rows.Scan(&m.MetricDate, &m.TotalRepositories, &m.TotalTestClasses, &m.TotalTestMethods,
			&m.TotalAnnotatedTestMethods, &m.CoverageRate, &m.NewTestMethods, &m.NewAnnotatedTestMethods, &sessionID); err != nil {
			return nil, s.classify("scan daily metric", err)
		}
		m.ScanSessionID = sessionID.Int64
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify("iterate daily metrics", err)
	}
	return out, nil
}

// GetStatus returns status information about the store.
func (s *SQLStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:    string(s.d.backend),
		Connected:  s.db != nil,
		TableSizes: map[string]int64{},
	}
	if err := s.db.PingContext(ctx); err != nil {
		status.Connected = false
		return status, s.classify("ping", err)
	}

	counts, err := s.TableCounts(ctx)
	if err != nil {
		return status, err
	}
	status.TableSizes = counts
	status.TotalSessions = int(counts[schema.ScanSessionsTable])
	if status.TotalSessions == 0 {
		return status, nil
	}

	query := fmt.Sprintf("SELECT id, scan_date FROM %s ORDER BY id DESC LIMIT 1", s.d.quote(schema.ScanSessionsTable))
	var last dbTime
	if err := s.db.QueryRowContext(ctx, query).Scan(&status.LastSessionID, &last); err != nil {
		return status, s.classify("query last session", err)
	}
	status.LastScanTime = last.t
	return status, nil
}
