package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/schema"
)

// maxErrorMessage bounds the error text kept on a failed session.
const maxErrorMessage = 4000

// errNoClassRow marks methods whose class row could not be written.
var errNoClassRow = errors.New("class row missing")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var classSpec = upsertSpec{
	table: schema.TestClassesTable,
	cols: []string{
		"repository_id", "class_name", "package_name", "file_path",
		"total_test_methods", "annotated_test_methods", "test_case_id_count",
		"scan_session_id", "created_at", "updated_at",
	},
	conflict: []string{"repository_id", "class_name", "package_name"},
	update: []string{
		"file_path", "total_test_methods", "annotated_test_methods", "test_case_id_count",
		"scan_session_id", "updated_at",
	},
}

var methodSpec = upsertSpec{
	table: schema.TestMethodsTable,
	cols: []string{
		"test_class_id", "method_name", "method_signature", "file_path", "line_number",
		"title", "author", "status", "target_class", "target_method", "description",
		"tags", "test_points", "related_requirements", "related_defects", "related_testcases",
		"test_case_ids", "last_update_time", "last_update_author", "annotation_json",
		"scan_session_id", "created_at", "updated_at",
	},
	conflict: []string{"test_class_id", "method_name", "method_signature"},
	update: []string{
		"file_path", "line_number",
		"title", "author", "status", "target_class", "target_method", "description",
		"tags", "test_points", "related_requirements", "related_defects", "related_testcases",
		"test_case_ids", "last_update_time", "last_update_author", "annotation_json",
		"scan_session_id", "updated_at",
	},
}

var repositorySpec = upsertSpec{
	table: schema.RepositoriesTable,
	cols: []string{
		"name", "git_url", "local_path", "team_id",
		"total_test_classes", "total_test_methods", "annotated_test_methods", "test_case_id_count",
		"scan_session_id", "created_at", "updated_at",
	},
	conflict: []string{"name"},
	update: []string{
		"git_url", "local_path", "team_id",
		"total_test_classes", "total_test_methods", "annotated_test_methods", "test_case_id_count",
		"scan_session_id", "updated_at",
	},
}

var teamSpec = upsertSpec{
	table:    schema.TeamsTable,
	cols:     []string{"team_name", "team_code", "department", "created_at", "updated_at"},
	conflict: []string{"team_code"},
	update:   []string{"team_name", "department", "updated_at"},
}

var dailySpec = upsertSpec{
	table: schema.DailyMetricsTable,
	cols: []string{
		"metric_date", "total_repositories", "total_test_classes", "total_test_methods",
		"total_annotated_test_methods", "coverage_rate", "new_test_methods", "new_annotated_test_methods",
		"scan_session_id", "updated_at",
	},
	conflict: []string{"metric_date"},
	update: []string{
		"total_repositories", "total_test_classes", "total_test_methods",
		"total_annotated_test_methods", "coverage_rate", "new_test_methods", "new_annotated_test_methods",
		"scan_session_id", "updated_at",
	},
}

// PersistSummary writes one scan session and everything it found in a single
// transaction. Any failure rolls the whole session back.
func (s *SQLStore) PersistSummary(ctx context.Context, summary *schema.ScanSummary, duration time.Duration) (int64, schema.PersistStats, error) {
	var stats schema.PersistStats
	if summary == nil {
		return 0, stats, contract.Wrap(contract.ErrConstraint, "persist summary", errors.New("nil summary"))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, stats, s.classify("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := s.opts.Now()
	sessionID, err := s.insertSession(ctx, tx, schema.ScanSession{
		ScanDate:                  summary.Timestamp,
		ScanDirectory:             summary.ScanDirectory,
		TotalRepositories:         summary.TotalRepositories,
		TotalTestClasses:          summary.TotalTestClasses,
		TotalTestMethods:          summary.TotalTestMethods,
		TotalAnnotatedTestMethods: summary.TotalAnnotatedTestMethods,
		TotalTestCaseIDs:          summary.TotalTestCaseIDs,
		DurationMs:                duration.Milliseconds(),
		Status:                    schema.SessionCompleted,
	})
	if err != nil {
		return 0, stats, err
	}

	teams := map[string]int64{}
	for _, repo := range summary.Repositories {
		if err := ctx.Err(); err != nil {
			return 0, stats, contract.Wrap(contract.ErrConnectivity, "persist summary", err)
		}
		if err := s.persistRepository(ctx, tx, repo, sessionID, now, teams, &stats); err != nil {
			return 0, stats, err
		}
	}
	stats.Teams = len(teams)

	if err := s.upsertDailyMetric(ctx, tx, summary, sessionID, now); err != nil {
		return 0, stats, err
	}

	if err := tx.Commit(); err != nil {
		return 0, stats, s.classify("commit", err)
	}
	committed = true
	return sessionID, stats, nil
}

func (s *SQLStore) persistRepository(ctx context.Context, tx *sql.Tx, repo *schema.RepositoryRecord, sessionID int64, now time.Time, teams map[string]int64, stats *schema.PersistStats) error {
	teamID, err := s.resolveTeam(ctx, tx, repo, now, teams)
	if err != nil {
		return err
	}
	repoID, err := s.upsertRepository(ctx, tx, repo, teamID, sessionID, now)
	if err != nil {
		return err
	}
	stats.Repositories++

	ts := s.d.timeValue(now)
	classRows := make([]batchRow, 0, len(repo.Classes))
	for _, c := range repo.Classes {
		classRows = append(classRows, batchRow{
			key: repo.Name + "/" + classKey(c.ClassName, c.PackageName),
			args: []any{
				repoID, c.ClassName, c.PackageName, c.FilePath,
				c.TotalTestMethods, c.AnnotatedTestMethods, c.TestCaseIDCount,
				sessionID, ts, ts,
			},
		})
	}
	res, err := s.executeBatches(ctx, tx, classSpec, classRows)
	if err != nil {
		return err
	}
	res.addTo(stats)
	stats.Classes += res.written

	classIDs, err := s.classIDs(ctx, tx, repoID)
	if err != nil {
		return err
	}

	var methodRows []batchRow
	for _, c := range repo.Classes {
		classID, ok := classIDs[classKey(c.ClassName, c.PackageName)]
		for _, m := range c.Methods {
			key := fmt.Sprintf("%s/%s#%s", repo.Name, classKey(c.ClassName, c.PackageName), m.MethodSignature)
			if !ok {
				stats.Skipped = append(stats.Skipped, schema.SkippedRow{Table: schema.TestMethodsTable, Key: key, Err: errNoClassRow})
				continue
			}
			args, err := methodArgs(classID, m, sessionID, ts)
			if err != nil {
				return contract.Wrap(contract.ErrConstraint, "encode annotation of "+key, err)
			}
			methodRows = append(methodRows, batchRow{key: key, args: args})
		}
	}
	res, err = s.executeBatches(ctx, tx, methodSpec, methodRows)
	if err != nil {
		return err
	}
	res.addTo(stats)
	stats.Methods += res.written
	return nil
}

func classKey(className, packageName string) string {
	if packageName == "" {
		return className
	}
	return packageName + "." + className
}

func methodArgs(classID int64, m schema.TestMethodRecord, sessionID int64, ts any) ([]any, error) {
	var (
		title, author, status, targetClass, targetMethod, description sql.NullString
		lastUpdateTime, lastUpdateAuthor, annotationJSON              sql.NullString
		tags, points, reqs, defects, related                          sql.NullString
	)
	if a := m.Annotation; a != nil {
		title, author, status = nullString(a.Title), nullString(a.Author), nullString(a.Status)
		targetClass, targetMethod = nullString(a.TargetClass), nullString(a.TargetMethod)
		description = nullString(a.Description)
		lastUpdateTime, lastUpdateAuthor = nullString(a.LastUpdateTime), nullString(a.LastUpdateAuthor)
		tags, points = JoinList(a.Tags), JoinList(a.TestPoints)
		reqs, defects, related = JoinList(a.RelatedRequirements), JoinList(a.RelatedDefects), JoinList(a.RelatedTestcases)
		raw, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		annotationJSON = sql.NullString{String: string(raw), Valid: true}
	}
	return []any{
		classID, m.MethodName, m.MethodSignature, m.FilePath, m.LineNumber,
		title, author, status, targetClass, targetMethod, description,
		tags, points, reqs, defects, related,
		JoinList(m.TestCaseIDs), lastUpdateTime, lastUpdateAuthor, annotationJSON,
		sessionID, ts, ts,
	}, nil
}

// insertSession writes a scan_sessions row and returns its id.
func (s *SQLStore) insertSession(ctx context.Context, q querier, row schema.ScanSession) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (scan_date, scan_directory, total_repositories, total_test_classes,
		total_test_methods, total_annotated_test_methods, total_test_case_ids, duration_ms, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.d.quote(schema.ScanSessionsTable))
	var errMsg sql.NullString
	if row.ErrorMessage != nil {
		errMsg = sql.NullString{String: *row.ErrorMessage, Valid: true}
	}
	args := []any{
		s.d.timeValue(row.ScanDate), row.ScanDirectory, row.TotalRepositories, row.TotalTestClasses,
		row.TotalTestMethods, row.TotalAnnotatedTestMethods, row.TotalTestCaseIDs, row.DurationMs,
		string(row.Status), errMsg,
	}
	id, err := s.insertReturningID(ctx, q, query, args...)
	if err != nil {
		return 0, s.classify("insert scan session", err)
	}
	return id, nil
}

func (s *SQLStore) insertReturningID(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	if s.d.returning {
		var id int64
		err := q.QueryRowContext(ctx, s.d.rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := q.ExecContext(ctx, s.d.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// resolveTeam finds or creates the team claimed by a repository.
// Repositories without a team code have no team.
func (s *SQLStore) resolveTeam(ctx context.Context, tx *sql.Tx, repo *schema.RepositoryRecord, now time.Time, teams map[string]int64) (sql.NullInt64, error) {
	if repo.TeamCode == "" {
		return sql.NullInt64{}, nil
	}
	if id, ok := teams[repo.TeamCode]; ok {
		return sql.NullInt64{Int64: id, Valid: true}, nil
	}
	name := repo.TeamName
	if name == "" {
		name = repo.TeamCode
	}
	ts := s.d.timeValue(now)
	upsert := s.d.rebind(s.d.upsert(teamSpec.table, teamSpec.cols, teamSpec.conflict, teamSpec.update, 1))
	if _, err := tx.ExecContext(ctx, upsert, name, repo.TeamCode, nullString(repo.Department), ts, ts); err != nil {
		return sql.NullInt64{}, s.classify("upsert team "+repo.TeamCode, err)
	}
	id, err := s.lookupID(ctx, tx, schema.TeamsTable, "team_code", repo.TeamCode)
	if err != nil {
		return sql.NullInt64{}, err
	}
	teams[repo.TeamCode] = id
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

func (s *SQLStore) upsertRepository(ctx context.Context, tx *sql.Tx, repo *schema.RepositoryRecord, teamID sql.NullInt64, sessionID int64, now time.Time) (int64, error) {
	ts := s.d.timeValue(now)
	upsert := s.d.rebind(s.d.upsert(repositorySpec.table, repositorySpec.cols, repositorySpec.conflict, repositorySpec.update, 1))
	_, err := tx.ExecContext(ctx, upsert,
		repo.Name, nullString(repo.GitURL), nullString(repo.LocalPath), teamID,
		repo.TotalTestClasses, repo.TotalTestMethods, repo.AnnotatedTestMethods, repo.TestCaseIDCount,
		sessionID, ts, ts)
	if err != nil {
		return 0, s.classify("upsert repository "+repo.Name, err)
	}
	return s.lookupID(ctx, tx, schema.RepositoriesTable, "name", repo.Name)
}

func (s *SQLStore) lookupID(ctx context.Context, q querier, table, column string, value any) (int64, error) {
	query := s.d.rebind(fmt.Sprintf("SELECT id FROM %s WHERE %s = ?", s.d.quote(table), s.d.quote(column)))
	var id int64
	if err := q.QueryRowContext(ctx, query, value).Scan(&id); err != nil {
		return 0, s.classify(fmt.Sprintf("look up %s id", table), err)
	}
	return id, nil
}

// classIDs maps "package.Class" to the class row ids of a repository.
func (s *SQLStore) classIDs(ctx context.Context, q querier, repoID int64) (map[string]int64, error) {
	query := s.d.rebind(fmt.Sprintf("SELECT id, class_name, package_name FROM %s WHERE repository_id = ?",
		s.d.quote(schema.TestClassesTable)))
	rows, err := q.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, s.classify("query class ids", err)
	}
	defer func() { _ = rows.Close() }()

	ids := map[string]int64{}
	for rows.Next() {
		var id int64
		var className, packageName string
		if err := rows.Scan(&id, &className, &packageName); err != nil {
			return nil, s.classify("scan class id", err)
		}
		ids[classKey(className, packageName)] = id
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify("iterate class ids", err)
	}
	return ids, nil
}

// upsertDailyMetric records the latest totals for the summary's calendar date.
// Deltas are taken against the most recent earlier date; the first date counts everything as new.
func (s *SQLStore) upsertDailyMetric(ctx context.Context, tx *sql.Tx, summary *schema.ScanSummary, sessionID int64, now time.Time) error {
	date := summary.Timestamp.Format(time.DateOnly)

	var prevMethods, prevAnnotated int
	query := s.d.rebind(fmt.Sprintf(`SELECT total_test_methods, total_annotated_test_methods FROM %s
		WHERE metric_date < ? ORDER BY metric_date DESC LIMIT 1`, s.d.quote(schema.DailyMetricsTable)))
	err := tx.QueryRowContext(ctx, query, date).Scan(&prevMethods, &prevAnnotated)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return s.classify("query previous daily metric", err)
	}

	upsert := s.d.rebind(s.d.upsert(dailySpec.table, dailySpec.cols, dailySpec.conflict, dailySpec.update, 1))
	_, err = tx.ExecContext(ctx, upsert,
		date, summary.TotalRepositories, summary.TotalTestClasses, summary.TotalTestMethods,
		summary.TotalAnnotatedTestMethods, summary.CoverageRate(),
		summary.TotalTestMethods-prevMethods, summary.TotalAnnotatedTestMethods-prevAnnotated,
		sessionID, s.d.timeValue(now))
	if err != nil {
		return s.classify("upsert daily metric", err)
	}
	return nil
}

// RecordFailedSession writes a failed session row in its own transaction.
func (s *SQLStore) RecordFailedSession(ctx context.Context, scanDir string, started time.Time, duration time.Duration, cause error) (int64, error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > maxErrorMessage {
		msg = strings.ToValidUTF8(msg[:maxErrorMessage], "")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.classify("begin transaction", err)
	}
	id, err := s.insertSession(ctx, tx, schema.ScanSession{
		ScanDate:      started,
		ScanDirectory: scanDir,
		DurationMs:    duration.Milliseconds(),
		Status:        schema.SessionFailed,
		ErrorMessage:  &msg,
	})
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, s.classify("commit", err)
	}
	return id, nil
}
