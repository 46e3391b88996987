// Package report exports persisted scan sessions to Parquet files
// using github.com/parquet-go/parquet-go.
package report

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/testhub/schema"
	"github.com/parquet-go/parquet-go"
)

// MethodRow is one test method of a session.
type MethodRow struct {
	// SessionID references the scan session
	SessionID int64 `parquet:"session_id,snappy"`

	// ScanTime is when the session's scan started
	ScanTime time.Time `parquet:"scan_time,snappy"`

	Repository  string `parquet:"repository,dict,snappy"`
	TeamCode    string `parquet:"team_code,dict,snappy"`
	PackageName string `parquet:"package_name,dict,snappy"`
	ClassName   string `parquet:"class_name,snappy"`
	FilePath    string `parquet:"file_path,snappy"`

	MethodName      string `parquet:"method_name,snappy"`
	MethodSignature string `parquet:"method_signature,snappy"`
	LineNumber      int32  `parquet:"line_number,snappy"`

	// TestCaseIDs holds the flattened ids of every dialect
	TestCaseIDs []string `parquet:"test_case_ids,list,snappy"`

	// Annotated is false when the rich annotation fields below are all null
	Annotated bool     `parquet:"annotated,snappy"`
	Title     *string  `parquet:"title,optional,snappy"`
	Author    *string  `parquet:"author,optional,snappy"`
	Status    *string  `parquet:"status,optional,snappy"`
	Tags      []string `parquet:"tags,list,snappy"`
}

// ClassRow is one test class of a session with its counts.
type ClassRow struct {
	SessionID            int64     `parquet:"session_id,snappy"`
	ScanTime             time.Time `parquet:"scan_time,snappy"`
	Repository           string    `parquet:"repository,dict,snappy"`
	TeamCode             string    `parquet:"team_code,dict,snappy"`
	PackageName          string    `parquet:"package_name,dict,snappy"`
	ClassName            string    `parquet:"class_name,snappy"`
	FilePath             string    `parquet:"file_path,snappy"`
	TotalTestMethods     int32     `parquet:"total_test_methods,snappy"`
	AnnotatedTestMethods int32     `parquet:"annotated_test_methods,snappy"`
	TestCaseIDCount      int32     `parquet:"test_case_id_count,snappy"`
	CoverageRate         float64   `parquet:"coverage_rate,snappy"`
}

// WriteMethodsParquet writes method rows to a Parquet file.
func WriteMethodsParquet(data []MethodRow, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteClassesParquet writes class rows to a Parquet file.
func WriteClassesParquet(data []ClassRow, outputPath string) error {
	return writeParquet(data, outputPath)
}

func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from T's struct tags
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return file.Close()
}

// ConvertMethods flattens a summary into method rows, in scan order.
func ConvertMethods(sessionID int64, summary *schema.ScanSummary) []MethodRow {
	var rows []MethodRow
	for _, r := range summary.Repositories {
		for _, c := range r.Classes {
			for _, m := range c.Methods {
				row := MethodRow{
					SessionID:       sessionID,
					ScanTime:        summary.Timestamp,
					Repository:      r.Name,
					TeamCode:        r.TeamCode,
					PackageName:     c.PackageName,
					ClassName:       c.ClassName,
					FilePath:        m.FilePath,
					MethodName:      m.MethodName,
					MethodSignature: m.MethodSignature,
					LineNumber:      int32(m.LineNumber),
					TestCaseIDs:     m.TestCaseIDs,
				}
				if a := m.Annotation; a != nil {
					row.Annotated = true
					row.Title = &a.Title
					row.Author = &a.Author
					row.Status = &a.Status
					row.Tags = a.Tags
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

// ConvertClasses flattens a summary into class rows, in scan order.
func ConvertClasses(sessionID int64, summary *schema.ScanSummary) []ClassRow {
	var rows []ClassRow
	for _, r := range summary.Repositories {
		for _, c := range r.Classes {
			rows = append(rows, ClassRow{
				SessionID:            sessionID,
				ScanTime:             summary.Timestamp,
				Repository:           r.Name,
				TeamCode:             r.TeamCode,
				PackageName:          c.PackageName,
				ClassName:            c.ClassName,
				FilePath:             c.FilePath,
				TotalTestMethods:     int32(c.TotalTestMethods),
				AnnotatedTestMethods: int32(c.AnnotatedTestMethods),
				TestCaseIDCount:      int32(c.TestCaseIDCount),
				CoverageRate:         schema.Percent(c.AnnotatedTestMethods, c.TotalTestMethods),
			})
		}
	}
	return rows
}
