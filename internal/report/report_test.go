package report

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scanTime = time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

func sampleSummary() *schema.ScanSummary {
	b := schema.NewSummaryBuilder("/hub", scanTime)
	c := &schema.TestClassRecord{ClassName: "LoginTest", PackageName: "com.shop", FilePath: "src/test/java/com/shop/LoginTest.java"}
	c.AddMethod(schema.TestMethodRecord{
		MethodName: "login", MethodSignature: "login()", LineNumber: 6,
		TestCaseIDs: []string{"TC-1", "TC-2"},
		Annotation:  &schema.TestMethodAnnotation{Title: "Login works", Author: "qa", Status: "DONE", Tags: []string{"smoke"}},
	})
	c.AddMethod(schema.TestMethodRecord{MethodName: "logout", MethodSignature: "logout()", LineNumber: 12})
	r := &schema.RepositoryRecord{Name: "shop", TeamCode: "SHP"}
	r.AddClass(c)
	b.AddRepository(r)
	return b.Build()
}

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	reader := parquet.NewGenericReader[T](f)
	defer reader.Close()
	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestRowStructTags(t *testing.T) {
	methods := parquet.SchemaOf(new(MethodRow))
	for _, col := range []string{"session_id", "repository", "method_signature", "line_number", "title", "status"} {
		_, ok := methods.Lookup(col)
		assert.True(t, ok, "column %s", col)
	}
	classes := parquet.SchemaOf(new(ClassRow))
	for _, col := range []string{"session_id", "class_name", "total_test_methods", "coverage_rate"} {
		_, ok := classes.Lookup(col)
		assert.True(t, ok, "column %s", col)
	}
}

func TestConvert(t *testing.T) {
	s := sampleSummary()
	methods := ConvertMethods(5, s)
	require.Len(t, methods, 2)
	assert.True(t, methods[0].Annotated)
	require.NotNil(t, methods[0].Title)
	assert.Equal(t, "Login works", *methods[0].Title)
	assert.Equal(t, int32(6), methods[0].LineNumber)
	assert.False(t, methods[1].Annotated)
	assert.Nil(t, methods[1].Status)

	classes := ConvertClasses(5, s)
	require.Len(t, classes, 1)
	assert.Equal(t, int32(2), classes[0].TotalTestMethods)
	assert.Equal(t, 50.0, classes[0].CoverageRate)
	assert.Equal(t, "SHP", classes[0].TeamCode)
}

func TestGenerate_WritesSessionFiles(t *testing.T) {
	quiet(t)
	dir := filepath.Join(t.TempDir(), "reports")
	paths, err := NewParquetReporter(dir, nil).Generate(context.Background(), 42, sampleSummary())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "testhub_session_42.methods.parquet"),
		filepath.Join(dir, "testhub_session_42.classes.parquet"),
	}, paths)

	methods := readAll[MethodRow](t, paths[0])
	require.Len(t, methods, 2)
	assert.Equal(t, int64(42), methods[0].SessionID)
	assert.Equal(t, "login", methods[0].MethodName)
	assert.Equal(t, []string{"TC-1", "TC-2"}, methods[0].TestCaseIDs)
	assert.True(t, scanTime.Equal(methods[0].ScanTime))
	require.NotNil(t, methods[0].Author)
	assert.Equal(t, "qa", *methods[0].Author)
	assert.Nil(t, methods[1].Title)

	classes := readAll[ClassRow](t, paths[1])
	require.Len(t, classes, 1)
	assert.Equal(t, "LoginTest", classes[0].ClassName)
	assert.Equal(t, int32(1), classes[0].AnnotatedTestMethods)
}

func TestGenerate_EmptySummary(t *testing.T) {
	quiet(t)
	dir := t.TempDir()
	empty := schema.NewSummaryBuilder("/hub", scanTime).Build()
	paths, err := NewParquetReporter(dir, nil).Generate(context.Background(), 1, empty)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Empty(t, readAll[MethodRow](t, paths[0]))
}

func TestGenerate_NilSummary(t *testing.T) {
	_, err := NewParquetReporter(t.TempDir(), nil).Generate(context.Background(), 1, nil)
	assert.Error(t, err)
}

type fakeUploader struct {
	keys []string
	fail map[string]bool
}

func (f *fakeUploader) Upload(_ context.Context, key, localPath string) error {
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	if f.fail[filepath.Base(localPath)] {
		return errors.New("access denied")
	}
	f.keys = append(f.keys, key)
	return nil
}

func TestGenerate_Uploads(t *testing.T) {
	quiet(t)
	up := &fakeUploader{}
	paths, err := NewParquetReporter(t.TempDir(), up).Generate(context.Background(), 3, sampleSummary())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2026/10/19/testhub_session_3.methods.parquet",
		"2026/10/19/testhub_session_3.classes.parquet",
	}, up.keys)
	assert.Len(t, paths, 4)
}

func TestGenerate_UploadFailureKeepsLocalFiles(t *testing.T) {
	quiet(t)
	up := &fakeUploader{fail: map[string]bool{"testhub_session_3.classes.parquet": true}}
	paths, err := NewParquetReporter(t.TempDir(), up).Generate(context.Background(), 3, sampleSummary())
	assert.ErrorIs(t, err, contract.ErrConnectivity)
	assert.Len(t, paths, 3)
	assert.FileExists(t, paths[1])
}

func TestNewFromConfig(t *testing.T) {
	r, err := NewFromConfig(&contract.Config{})
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = NewFromConfig(&contract.Config{ReportDir: "out"})
	require.NoError(t, err)
	assert.IsType(t, &ParquetReporter{}, r)

	r, err = NewFromConfig(&contract.Config{
		ReportDir: "out", ReportBucket: "reports", ReportEndpoint: "localhost:9000",
		ReportAccessKey: "key", ReportSecretKey: "secret",
	})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.NotNil(t, r.(*ParquetReporter).uploader)
}

func quiet(t *testing.T) {
	prev := contract.SetLogOutput(io.Discard)
	t.Cleanup(func() { contract.SetLogOutput(prev) })
}
