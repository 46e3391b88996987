package report

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/schema"
)

// File name suffixes of one session snapshot.
const (
	MethodsSuffix = ".methods.parquet"
	ClassesSuffix = ".classes.parquet"
)

// ParquetReporter writes a session snapshot to a directory and,
// when an uploader is set, copies it to object storage.
type ParquetReporter struct {
	dir      string
	uploader ObjectUploader
}

var _ contract.Reporter = &ParquetReporter{} // Compile-time check

// NewParquetReporter creates a reporter writing under dir. uploader may be nil.
func NewParquetReporter(dir string, uploader ObjectUploader) *ParquetReporter {
	return &ParquetReporter{dir: dir, uploader: uploader}
}

// NewFromConfig returns the configured reporter, or nil when no report directory is set.
func NewFromConfig(cfg *contract.Config) (contract.Reporter, error) {
	if cfg.ReportDir == "" {
		return nil, nil
	}
	var uploader ObjectUploader
	if cfg.ReportBucket != "" {
		u, err := NewS3Uploader(S3Config{
			Endpoint:  cfg.ReportEndpoint,
			AccessKey: cfg.ReportAccessKey,
			SecretKey: cfg.ReportSecretKey,
			Bucket:    cfg.ReportBucket,
			UseSSL:    cfg.ReportUseSSL,
		})
		if err != nil {
			return nil, contract.Wrap(contract.ErrConfig, "report upload", err)
		}
		uploader = u
	}
	return NewParquetReporter(cfg.ReportDir, uploader), nil
}

// SessionBaseName returns the shared file name prefix of a session's snapshot.
func SessionBaseName(sessionID int64) string {
	return fmt.Sprintf("testhub_session_%d", sessionID)
}

// Generate implements contract.Reporter. It returns the local paths it wrote
// followed by the object keys it uploaded.
func (p *ParquetReporter) Generate(ctx context.Context, sessionID int64, summary *schema.ScanSummary) ([]string, error) {
	if summary == nil {
		return nil, fmt.Errorf("no summary for session %d", sessionID)
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, contract.Wrap(contract.ErrIO, "create report dir", err)
	}

	base := filepath.Join(p.dir, SessionBaseName(sessionID))
	methodsPath, classesPath := base+MethodsSuffix, base+ClassesSuffix
	if err := WriteMethodsParquet(ConvertMethods(sessionID, summary), methodsPath); err != nil {
		return nil, contract.Wrap(contract.ErrIO, "write methods report", err)
	}
	if err := WriteClassesParquet(ConvertClasses(sessionID, summary), classesPath); err != nil {
		return []string{methodsPath}, contract.Wrap(contract.ErrIO, "write classes report", err)
	}
	written := []string{methodsPath, classesPath}
	contract.LogInfof("Wrote session %d report to %s", sessionID, p.dir)

	if p.uploader == nil {
		return written, nil
	}
	var result *multierror.Error
	for _, local := range []string{methodsPath, classesPath} {
		key := path.Join(summary.Timestamp.UTC().Format("2006/01/02"), filepath.Base(local))
		if err := p.uploader.Upload(ctx, key, local); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		written = append(written, key)
	}
	if err := result.ErrorOrNil(); err != nil {
		return written, contract.Wrap(contract.ErrConnectivity, "upload report", err)
	}
	return written, nil
}
