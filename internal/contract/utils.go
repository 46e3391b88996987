package contract

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/go-ini/ini"
	"github.com/huangsam/testhub/schema"
)

// Color variables for console output.
var (
	SuccessColor = color.New(color.FgGreen, color.Bold) // SuccessColor marks completed runs.
	FailureColor = color.New(color.FgRed, color.Bold)   // FailureColor marks failed or errored runs.
	RunningColor = color.New(color.FgYellow)            // RunningColor marks runs still in flight.
	IdleColor    = color.New(color.FgCyan)              // IdleColor marks runs that never happened.
)

// GetColorLabel returns a colored status label for console output (table).
func GetColorLabel(status string) string {
	switch status {
	case string(schema.SessionCompleted), string(schema.RunSuccess):
		return SuccessColor.Sprint(status)
	case string(schema.SessionFailed), string(schema.RunError): // RunFailed shares "failed"
		return FailureColor.Sprint(status)
	case string(schema.SessionRunning):
		return RunningColor.Sprint(status)
	default:
		return IdleColor.Sprint(status)
	}
}

// SelectOutputFile returns the appropriate file handle for output.
// An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// GetDBFilePath returns the path to the default SQLite DB file.
func GetDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultDatabaseSuffix
	}
	return filepath.Join(homeDir, DefaultDatabaseSuffix)
}

// RepoNameFromURL derives the hub folder name of a repository URL.
// Trailing '/' and ".git" are removed and the last path segment is kept,
// so "git@host:org/repo.git" and "https://host/org/repo/" both give "repo".
func RepoNameFromURL(url string) string {
	u := strings.TrimSpace(url)
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, ".git")
	u = strings.TrimRight(u, "/")
	if i := strings.LastIndexAny(u, "/:"); i >= 0 {
		u = u[i+1:]
	}
	return u
}

// ReadRemoteURL returns the origin URL recorded in <repoDir>/.git/config.
// The url of the first other remote is used when origin has none; "" when none is found.
func ReadRemoteURL(repoDir string) string {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		Loose:           true, // Missing config yields an empty file
		AllowShadows:    true, // Remotes may repeat url lines; the first wins
		InsensitiveKeys: true,
	}, filepath.Join(repoDir, ".git", "config"))
	if err != nil {
		return ""
	}
	if sec, err := cfg.GetSection(`remote "origin"`); err == nil && sec.HasKey("url") {
		return sec.Key("url").String()
	}
	for _, sec := range cfg.Sections() {
		if strings.HasPrefix(sec.Name(), "remote ") && sec.HasKey("url") {
			return sec.Key("url").String()
		}
	}
	return ""
}

// SplitPatterns splits a comma-separated pattern list, dropping blanks.
func SplitPatterns(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 so the "..." prefix leaves room for content.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// RedactURL hides the userinfo password of a URL for logging.
func RedactURL(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	at := strings.LastIndex(rest, "@")
	slash := strings.Index(rest, "/")
	if at < 0 || (slash >= 0 && at > slash) {
		return url
	}
	user, _, hasPass := strings.Cut(rest[:at], ":")
	if !hasPass {
		return url
	}
	return scheme + "://" + user + ":***" + rest[at:]
}
