package reporting

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dapaulid/stressy/types"
)

// StoreEntry is one persisted campaign result.
type StoreEntry struct {
	Command   string
	Started   time.Time
	Duration  time.Duration
	Processes int
	Passed    int
	Failed    int
	Verdict   string
}

// Store appends campaign results to a tab-separated history file so previous
// results for a command can be recalled later.
type Store struct {
	path string
}

// DefaultStorePath returns the results file under the user's data directory,
// honoring XDG_DATA_HOME.
func DefaultStorePath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "stressy", "results.tsv"), nil
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Append records one campaign result. The command field is sanitized so ANSI
// escapes and embedded tabs cannot corrupt the format.
func (s *Store) Append(e StoreEntry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	fields := []string{
		sanitizeField(e.Command),
		e.Started.Format(time.RFC3339),
		e.Duration.String(),
		strconv.Itoa(e.Processes),
		strconv.Itoa(e.Passed),
		strconv.Itoa(e.Failed),
		e.Verdict,
	}
	if _, err := fmt.Fprintln(f, strings.Join(fields, "\t")); err != nil {
		return fmt.Errorf("failed to append result: %w", err)
	}
	return nil
}

// List returns persisted entries, filtered to the given command when it is
// non-empty. Malformed lines are skipped rather than failing the whole read.
func (s *Store) List(command string) ([]StoreEntry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	var entries []StoreEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry, ok := parseEntry(scanner.Text())
		if !ok {
			continue
		}
		if command != "" && entry.Command != command {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}
	return entries, nil
}

// Clear removes persisted entries for the given command, or every entry when
// the command is empty.
func (s *Store) Clear(command string) error {
	if command == "" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove results file: %w", err)
		}
		return nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open results file: %w", err)
	}

	var kept []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if entry, ok := parseEntry(line); ok && entry.Command == command {
			continue
		}
		kept = append(kept, line)
	}
	scanErr := scanner.Err()
	f.Close()
	if scanErr != nil {
		return fmt.Errorf("failed to read results file: %w", scanErr)
	}

	content := ""
	if len(kept) > 0 {
		content = strings.Join(kept, "\n") + "\n"
	}
	if err := os.WriteFile(s.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to rewrite results file: %w", err)
	}
	return nil
}

// RenderEntries prints the given history entries as a table.
func RenderEntries(w io.Writer, entries []StoreEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no previous results")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Started", "Command", "Processes", "Passed", "Failed", "Duration", "Result"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.Started.Format("Mon 02 Jan 2006, 15:04:05"),
			e.Command,
			e.Processes,
			e.Passed,
			e.Failed,
			FormatDuration(e.Duration),
			e.Verdict,
		})
	}
	t.Render()
}

// EntryFromSummary converts a campaign summary into its persisted form.
func EntryFromSummary(s *types.Summary, processes int) StoreEntry {
	return StoreEntry{
		Command:   s.Command,
		Started:   s.Started,
		Duration:  s.Elapsed,
		Processes: processes,
		Passed:    s.Successes,
		Failed:    s.Failures,
		Verdict:   Verdict(s),
	}
}

func parseEntry(line string) (StoreEntry, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) != 7 {
		return StoreEntry{}, false
	}
	started, err := time.Parse(time.RFC3339, fields[1])
	if err != nil {
		return StoreEntry{}, false
	}
	duration, err := time.ParseDuration(fields[2])
	if err != nil {
		return StoreEntry{}, false
	}
	processes, err := strconv.Atoi(fields[3])
	if err != nil {
		return StoreEntry{}, false
	}
	passed, err := strconv.Atoi(fields[4])
	if err != nil {
		return StoreEntry{}, false
	}
	failed, err := strconv.Atoi(fields[5])
	if err != nil {
		return StoreEntry{}, false
	}
	return StoreEntry{
		Command:   fields[0],
		Started:   started,
		Duration:  duration,
		Processes: processes,
		Passed:    passed,
		Failed:    failed,
		Verdict:   fields[6],
	}, true
}

// sanitizeField makes a string safe for one TSV cell.
func sanitizeField(s string) string {
	s = stripansi.Strip(s)
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
