package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rewired-gh/meihua/internal/models"
)

// datasetLine matches a seven digit period followed by a YYYY-MM-DD date.
var datasetLine = regexp.MustCompile(`^\d{7}\s+\d{4}-\d{2}-\d{2}`)

// lineLayout describes how one game's dataset lines are read.
type lineLayout struct {
	tokens  int // numeric tokens read after the date
	main    int // leading tokens kept as the main zone, sorted
	special bool
}

var lineLayouts = map[models.GameType]lineLayout{
	models.GameKeno8: {tokens: 20, main: 20},
	models.GameSSQ:   {tokens: 7, main: 6, special: true},
	models.GameDLT:   {tokens: 7, main: 5, special: true},
}

// ParseLine parses one line of a local dataset file. It reports false for
// blank or malformed lines and for lines with too few numbers.
//
// keno8 lines carry 20 numbers. ssq lines carry six reds and a blue, dlt
// lines five front and two back numbers; the first number after the main
// zone becomes the record's special number.
func ParseLine(game models.GameType, line string) (models.HistoryRecord, bool) {
	layout, ok := lineLayouts[game]
	if !ok {
		return models.HistoryRecord{}, false
	}

	line = strings.TrimSpace(line)
	if line == "" || !datasetLine.MatchString(line) {
		return models.HistoryRecord{}, false
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return models.HistoryRecord{}, false
	}

	numbers := make([]int, 0, layout.tokens)
	for _, tok := range fields[2:] {
		n, ok := parseNumber(tok)
		if !ok {
			continue
		}
		numbers = append(numbers, n)
		if len(numbers) >= layout.tokens {
			break
		}
	}
	if len(numbers) < layout.tokens {
		return models.HistoryRecord{}, false
	}

	main := append([]int(nil), numbers[:layout.main]...)
	sort.Ints(main)
	rec := models.HistoryRecord{
		Period:    fields[0],
		Numbers:   main,
		Timestamp: fields[1],
	}
	if layout.special {
		rec.Special = models.IntPtr(numbers[layout.main])
	}
	return rec, true
}

// parseNumber reads a token of ASCII digits, ignoring thousands separators.
func parseNumber(tok string) (int, bool) {
	clean := strings.ReplaceAll(tok, ",", "")
	if clean == "" {
		return 0, false
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(clean)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseDataset reads every valid line of r, sorted by draw date.
func ParseDataset(game models.GameType, r io.Reader) ([]models.HistoryRecord, error) {
	var records []models.HistoryRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if rec, ok := ParseLine(game, scanner.Text()); ok {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	SortByTimestamp(records)
	return records, nil
}

// LoadDataset parses a dataset file. A missing file yields no records and no error.
func LoadDataset(game models.GameType, path string) ([]models.HistoryRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return ParseDataset(game, f)
}

// SortByTimestamp orders records by their timestamp string, keeping the
// input order of equal dates.
func SortByTimestamp(records []models.HistoryRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})
}

// Latest returns the newest parseable draw date.
func Latest(records []models.HistoryRecord) (t time.Time, ok bool) {
	for i := range records {
		d, parsed := records[i].DrawTime()
		if parsed && (!ok || d.After(t)) {
			t, ok = d, true
		}
	}
	return t, ok
}

// Tail returns the last n records, or all of them when n <= 0.
func Tail(records []models.HistoryRecord, n int) []models.HistoryRecord {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[len(records)-n:]
}
