package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/extrame/xls"
	"github.com/google/uuid"
)

// ChatModel is the completion interface ingestion uses to generate the
// dataset title and information sheet.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Ingestor turns uploaded CSV files into registered datasets: it normalizes
// the data, derives column metadata, asks the language model for a title and
// information sheet, and writes the normalized file consumed by analysis
// scripts.
type Ingestor struct {
	registry  *Registry
	chatModel ChatModel
	dataDir   string
	logger    func(string)
}

// NewIngestor creates an Ingestor writing under dataDir.
func NewIngestor(registry *Registry, chatModel ChatModel, dataDir string, logger func(string)) *Ingestor {
	return &Ingestor{
		registry:  registry,
		chatModel: chatModel,
		dataDir:   dataDir,
		logger:    logger,
	}
}

func (ing *Ingestor) log(msg string) {
	if ing.logger != nil {
		ing.logger(msg)
	}
}

// specialKeyNames maps punctuation in raw column names to spelled-out words
// so normalized names stay valid Python/pandas identifiers.
var specialKeyNames = map[rune]string{
	'%':  "percent",
	'&':  "and",
	'<':  "less_than",
	'>':  "greater_than",
	'#':  "number",
	'$':  "dollar",
	'@':  "at",
	'!':  "exclamation",
	'^':  "caret",
	'*':  "asterisk",
	'(':  "left_parenthesis",
	')':  "right_parenthesis",
	'+':  "plus",
	'=':  "equals",
	'{':  "left_curly_brace",
	'}':  "right_curly_brace",
	'[':  "left_square_bracket",
	']':  "right_square_bracket",
	'|':  "pipe",
	'\\': "backslash",
	':':  "colon",
	';':  "semicolon",
	'"':  "double_quote",
	'\'': "single_quote",
	',':  "comma",
	'.':  "dot",
	'?':  "question_mark",
	'/':  "slash",
}

// NormalizeKey lowercases a column name and replaces every non-alphanumeric
// rune with either its spelled-out name or an underscore. Names starting with
// a digit get a leading underscore.
func NormalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))

	var b strings.Builder
	for _, r := range key {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			if name, ok := specialKeyNames[r]; ok {
				b.WriteString(name)
			} else {
				b.WriteByte('_')
			}
		}
	}

	normalized := b.String()
	if len(normalized) > 0 && normalized[0] >= '0' && normalized[0] <= '9' {
		normalized = "_" + normalized
	}
	return normalized
}

// normalizeCell trims and lowercases string values. Empty cells stay empty
// and are treated as nulls downstream.
func normalizeCell(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

const maxPotentialValues = 20

// buildColumnMetadata derives per-column metadata from normalized rows.
// A column whose every non-empty cell parses as a number is typed float64;
// everything else is object. Low-cardinality columns carry their value set.
func buildColumnMetadata(headers []string, rows [][]string) []Column {
	columns := make([]Column, 0, len(headers))

	for i, name := range headers {
		col := Column{Name: name, Count: len(rows)}

		uniques := make(map[string]struct{})
		var ordered []string
		numeric := true
		var sum, minV, maxV float64
		numCount := 0

		for _, row := range rows {
			if i >= len(row) {
				continue
			}
			v := row[i]
			if _, seen := uniques[v]; !seen {
				uniques[v] = struct{}{}
				ordered = append(ordered, v)
			}
			if v == "" {
				continue
			}
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				numeric = false
				continue
			}
			if numCount == 0 || n < minV {
				minV = n
			}
			if numCount == 0 || n > maxV {
				maxV = n
			}
			sum += n
			numCount++
		}

		if numeric && numCount > 0 {
			col.Type = "float64"
			avg := sum / float64(numCount)
			col.Min = &minV
			col.Max = &maxV
			col.Avg = &avg
		} else {
			col.Type = "object"
			if numCount > 0 {
				// Mixed column: still expose numeric stats where they exist.
				avg := sum / float64(numCount)
				col.Min = &minV
				col.Max = &maxV
				col.Avg = &avg
			}
		}

		col.UniqueValues = len(uniques)
		if len(uniques) <= maxPotentialValues {
			for _, v := range ordered {
				if v == "" {
					col.PotentialValues = append(col.PotentialValues, nil)
				} else {
					col.PotentialValues = append(col.PotentialValues, v)
				}
			}
		}

		columns = append(columns, col)
	}

	return columns
}

var unsafeDirChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// sanitizePackageName makes a generated title safe as a directory name.
func sanitizePackageName(name string) string {
	name = strings.ReplaceAll(name, "*", "")
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	return unsafeDirChars.ReplaceAllString(name, "_")
}

// IngestCSV reads one CSV file, normalizes it, and registers the result.
// pkg may be empty, in which case a package name is derived from the
// generated dataset title.
func (ing *Ingestor) IngestCSV(ctx context.Context, pkg, filename string, r io.Reader) (Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to parse CSV %s: %w", filename, err)
	}
	return ing.ingest(ctx, pkg, filename, records)
}

// IngestXLS reads the first sheet of a legacy Excel workbook and runs it
// through the same normalization pipeline as CSV uploads.
func (ing *Ingestor) IngestXLS(ctx context.Context, pkg, filename string, r io.ReadSeeker) (Dataset, error) {
	workbook, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to parse XLS %s: %v", filename, err)
	}

	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return Dataset{}, fmt.Errorf("XLS %s has no sheets", filename)
	}

	var records [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		record := make([]string, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			record[j] = row.Col(j)
		}
		records = append(records, record)
	}
	return ing.ingest(ctx, pkg, filename, records)
}

// ingest normalizes raw records and registers the dataset.
func (ing *Ingestor) ingest(ctx context.Context, pkg, filename string, records [][]string) (Dataset, error) {
	baseName := strings.TrimSuffix(filename, filepath.Ext(filename))

	if len(records) == 0 {
		return Dataset{}, fmt.Errorf("file %s is empty", filename)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = NormalizeKey(h)
	}

	rows := make([][]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]string, len(headers))
		for i := range headers {
			if i < len(record) {
				row[i] = normalizeCell(record[i])
			}
		}
		rows = append(rows, row)
	}

	columns := buildColumnMetadata(headers, rows)

	title, sheet, err := ing.describeDataset(ctx, baseName, columns)
	if err != nil {
		return Dataset{}, err
	}

	if pkg == "" {
		pkg = sanitizePackageName(title)
	}

	normalizedPath, err := ing.writeNormalized(pkg, baseName, headers, rows)
	if err != nil {
		return Dataset{}, err
	}

	ds := Dataset{
		ID:             uuid.NewString(),
		Package:        pkg,
		Filename:       filename,
		Title:          title,
		Summary:        sheet,
		Columns:        columns,
		NormalizedPath: normalizedPath,
		CreatedAt:      time.Now().Unix(),
	}
	if err := ing.registry.Register(ds); err != nil {
		return Dataset{}, err
	}

	ing.log(fmt.Sprintf("[INGEST] %s/%s: %d rows, %d columns", pkg, filename, len(rows), len(columns)))
	return ds, nil
}

// writeNormalized writes the normalized rows under
// <dataDir>/<package>/normalized_data/<name>_normalized.csv.
func (ing *Ingestor) writeNormalized(pkg, baseName string, headers []string, rows [][]string) (string, error) {
	dir := filepath.Join(ing.dataDir, pkg, "normalized_data")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create normalized data directory: %w", err)
	}

	path := filepath.Join(dir, baseName+"_normalized.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create normalized file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return "", fmt.Errorf("failed to write normalized header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write normalized row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush normalized file: %w", err)
	}

	return path, nil
}

const describePromptTemplate = `Please generate the following items for this dataset given its filename: %s and metadata: %s

1. Good title for the dataset, should be short and descriptive
2. Information sheet about the dataset in markdown

Please denote the title with

title: <title>

and denote the information sheet with:

information sheet: <markdown_code>

the information sheet should contain

Title: <title of dataset>
Description: <good description of the dataset>
Structure: <columns with potential values>
Context: <historical context around the data>
Usage Notes:
• Limitations:
Technical Information:
• Format: CSV (.csv)`

// describeDataset asks the model for a title and information sheet. Missing
// markers fall back to the filename and raw reply so ingestion never fails on
// formatting drift.
func (ing *Ingestor) describeDataset(ctx context.Context, baseName string, columns []Column) (title, sheet string, err error) {
	// Keep the prompt bounded for very wide datasets.
	promptCols := columns
	if len(promptCols) > 50 {
		promptCols = promptCols[:50]
	}
	metadata := summarizeColumnsForPrompt(promptCols)

	prompt := fmt.Sprintf(describePromptTemplate, baseName, metadata)
	resp, err := ing.chatModel.Generate(ctx, []*schema.Message{
		{Role: schema.User, Content: prompt},
	}, model.WithTemperature(0.2), model.WithMaxTokens(4000))
	if err != nil {
		return "", "", fmt.Errorf("failed to describe dataset %s: %w", baseName, err)
	}

	content := strings.TrimSpace(resp.Content)

	title = baseName
	if _, after, found := strings.Cut(content, "title:"); found {
		line := after
		if idx := strings.IndexByte(line, '\n'); idx >= 0 {
			line = line[:idx]
		}
		if t := strings.TrimSpace(line); t != "" {
			title = t
		}
	}

	sheet = content
	if _, after, found := strings.Cut(content, "information sheet:"); found {
		sheet = strings.TrimSpace(after)
	}

	return title, sheet, nil
}

// summarizeColumnsForPrompt renders column metadata compactly for the
// describe prompt, rounding stats so the text stays readable.
func summarizeColumnsForPrompt(columns []Column) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, `{"name": %q, "type": %q, "uniqueValues": %d`, col.Name, col.Type, col.UniqueValues)
		if col.Min != nil && col.Max != nil && col.Avg != nil {
			fmt.Fprintf(&b, `, "min": %s, "max": %s, "avg": %s`,
				formatStat(*col.Min), formatStat(*col.Max), formatStat(*col.Avg))
		}
		if len(col.PotentialValues) > 0 {
			values := make([]string, 0, len(col.PotentialValues))
			for _, v := range col.PotentialValues {
				values = append(values, fmt.Sprintf("%v", v))
			}
			sort.Strings(values)
			fmt.Fprintf(&b, `, "potentialValues": %q`, strings.Join(values, "|"))
		}
		b.WriteByte('}')
	}
	b.WriteByte(']')
	return b.String()
}

func formatStat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
