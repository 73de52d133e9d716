package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/assessment-engine/recommender/internal/validation"
)

var (
	// ErrIngestionFailure marks any failure to obtain or decode the catalog.
	ErrIngestionFailure = errors.New("catalog ingestion failed")

	// ErrUnsupportedFormat is returned for catalog formats other than CSV, JSON and YAML.
	ErrUnsupportedFormat = errors.New("unsupported catalog format")
)

// Format identifies a catalog encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the format from a file name or URL path extension.
func FormatFromPath(p string) (Format, error) {
	switch strings.ToLower(path.Ext(p)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, p)
	}
}

// FormatFromContentType infers the format from an HTTP Content-Type header.
func FormatFromContentType(contentType string) (Format, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
	}
	switch mediaType {
	case "text/csv", "application/csv":
		return FormatCSV, nil
	case "application/json":
		return FormatJSON, nil
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
	}
}

// Parse decodes, normalizes and validates a catalog. Records failing
// validation are reported in Catalog.Skipped rather than failing the parse.
func Parse(r io.Reader, format Format) (*Catalog, error) {
	var (
		records []map[string]string
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatJSON:
		records, err = readJSON(r)
	case FormatYAML:
		records, err = readYAML(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	cat := &Catalog{Assessments: make([]Assessment, 0, len(records))}
	for i, record := range records {
		a := toAssessment(record)
		verr := validation.ValidateStruct(&a)
		if verr != nil && hasFieldError(verr, "url") {
			// Clear a bad link and keep the record.
			warning := Rejected{Record: i + 1, Reason: fmt.Sprintf("cleared url %q: url must be a valid URL", a.URL)}
			a.URL = ""
			if verr = validation.ValidateStruct(&a); verr == nil {
				cat.Warnings = append(cat.Warnings, warning)
			}
		}
		if verr != nil {
			cat.Skipped = append(cat.Skipped, Rejected{Record: i + 1, Reason: verr.Error()})
			continue
		}
		cat.Assessments = append(cat.Assessments, a)
	}
	return cat, nil
}

func hasFieldError(verr *validation.RequestValidationError, field string) bool {
	for _, f := range verr.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func readCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = normalizeKey(h)
	}

	var records []map[string]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		record := make(map[string]string, len(keys))
		for i, value := range row {
			if i < len(keys) && keys[i] != "" {
				record[keys[i]] = value
			}
		}
		records = append(records, record)
	}
}

func readJSON(r io.Reader) ([]map[string]string, error) {
	var raw interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	return flattenRecords(raw)
}

func readYAML(r io.Reader) ([]map[string]string, error) {
	var raw interface{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	return flattenRecords(raw)
}

// flattenRecords accepts either a list of objects or an object wrapping that
// list under "assessments".
func flattenRecords(raw interface{}) ([]map[string]string, error) {
	if obj, ok := raw.(map[string]interface{}); ok {
		raw = obj["assessments"]
	}
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a list of assessments, got %T", raw)
	}

	records := make([]map[string]string, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("record %d: expected an object, got %T", i+1, item)
		}
		record := make(map[string]string, len(obj))
		for key, value := range obj {
			if value == nil {
				continue
			}
			record[normalizeKey(key)] = stringify(value)
		}
		records = append(records, record)
	}
	return records, nil
}

func stringify(value interface{}) string {
	list, ok := value.([]interface{})
	if !ok {
		return fmt.Sprint(value)
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if item != nil {
			parts = append(parts, fmt.Sprint(item))
		}
	}
	return strings.Join(parts, ", ")
}
