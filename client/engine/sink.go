package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

// ReportSink receives the final report of a run.
type ReportSink interface {
	Name() string
	Publish(ctx context.Context, report Report) error
}

// MarshalReport encodes a report as indented JSON.
func MarshalReport(report Report) ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(report, "", "  ")
}

// JSONFileSink writes the report to a file, replacing previous content.
type JSONFileSink struct {
	path string
}

func NewJSONFileSink(path string) *JSONFileSink {
	return &JSONFileSink{path: path}
}

func (s *JSONFileSink) Name() string {
	return "json:" + s.path
}

func (s *JSONFileSink) Publish(_ context.Context, report Report) error {
	data, err := MarshalReport(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	return os.WriteFile(s.path, append(data, '\n'), 0o644)
}
