package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sprintlens/internal/models"
	"sprintlens/internal/report"
)

// FileSink delivers scheduled report runs as files in a drop directory, one
// per run, for a mail relay or sync agent to pick up.
type FileSink struct {
	exporter *Exporter
	dir      string
}

// NewFileSink returns a sink writing into dir, creating it if needed.
func NewFileSink(exporter *Exporter, dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileSink{exporter: exporter, dir: dir}, nil
}

// Deliver renders the result in the schedule's format. A failed render leaves
// no partial file behind.
func (s *FileSink) Deliver(ctx context.Context, sched models.ReportSchedule, res report.Result) error {
	name := fmt.Sprintf("%s_%s.%s", sched.ReportID,
		time.Now().UTC().Format("20060102T150405"), sched.Format)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.exporter.Export(res, sched.Format, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
