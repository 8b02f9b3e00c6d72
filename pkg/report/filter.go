package report

import (
	"strings"

	"github.com/Sternrassler/cin7-report-sync/pkg/logging"
	"github.com/Sternrassler/cin7-report-sync/pkg/record"
	"github.com/rs/zerolog"
)

// Filter decides whether a record belongs in a report.
type Filter struct {
	variant Variant
	logger  zerolog.Logger
}

// NewFilter creates a filter for v.
func NewFilter(v Variant) *Filter {
	return &Filter{
		variant: v,
		logger:  logging.NewLogger("filter").With().Str("variant", v.Name).Logger(),
	}
}

// Keep reports whether rec passes the variant predicates and its date field
// lies within window. Rejections are never errors.
func (f *Filter) Keep(rec *record.RawRecord, window DateRange) bool {
	if f.variant.ExcludeVoid && rec.IsVoid {
		f.reject(rec, "void")
		return false
	}

	if f.variant.Stage != "" && !strings.EqualFold(strings.TrimSpace(rec.Stage), f.variant.Stage) {
		f.reject(rec, "stage "+rec.Stage)
		return false
	}

	raw := rec.Date(f.variant.DateField)
	if raw == "" {
		f.logger.Warn().Int64("record_id", rec.ID).Str("reference", rec.Reference).Str("field", f.variant.DateField).Msg("Missing record date")
		return false
	}

	ts, err := record.ParseTimestamp(raw)
	if err != nil {
		f.logger.Warn().Err(err).Int64("record_id", rec.ID).Str("reference", rec.Reference).Msg("Unparsable record date")
		return false
	}

	return window.Contains(ts)
}

func (f *Filter) reject(rec *record.RawRecord, reason string) {
	f.logger.Debug().Int64("record_id", rec.ID).Str("reference", rec.Reference).Str("reason", reason).Msg("Record rejected")
}
