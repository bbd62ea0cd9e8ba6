package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"time"
)

// FeedbackExportRecord is one row of the expert-review dump consumed by the
// offline analysis scripts.
type FeedbackExportRecord struct {
	Context    json.RawMessage `json:"context"`
	Rating     string          `json:"rating"`
	Comment    string          `json:"comment"`
	ExpertName string          `json:"expert_name"`
	Timestamp  string          `json:"timestamp"`
}

func (s *Store) exportFeedback(ctx context.Context) ([]FeedbackExportRecord, error) {
	var rows []Feedback
	if err := s.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]FeedbackExportRecord, 0, len(rows))
	for _, row := range rows {
		rawCtx := json.RawMessage(row.Context)
		if !json.Valid(rawCtx) {
			rawCtx = json.RawMessage("[]")
		}
		out = append(out, FeedbackExportRecord{
			Context:    rawCtx,
			Rating:     row.Rating,
			Comment:    row.Comment,
			ExpertName: row.ExpertName,
			Timestamp:  row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

// ExportFeedbackJSON writes the full feedback dump as a JSON array.
func (s *Store) ExportFeedbackJSON(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.exportFeedback(ctx)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ExportFeedbackCSV writes the dump as CSV with a header row.
func (s *Store) ExportFeedbackCSV(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.exportFeedback(ctx)
	if err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"context", "rating", "comment", "expert_name", "timestamp"}); err != nil {
		return 0, err
	}
	for _, r := range records {
		if err := cw.Write([]string{string(r.Context), r.Rating, r.Comment, r.ExpertName, r.Timestamp}); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(records), cw.Error()
}

// FeedbackStats summarizes expert ratings for the health report.
type FeedbackStats struct {
	Good         int64
	Bad          int64
	Experts      int64
	WithComments int64
}

func (s *Store) FeedbackSummary(ctx context.Context) (FeedbackStats, error) {
	var stats FeedbackStats
	db := s.db.WithContext(ctx).Model(&Feedback{})
	if err := db.Where("rating = ?", "good").Count(&stats.Good).Error; err != nil {
		return stats, err
	}
	db = s.db.WithContext(ctx).Model(&Feedback{})
	if err := db.Where("rating = ?", "bad").Count(&stats.Bad).Error; err != nil {
		return stats, err
	}
	db = s.db.WithContext(ctx).Model(&Feedback{})
	if err := db.Distinct("user_id").Count(&stats.Experts).Error; err != nil {
		return stats, err
	}
	db = s.db.WithContext(ctx).Model(&Feedback{})
	if err := db.Where("comment <> ''").Count(&stats.WithComments).Error; err != nil {
		return stats, err
	}
	return stats, nil
}
