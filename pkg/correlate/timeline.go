package correlate

import (
	"sort"
	"time"

	"github.com/evidence-toolkit/core/pkg/schema"
)

// assembleTimeline runs Stage 4: collecting TimelineEvents from each
// bundle's ingest timestamp (event type "file_ingested"; the source file's
// own creation time is not used), analysis timestamps, and EmailAnalysis
// timeline items, then sorting strictly by timestamp with ties broken by
// (evidence_sha256, event_type).
func assembleTimeline(bundles []schema.EvidenceBundle) []schema.TimelineEvent {
	var events []schema.TimelineEvent
	for _, b := range bundles {
		sha := b.Evidence.SHA256
		if !b.Evidence.IngestedAt.IsZero() {
			events = append(events, schema.TimelineEvent{
				Timestamp:      b.Evidence.IngestedAt,
				EvidenceSHA256: sha,
				EventType:      "file_ingested",
				Description:    "evidence ingested: " + b.Evidence.OriginalFilename,
				Confidence:     1.0,
			})
		}
		for _, rec := range b.Analyses {
			events = append(events, schema.TimelineEvent{
				Timestamp:      rec.CreatedAt,
				EvidenceSHA256: sha,
				EventType:      "analysis_completed",
				Description:    "analysis recorded: " + rec.AnalysisID,
				Confidence:     rec.ConfidenceOverall,
			})
			if rec.Email != nil {
				for _, item := range rec.Email.Timeline {
					ts, err := time.Parse(time.RFC3339, item.Timestamp)
					if err != nil {
						continue
					}
					events = append(events, schema.TimelineEvent{
						Timestamp:      ts,
						EvidenceSHA256: sha,
						EventType:      "email_thread_event",
						Description:    item.Description,
						Confidence:     rec.ConfidenceOverall,
					})
				}
			}
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		if events[i].EvidenceSHA256 != events[j].EvidenceSHA256 {
			return events[i].EvidenceSHA256 < events[j].EvidenceSHA256
		}
		return events[i].EventType < events[j].EventType
	})
	return events
}
