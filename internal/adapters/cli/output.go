// Package cli renders pipeline results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
)

// OutputFormat selects human-readable or JSON output.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "parse output format", fmt.Errorf("unknown output format %q, expected text or json", s))
	}
}

type answerView struct {
	Question       string                  `json:"question"`
	Answer         string                  `json:"answer"`
	Decision       domain.Decision         `json:"decision"`
	Origin         domain.ContextOrigin    `json:"context_origin"`
	Chunks         []domain.RetrievedChunk `json:"chunks"`
	WebResults     []domain.WebResult      `json:"web_results,omitempty"`
	ElapsedSeconds float64                 `json:"elapsed_seconds"`
}

// WriteAnswer writes the final answer followed by the processing time.
func WriteAnswer(w io.Writer, answer *domain.Answer, format OutputFormat) error {
	if format == OutputJSON {
		chunks := answer.Chunks
		if chunks == nil {
			chunks = []domain.RetrievedChunk{}
		}
		return encodeJSON(w, answerView{
			Question:       answer.Question,
			Answer:         answer.Text,
			Decision:       answer.Decision,
			Origin:         answer.Origin,
			Chunks:         chunks,
			WebResults:     answer.WebResults,
			ElapsedSeconds: seconds(answer.Elapsed),
		})
	}
	_, err := fmt.Fprintf(w, "\n--- Final Answer ---\n%s\n\nProcessed in %.2f seconds.\n", answer.Text, answer.Elapsed.Seconds())
	return err
}

type ingestView struct {
	Collection      string  `json:"collection"`
	Documents       int     `json:"documents"`
	Skipped         int     `json:"skipped"`
	Chunks          int     `json:"chunks"`
	Upserted        int     `json:"upserted"`
	PointCount      int     `json:"point_count"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func WriteIngestReport(w io.Writer, report *domain.IngestReport, format OutputFormat) error {
	if format == OutputJSON {
		return encodeJSON(w, ingestView{
			Collection:      report.Collection,
			Documents:       report.Documents,
			Skipped:         report.Skipped,
			Chunks:          report.Chunks,
			Upserted:        report.Upserted,
			PointCount:      report.PointCount,
			DurationSeconds: seconds(report.Duration),
		})
	}

	if report.Finished() {
		msg := "No documents loaded. Ingestion finished."
		if report.Documents > 0 {
			msg = "No text chunks generated after splitting. Ingestion finished."
		}
		_, err := fmt.Fprintln(w, msg)
		return err
	}
	_, err := fmt.Fprintf(w, "Generated %d chunks.\n\n--- Data Ingestion Process Completed Successfully ---\nCollection '%s' now contains %d points.\n",
		report.Chunks, report.Collection, report.PointCount)
	return err
}

func WriteCleared(w io.Writer, collection string, format OutputFormat) error {
	if format == OutputJSON {
		return encodeJSON(w, map[string]any{"collection": collection, "cleared": true})
	}
	_, err := fmt.Fprintf(w, "Collection '%s' cleared.\n", collection)
	return err
}

func WriteSources(w io.Writer, sources []domain.SourceRecord, format OutputFormat) error {
	if format == OutputJSON {
		if sources == nil {
			sources = []domain.SourceRecord{}
		}
		return encodeJSON(w, sources)
	}
	if len(sources) == 0 {
		_, err := fmt.Fprintln(w, "No sources ingested yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tKIND\tCHUNKS\tSHA256\tINGESTED AT")
	for _, s := range sources {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.Source, s.Kind, s.ChunkCount, shortHash(s.ContentSHA256), s.IngestedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func seconds(d time.Duration) float64 {
	return float64(d.Milliseconds()) / 1000
}

func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}
