package worker

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/yoink-app/yoink-be/internal/jobstore"
	"github.com/yoink-app/yoink-be/internal/objstore"
	"github.com/yoink-app/yoink-be/internal/persist"
	"github.com/yoink-app/yoink-be/internal/pipeline"
	"github.com/yoink-app/yoink-be/internal/results"
)

// deliverResults turns the pipeline output into the client-facing result
// document. Guest crops land under the static root; user crops are uploaded
// to the bucket and the job is persisted.
func (w *Worker) deliverResults(ctx context.Context, job *jobstore.Job, out pipeline.Output) (results.Document, error) {
	pages := make([]results.Page, 0, len(out.Pages))
	var objects []objstore.Object

	for _, page := range out.Pages {
		comps := make([]results.Component, 0, len(page.Components))
		for _, entry := range page.Components {
			png, err := base64.StdEncoding.DecodeString(entry.Base64)
			if err != nil {
				return results.Document{}, fmt.Errorf("decode component %d: %w", entry.ID, err)
			}

			comp := results.Component{
				ID:            entry.ID,
				Category:      entry.Category,
				OriginalLabel: entry.OriginalLabel,
				Confidence:    entry.Confidence,
				BBox:          entry.BBox,
			}

			if job.UserID == "" {
				url, err := w.guest.Write(job.ID, entry.ID, png)
				if err != nil {
					return results.Document{}, fmt.Errorf("write guest image: %w", err)
				}
				comp.URL = url
			} else {
				path := fmt.Sprintf("%s/%s/%d.png", job.UserID, job.ID, entry.ID)
				objects = append(objects, objstore.Object{
					Path:        path,
					ContentType: "image/png",
					Data:        png,
				})
				comp.URL = w.objects.PublicURL(objstore.Bucket, path)
			}

			comps = append(comps, comp)
		}
		pages = append(pages, results.Page{PageNumber: page.PageNumber, Components: comps})
	}

	components := results.Flatten(pages)

	doc := results.Document{
		JobID:           job.ID,
		SourceFile:      out.SourceFile,
		TotalPages:      out.TotalPages,
		TotalComponents: out.TotalComponents,
		Components:      components,
	}

	if job.UserID == "" {
		return doc, nil
	}

	if err := w.objects.UploadAll(ctx, objstore.Bucket, objects); err != nil {
		return results.Document{}, fmt.Errorf("upload components: %w", err)
	}

	storagePath := fmt.Sprintf("%s/%s/%s/", objstore.Bucket, job.UserID, job.ID)
	err := w.userJobs.SaveCompleted(ctx, job.ID, job.UserID, job.Filename, storagePath, persist.ResultsDoc{
		TotalPages:      out.TotalPages,
		TotalComponents: out.TotalComponents,
		Components:      components,
	})
	if err != nil {
		return results.Document{}, fmt.Errorf("persist job: %w", err)
	}

	w.logger.Info("User results persisted",
		slog.String("job_id", job.ID),
		slog.String("user_id", job.UserID),
		slog.String("storage_path", storagePath),
		slog.Int("objects", len(objects)),
	)
	return doc, nil
}
