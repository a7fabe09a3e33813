package api

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"panelsmith/internal/job"
	"panelsmith/internal/logging"
)

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := chi.URLParam(r, "token")

	found, err := s.jobs.GetByToken(ctx, token)
	if err != nil {
		s.writeServiceError(ctx, w, err)
		return
	}
	if found == nil {
		s.writeError(ctx, w, CodeNotFound, "unknown job token")
		return
	}

	switch found.Status {
	case job.StatusCompleted:
	case job.StatusFailed:
		s.writeError(ctx, w, CodeNotCompleted, "job failed; no artifact was produced")
		return
	default:
		s.writeError(ctx, w, CodeNotCompleted, "job is still processing; artifact not ready")
		return
	}

	result, err := found.Result()
	if err != nil || result == nil || strings.TrimSpace(result.ArtifactPath) == "" {
		s.writeError(ctx, w, CodeInternal, "job completed without a readable artifact record")
		return
	}

	info, err := os.Stat(result.ArtifactPath)
	if err != nil {
		s.writeError(ctx, w, CodeNotFound, "artifact is no longer on disk")
		return
	}

	logging.WithContext(ctx, s.logger).Info("artifact download",
		logging.String(logging.FieldJobToken, found.Token),
		logging.String("format", result.Format))

	if info.IsDir() {
		s.streamPageArchive(w, r, result.ArtifactPath)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(result.ArtifactPath)))
	http.ServeFile(w, r, result.ArtifactPath)
}

// streamPageArchive zips a page image directory straight into the response.
// The png format leaves its artifact as a directory of page files, which
// cannot be streamed as a single body any other way.
func (s *Server) streamPageArchive(w http.ResponseWriter, r *http.Request, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.writeError(r.Context(), w, CodeInternal, "artifact directory unreadable")
		return
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="pages.zip"`)
	w.WriteHeader(http.StatusOK)

	archive := zip.NewWriter(w)
	for _, name := range names {
		if err := addArchiveFile(archive, dir, name); err != nil {
			// Headers are already on the wire; all we can do is log and stop.
			s.logger.Error("page archive write failed", logging.Error(err))
			break
		}
	}
	if err := archive.Close(); err != nil {
		s.logger.Error("page archive close failed", logging.Error(err))
	}
}

func addArchiveFile(archive *zip.Writer, dir, name string) error {
	file, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("open page %s: %w", name, err)
	}
	defer file.Close()

	entry, err := archive.Create(name)
	if err != nil {
		return fmt.Errorf("create archive entry %s: %w", name, err)
	}
	if _, err := io.Copy(entry, file); err != nil {
		return fmt.Errorf("write archive entry %s: %w", name, err)
	}
	return nil
}
