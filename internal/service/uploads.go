package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"fad-monitoring-backend/internal/media"
	"fad-monitoring-backend/internal/models"
	"fad-monitoring-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// storedImage is a normalized upload written to storage
type storedImage struct {
	Filename      string
	ThumbFilename *string
	OriginalName  string
	Mime          string
	Size          int64
	URL           string
	ThumbURL      *string
}

// imageWriter normalizes uploads and writes them with their thumbnails
type imageWriter struct {
	store        storage.Store
	processor    media.Processor
	publicPrefix string
	maxFileSize  int64
	log          logrus.FieldLogger
}

func randomName(ext string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + ext
}

// write reads, normalizes and stores one upload plus its thumbnail. A thumbnail that cannot be
// rendered is skipped. It returns every name written so far, also on failure.
func (w *imageWriter) write(file UploadFile, name func(ext string) string) (*storedImage, []string, error) {
	data, err := readUpload(file, w.maxFileSize)
	if err != nil {
		return nil, nil, err
	}

	img, err := w.processor.Normalize(data, file.OriginalName)
	if err != nil {
		return nil, nil, mediaErr(err)
	}

	filename := name(img.Ext)
	if _, err := w.store.Save(filename, bytes.NewReader(img.Data)); err != nil {
		return nil, nil, fmt.Errorf("failed to save file: %w", err)
	}
	written := []string{filename}

	stored := &storedImage{
		Filename:     filename,
		OriginalName: normalizedOriginalName(file.OriginalName, img.Ext),
		Mime:         img.Mime,
		Size:         int64(len(img.Data)),
		URL:          w.publicURL(filename),
	}

	thumb, err := w.processor.Thumbnail(img)
	if err != nil {
		w.log.WithError(err).WithField("file", filename).Warn("thumbnail generation failed")
		return stored, written, nil
	}
	thumbName := media.ThumbName(filename)
	if _, err := w.store.Save(thumbName, bytes.NewReader(thumb)); err != nil {
		return nil, written, fmt.Errorf("failed to save thumbnail: %w", err)
	}
	written = append(written, thumbName)
	stored.ThumbFilename = &thumbName
	stored.ThumbURL = stringPtr(w.publicURL(thumbName))
	return stored, written, nil
}

// remove deletes stored files best-effort, logging failures
func (w *imageWriter) remove(names ...string) {
	for _, name := range names {
		if err := w.store.Remove(name); err != nil {
			w.log.WithError(err).WithField("file", name).Warn("failed to remove file")
		}
	}
}

func (w *imageWriter) publicURL(name string) string {
	return strings.TrimSuffix(w.publicPrefix, "/") + "/" + name
}

func readUpload(file UploadFile, maxSize int64) ([]byte, error) {
	if maxSize > 0 && file.Size > maxSize {
		return nil, fmt.Errorf("%w: file larger than %d bytes", ErrInvalidUpload, maxSize)
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if maxSize > 0 {
		r = io.LimitReader(rc, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: file larger than %d bytes", ErrInvalidUpload, maxSize)
	}
	return data, nil
}

func mediaErr(err error) error {
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		return fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	case errors.Is(err, media.ErrConversion):
		return fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	return err
}

func normalizedOriginalName(name, ext string) string {
	if strings.EqualFold(path.Ext(name), ".heic") {
		return strings.TrimSuffix(name, path.Ext(name)) + ext
	}
	return name
}

func photoFiles(p *models.Photo) []string {
	names := []string{p.Filename}
	if p.ThumbFilename != nil {
		names = append(names, *p.ThumbFilename)
	}
	return names
}
