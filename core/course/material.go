package course

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyFile           = errors.New("the submitted file is empty")

	sniffLen = 3072 // mimetype's default read limit

	// AllowedMaterialTypes lists the MIME types lecture materials can be of.
	AllowedMaterialTypes = []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"text/plain",
		"image/png",
		"image/jpeg",
		"image/gif",
		"video/mp4",
		"video/webm",
		"application/zip",
	}
)

// MaterialUpload is a file submitted for a Lecture.
type MaterialUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// SniffMaterialType detects the content type of r from its first bytes. It returns the detected type and a reader
// yielding the whole content, sniffed bytes included.
func SniffMaterialType(r io.Reader) (*mimetype.MIME, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, nil, errors.Wrap(err, "reading file header")
	}
	head = head[:n]
	return mimetype.Detect(head), io.MultiReader(bytes.NewReader(head), r), nil
}

func isAllowedMaterialType(mt *mimetype.MIME) bool {
	for _, allowed := range AllowedMaterialTypes {
		if mt.Is(allowed) {
			return true
		}
	}
	return false
}

func materialKey(lectureID, filename string, mt *mimetype.MIME) string {
	ext := mt.Extension()
	if mt.Is("text/plain") {
		if orig := strings.ToLower(filepath.Ext(filename)); orig == ".md" || orig == ".markdown" {
			ext = orig
		}
	}
	return path.Join("lectures", lectureID, uuid.New().String()+ext)
}

func (svc *service) AttachMaterial(ctx context.Context, l Lecture, upload MaterialUpload) (Lecture, error) {
	if upload.Size == 0 {
		return Lecture{}, core.NewValidationError(ErrEmptyFile, core.FieldError{Field: "file", Error: ErrEmptyFile.Error()})
	}
	mt, content, err := SniffMaterialType(upload.Content)
	if err != nil {
		return Lecture{}, err
	}
	if !isAllowedMaterialType(mt) {
		return Lecture{}, core.NewValidationError(
			ErrUnsupportedFileType,
			core.FieldError{Field: "file", Error: ErrUnsupportedFileType.Error()},
		)
	}

	key := materialKey(l.ID, upload.Filename, mt)
	if err = svc.storage.Put(ctx, key, content, upload.Size, mt.String()); err != nil {
		return Lecture{}, errors.Wrap(err, "storing material")
	}

	oldMaterial := l.Material
	now := time.Now().UTC()
	l.Material = &Material{
		Key:         key,
		Filename:    filepath.Base(upload.Filename),
		ContentType: mt.String(),
		Size:        upload.Size,
		UploadedAt:  now,
	}
	l.UpdatedAt = now
	updated, err := svc.repo.UpdateLecture(ctx, l)
	if err != nil {
		if delErr := svc.storage.Delete(ctx, key); delErr != nil {
			svc.logger.Warn(fmt.Sprintf("removing orphan material %q: %v", key, delErr), delErr)
		}
		return Lecture{}, errors.Wrap(err, "updating lecture")
	}

	if oldMaterial != nil {
		svc.removeMaterials(ctx, []Lecture{{Material: oldMaterial}})
	}
	return updated, nil
}

func (svc *service) MaterialURL(ctx context.Context, l Lecture) (string, error) {
	if l.Material == nil {
		return "", ErrNoMaterial
	}
	url, err := svc.storage.URL(ctx, l.Material.Key, l.Material.Filename)
	return url, errors.Wrap(err, "getting material URL")
}

func (svc *service) RemoveMaterial(ctx context.Context, l Lecture) (Lecture, error) {
	if l.Material == nil {
		return Lecture{}, ErrNoMaterial
	}
	old := l
	l.Material = nil
	l.UpdatedAt = time.Now().UTC()
	l, err := svc.repo.UpdateLecture(ctx, l)
	if err != nil {
		return Lecture{}, errors.Wrap(err, "updating lecture")
	}
	svc.removeMaterials(ctx, []Lecture{old})
	return l, nil
}
