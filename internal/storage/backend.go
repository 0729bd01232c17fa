package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

type imageSaver interface {
	SaveImage(ctx context.Context, token, filename, contentType string, data []byte) (string, error)
}

// BackendUploader envia fotos para /api/upload/file do backend.
type BackendUploader struct {
	api imageSaver
}

func NewBackendUploader(api imageSaver) *BackendUploader {
	return &BackendUploader{api: api}
}

// Upload valida o conteúdo e grava com nome aleatório preservando a extensão detectada.
func (u *BackendUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	mt, err := SniffImage(input.Body)
	if err != nil {
		return nil, err
	}
	contentType := strings.SplitN(mt.String(), ";", 2)[0]

	name := uuid.NewString() + mt.Extension()
	if base := strings.TrimSuffix(path.Base(input.Filename), path.Ext(input.Filename)); base != "" && base != "." && base != "/" {
		name = uuid.NewString() + "-" + sanitize(base) + mt.Extension()
	}

	url, err := u.api.SaveImage(ctx, input.Token, name, contentType, input.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: upload: %w", err)
	}
	return &UploadResult{URL: url, ContentType: contentType}, nil
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('-')
		}
		if b.Len() >= 40 {
			break
		}
	}
	return b.String()
}
