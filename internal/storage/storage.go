package storage

import (
	"context"
	"errors"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize limita fotos de chamados.
const MaxImageSize = 5 << 20

var (
	ErrEmptyFile = errors.New("storage: arquivo vazio")
	ErrTooLarge  = errors.New("storage: arquivo deve ter no máximo 5MB")
	ErrNotImage  = errors.New("storage: apenas JPG, PNG e WebP são aceitos")
)

// AcceptedTypes são os tipos de foto aceitos.
var AcceptedTypes = []string{"image/jpeg", "image/png", "image/webp"}

// UploadInput representa o envio de uma foto em nome do titular do token.
type UploadInput struct {
	Token    string
	Filename string
	Body     []byte
}

// UploadResult descreve o artefato persistido.
type UploadResult struct {
	URL         string
	ContentType string
}

// Uploader define comportamento básico para armazenar fotos.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}

// SniffImage detecta o tipo pelo conteúdo; a extensão do nome é ignorada.
func SniffImage(body []byte) (*mimetype.MIME, error) {
	if len(body) == 0 {
		return nil, ErrEmptyFile
	}
	if len(body) > MaxImageSize {
		return nil, ErrTooLarge
	}
	mt := mimetype.Detect(body)
	if !mimetype.EqualsAny(mt.String(), AcceptedTypes...) {
		return nil, ErrNotImage
	}
	return mt, nil
}
