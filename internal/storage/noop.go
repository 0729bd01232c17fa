package storage

import (
	"context"
	"errors"
)

// ErrDisabled indica que o envio de fotos está desligado.
var ErrDisabled = errors.New("storage: uploader não configurado")

// NoopUploader devolve erro indicando que não há backend configurado.
type NoopUploader struct{}

// Upload valida o arquivo e sempre retorna ErrDisabled.
func (NoopUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if _, err := SniffImage(input.Body); err != nil {
		return nil, err
	}
	return nil, ErrDisabled
}
