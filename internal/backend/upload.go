package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

const maxImageSize = 10 << 20

// Image é o conteúdo de uma foto armazenada no backend.
type Image struct {
	ContentType string
	Data        []byte
}

// SaveImage envia a foto no campo multipart "image" e devolve a URL gerada.
func (c *Client) SaveImage(ctx context.Context, token, filename, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("backend: imagem vazia")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload/file", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	var location string
	err = c.do(req, func(resp *http.Response) error {
		return decodeBody(resp.Body, &location)
	})
	if err != nil {
		return "", err
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return "", errors.New("backend: upload sem url de retorno")
	}
	return location, nil
}

// GetImage baixa uma foto previamente enviada.
func (c *Client) GetImage(ctx context.Context, token, filename string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/upload/"+url.PathEscape(filename), nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	img := &Image{}
	err = c.do(req, func(resp *http.Response) error {
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
		if err != nil {
			return err
		}
		img.Data = data
		img.ContentType = resp.Header.Get("Content-Type")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}
