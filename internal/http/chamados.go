package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vozcidada/gateway/internal/chamado"
	"github.com/vozcidada/gateway/internal/storage"
)

const (
	photoField         = "foto"
	maxMultipartMemory = 8 << 20
	maxMultipartBody   = storage.MaxImageSize + 1<<20
)

func (h *Handler) ListChamados(w http.ResponseWriter, r *http.Request) {
	page, err := h.chamados.List(r.Context(), actorOf(currentSession(r)), pageQuery(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// OpenChamado aceita multipart (com foto opcional) ou JSON.
func (h *Handler) OpenChamado(w http.ResponseWriter, r *http.Request) {
	var input chamado.OpenInput
	if isMultipart(r) {
		form, photo, err := readPhotoForm(w, r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		input.Titulo = form.Value("titulo")
		input.Descricao = form.Value("descricao")
		if input.Latitude, err = optionalFloat(form.Value("latitude")); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "latitude inválida", nil)
			return
		}
		if input.Longitude, err = optionalFloat(form.Value("longitude")); err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "longitude inválida", nil)
			return
		}
		input.Photo = photo
	} else if !decodeJSON(w, r, &input) {
		return
	}

	ch, err := h.chamados.Open(r.Context(), actorOf(currentSession(r)), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, ch)
}

func (h *Handler) GetChamado(w http.ResponseWriter, r *http.Request) {
	id, ok := chamadoID(w, r)
	if !ok {
		return
	}
	ch, err := h.chamados.Get(r.Context(), actorOf(currentSession(r)), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ch)
}

// ChangeChamadoStatus aceita multipart (foto "depois" opcional) ou JSON.
func (h *Handler) ChangeChamadoStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := chamadoID(w, r)
	if !ok {
		return
	}
	var input chamado.StatusInput
	if isMultipart(r) {
		form, photo, err := readPhotoForm(w, r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return
		}
		input.Status = form.Value("statusNovo")
		input.Observacao = form.Value("observacao")
		input.Photo = photo
	} else if !decodeJSON(w, r, &input) {
		return
	}

	ch, err := h.chamados.ChangeStatus(r.Context(), actorOf(currentSession(r)), id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ch)
}

func (h *Handler) ReassignChamado(w http.ResponseWriter, r *http.Request) {
	id, ok := chamadoID(w, r)
	if !ok {
		return
	}
	var input chamado.ReassignInput
	if !decodeJSON(w, r, &input) {
		return
	}
	ch, err := h.chamados.Reassign(r.Context(), actorOf(currentSession(r)), id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ch)
}

func (h *Handler) RateChamado(w http.ResponseWriter, r *http.Request) {
	id, ok := chamadoID(w, r)
	if !ok {
		return
	}
	var input chamado.RateInput
	if !decodeJSON(w, r, &input) {
		return
	}
	a, err := h.chamados.Rate(r.Context(), actorOf(currentSession(r)), id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) DeleteChamado(w http.ResponseWriter, r *http.Request) {
	id, ok := chamadoID(w, r)
	if !ok {
		return
	}
	if err := h.chamados.Delete(r.Context(), actorOf(currentSession(r)), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CountChamados(w http.ResponseWriter, r *http.Request) {
	counts, err := h.chamados.CountBySecretaria(r.Context(), actorOf(currentSession(r)))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, counts)
}

func (h *Handler) ListAvaliacoes(w http.ResponseWriter, r *http.Request) {
	page, err := h.chamados.Ratings(r.Context(), actorOf(currentSession(r)), pageQuery(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// GetUpload repassa a foto com o token da sessão; o navegador não fala com o backend.
func (h *Handler) GetUpload(w http.ResponseWriter, r *http.Request) {
	img, err := h.chamados.Image(r.Context(), actorOf(currentSession(r)), chi.URLParam(r, "filename"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

func chamadoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "id")), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return 0, false
	}
	return id, true
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

type formValues map[string][]string

func (f formValues) Value(key string) string {
	if vs := f[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// readPhotoForm lê o formulário e a foto opcional do campo "foto".
func readPhotoForm(w http.ResponseWriter, r *http.Request) (formValues, *chamado.Photo, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, storage.ErrTooLarge
		}
		return nil, nil, errors.New("form inválido")
	}
	form := formValues(r.MultipartForm.Value)

	files := r.MultipartForm.File[photoField]
	if len(files) == 0 {
		return form, nil, nil
	}
	data, err := readMultipartFile(files[0], storage.MaxImageSize+1)
	if err != nil {
		return nil, nil, err
	}
	return form, &chamado.Photo{Filename: files[0].Filename, Body: data}, nil
}

// readMultipartFile lê até limit bytes; o tamanho final é validado pelo uploader.
func readMultipartFile(header *multipart.FileHeader, limit int64) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir arquivo: %w", err)
	}
	defer file.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(file, limit)); err != nil {
		return nil, fmt.Errorf("falha ao ler arquivo: %w", err)
	}
	return buf.Bytes(), nil
}

func optionalFloat(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
