package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"

	"cloud-backend/internal/dto"
	"cloud-backend/internal/middleware"
	"cloud-backend/internal/models"
	"cloud-backend/internal/services"
	"cloud-backend/utils/response"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const multipartMemory = 32 * 1024 * 1024

type FileHandler struct {
	service        *services.FileService
	maxUploadBytes int64
	landingPath    string
	logger         *log.Logger
}

func NewFileHandler(service *services.FileService, maxUploadBytes int64, landingPath string) *FileHandler {
	return &FileHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		landingPath:    landingPath,
		logger:         log.New(log.Writer(), "[FileHandler] ", log.LstdFlags),
	}
}

func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "Uploaded file is too large")
			return
		}
		response.Error(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	content, header, err := r.FormFile("content")
	if err != nil {
		response.Invalid(w, "Validation failed", map[string][]string{"content": {"No file was submitted"}})
		return
	}
	defer content.Close()

	upload := services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Comment:     r.FormValue("comment"),
		Content:     content,
	}
	if raw := r.FormValue("user_id"); raw != "" {
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			response.Invalid(w, "Validation failed", map[string][]string{"user_id": {"must be a valid user id"}})
			return
		}
		upload.OwnerID = &ownerID
	}

	file, err := h.service.CreateFile(r.Context(), middleware.GetUserFromContext(r.Context()), upload)
	if err != nil {
		writeError(w, h.logger, err, "Failed to upload file")
		return
	}

	response.Created(w, dto.NewFileResponse(file), "File uploaded successfully")
}

func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	file, ok := h.locate(w, r)
	if !ok {
		return
	}
	response.Success(w, dto.NewFileResponse(file), "")
}

// UpdateFile serves PUT and PATCH alike: fields absent from the body are
// left unchanged.
func (h *FileHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "File not found")
	if !ok {
		return
	}

	var req dto.UpdateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	file, err := h.service.UpdateFile(r.Context(), middleware.GetUserFromContext(r.Context()), id, &req)
	if err != nil {
		writeError(w, h.logger, err, "Failed to update file")
		return
	}
	response.Success(w, dto.NewFileResponse(file), "File updated successfully")
}

func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "File not found")
	if !ok {
		return
	}

	if err := h.service.DeleteFile(r.Context(), middleware.GetUserFromContext(r.Context()), id); err != nil {
		writeError(w, h.logger, err, "Failed to delete file")
		return
	}
	response.NoContent(w)
}

func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	file, ok := h.locate(w, r)
	if !ok {
		return
	}

	started, err := h.send(w, r, file)
	if err != nil && !started {
		writeError(w, h.logger, err, "Failed to download file")
	}
}

// DownloadByLink serves a file to anyone holding its external link key.
// Unknown keys and missing content redirect to the download landing page.
func (h *FileHandler) DownloadByLink(w http.ResponseWriter, r *http.Request) {
	file, err := h.service.ResolveLinkKey(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Redirect(w, r, h.landingPath, http.StatusFound)
			return
		}
		writeError(w, h.logger, err, "Failed to resolve link")
		return
	}

	started, err := h.send(w, r, file)
	if err != nil && !started {
		if errors.Is(err, services.ErrBlobNotFound) {
			http.Redirect(w, r, h.landingPath, http.StatusFound)
			return
		}
		writeError(w, h.logger, err, "Failed to download file")
	}
}

// LinkLanding handles a link with no key. StripSlashes turns /files/link/
// into /files/link, which must not fall through to /files/{id}.
func (h *FileHandler) LinkLanding(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.landingPath, http.StatusFound)
}

func (h *FileHandler) GenerateLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "File not found")
	if !ok {
		return
	}

	file, err := h.service.GenerateLinkKey(r.Context(), middleware.GetUserFromContext(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to generate link")
		return
	}
	response.Success(w, dto.NewFileResponse(file), "External link generated")
}

func (h *FileHandler) locate(w http.ResponseWriter, r *http.Request) (*models.File, bool) {
	id, ok := pathID(w, r, "File not found")
	if !ok {
		return nil, false
	}
	file, err := h.service.GetFile(r.Context(), middleware.GetUserFromContext(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "Failed to get file")
		return nil, false
	}
	return file, true
}

// send streams the blob as an attachment. started reports whether the
// response headers were already written, after which no error body can follow.
func (h *FileHandler) send(w http.ResponseWriter, r *http.Request, file *models.File) (started bool, err error) {
	err = h.service.Download(r.Context(), file, func(content io.ReadSeeker) error {
		started = true

		header := w.Header()
		header.Set("Content-Type", file.ContentType)
		header.Set("Content-Length", strconv.FormatInt(file.Size, 10))
		header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
		header.Set("Filename", file.Filename)
		header.Set("Access-Control-Expose-Headers", "Content-Disposition, Filename")
		w.WriteHeader(http.StatusOK)

		n, err := io.Copy(w, content)
		if err != nil {
			return err
		}
		if n != file.Size {
			return io.ErrUnexpectedEOF
		}
		return nil
	})
	return started, err
}
