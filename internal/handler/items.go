package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/secret-share/internal/apperror"
	"github.com/sakif/secret-share/internal/auth"
	"github.com/sakif/secret-share/internal/model"
	"github.com/sakif/secret-share/internal/repository"
	"github.com/sakif/secret-share/internal/service"
)

// multipartMemory is how much of a multipart body is held in memory before
// the rest spills to a temp file.
const multipartMemory = 8 << 20

// ItemHandler exposes ItemService over HTTP.
//
// ROUTES:
//
//	POST     /api/items               (auth) create, 201 {uuid, url, password}
//	GET      /api/items               (auth) owner's items
//	GET      /api/items/{uuid}/info   (auth) one item, owner only
//	GET|POST /api/items/{uuid}        (public) password-gated retrieval
type ItemHandler struct {
	items     *service.ItemService
	baseURL   string
	maxUpload int64
	logger    *slog.Logger
}

// NewItemHandler creates an ItemHandler. baseURL is the public origin used
// to build access URLs, without a trailing slash.
func NewItemHandler(items *service.ItemService, baseURL string, maxUpload int64, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		items:     items,
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// CreateItemRequest is the JSON form of a create request. Files can only be
// sent as multipart/form-data.
type CreateItemRequest struct {
	URL      string `json:"url"`
	Password string `json:"password"`
}

// CreateItemResponse carries the plaintext password. It is the only
// response that ever does.
type CreateItemResponse struct {
	UUID     string `json:"uuid"`
	URL      string `json:"url"`
	Password string `json:"password"`
}

// HandleCreate creates an item for the authenticated owner.
//
// HTTP: POST /api/items
//
// Accepted bodies:
//   - multipart/form-data: "url" or "file", optional "password"
//   - application/x-www-form-urlencoded: "url", optional "password"
//   - application/json: {"url": "...", "password": "..."}
func (h *ItemHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("not authenticated"))
		return
	}

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	choice, password, cleanup, err := h.parseCreate(r)
	defer cleanup()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   "too_large",
				Message: "request body exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes",
			})
			return
		}
		writeError(w, err)
		return
	}

	item, plaintext, err := h.items.Create(r.Context(), ownerID, choice, password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateItemResponse{
		UUID:     item.UUID,
		URL:      h.accessURL(item.UUID),
		Password: plaintext,
	})
}

// parseCreate reads the payload choice from any of the accepted encodings.
// cleanup is always non-nil and releases multipart temp files.
func (h *ItemHandler) parseCreate(r *http.Request) (service.PayloadChoice, string, func(), error) {
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var req CreateItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return service.PayloadChoice{}, "", noop, err
			}
			return service.PayloadChoice{}, "", noop, apperror.ValidationFailed("body", "invalid JSON body")
		}
		return service.PayloadChoice{URL: req.URL}, req.Password, noop, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return service.PayloadChoice{}, "", noop, err
			}
			return service.PayloadChoice{}, "", noop, apperror.ValidationFailed("body", "invalid multipart body")
		}
		cleanup := func() { r.MultipartForm.RemoveAll() }

		choice := service.PayloadChoice{URL: r.FormValue("url")}
		file, header, err := r.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return service.PayloadChoice{}, "", cleanup, apperror.ValidationFailed("file", "invalid file upload")
		default:
			prev := cleanup
			cleanup = func() {
				file.Close()
				prev()
			}
			choice.File = &service.FileUpload{Name: header.Filename, Content: file}
		}
		return choice, r.FormValue("password"), cleanup, nil

	default:
		if err := r.ParseForm(); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return service.PayloadChoice{}, "", noop, err
			}
			return service.PayloadChoice{}, "", noop, apperror.ValidationFailed("body", "invalid form body")
		}
		return service.PayloadChoice{URL: r.PostFormValue("url")}, r.PostFormValue("password"), noop, nil
	}
}

// HandleRetrieve grants access to an item.
//
// HTTP: GET|POST /api/items/{uuid}?password=...
//
// The password may come from the query string or a form body. A link
// answers 302 to the stored URL; a file is streamed as an attachment.
// Every failure is the same 404.
func (h *ItemHandler) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	itemUUID := chi.URLParam(r, "uuid")
	password := r.FormValue("password")

	// The password travels in the URL; keep it out of caches and the
	// Referer of the redirect target.
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")

	got, err := h.items.Retrieve(r.Context(), itemUUID, password)
	if err != nil {
		writeError(w, err)
		return
	}

	switch got.Kind {
	case model.PayloadURL:
		http.Redirect(w, r, got.URL, http.StatusFound)

	case model.PayloadFile:
		defer got.Content.Close()

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition",
			mime.FormatMediaType("attachment", map[string]string{"filename": got.FileName}))
		w.Header().Set("Content-Length", strconv.FormatInt(got.Size, 10))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(http.StatusOK)

		if _, err := io.Copy(w, got.Content); err != nil {
			// Headers are gone; all we can do is log.
			h.logger.Warn("file stream interrupted",
				slog.String("uuid", itemUUID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// ItemListResponse is one page of the owner's items.
type ItemListResponse struct {
	Items  []ItemView `json:"items"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// ItemView is service.ItemInfo plus the public access URL.
type ItemView struct {
	service.ItemInfo
	AccessURL string `json:"accessUrl"`
}

// HandleList returns the owner's items, newest first.
//
// HTTP: GET /api/items?limit=20&offset=0
func (h *ItemHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("not authenticated"))
		return
	}

	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	infos, err := h.items.ListOwned(r.Context(), ownerID, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]ItemView, 0, len(infos))
	for _, info := range infos {
		views = append(views, ItemView{ItemInfo: info, AccessURL: h.accessURL(info.UUID)})
	}

	limit, offset := opts.Normalize()
	writeJSON(w, http.StatusOK, ItemListResponse{Items: views, Limit: limit, Offset: offset})
}

// HandleInfo returns one of the owner's items, expired or not.
//
// HTTP: GET /api/items/{uuid}/info
func (h *ItemHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("not authenticated"))
		return
	}

	itemUUID := chi.URLParam(r, "uuid")
	info, err := h.items.Describe(r.Context(), ownerID, itemUUID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ItemView{ItemInfo: *info, AccessURL: h.accessURL(info.UUID)})
}

func (h *ItemHandler) accessURL(itemUUID string) string {
	return h.baseURL + "/api/items/" + itemUUID
}

func parseListOptions(r *http.Request) (repository.ListOptions, error) {
	var opts repository.ListOptions
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, apperror.ValidationFailed("limit", "limit must be a non-negative integer")
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, apperror.ValidationFailed("offset", "offset must be a non-negative integer")
		}
		opts.Offset = n
	}
	return opts, nil
}
