// Package handler exposes the gallery services over HTTP.
package handler

import (
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/narwhalmedia/gallery/internal/gallery/domain"
	"github.com/narwhalmedia/gallery/internal/gallery/service"
	"github.com/narwhalmedia/gallery/pkg/errors"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
	"github.com/narwhalmedia/gallery/pkg/pagination"
)

// HTTPHandler serves the album and photo routes
type HTTPHandler struct {
	albums        service.AlbumServiceInterface
	photos        service.PhotoServiceInterface
	maxUploadSize  int64
	maxRequestBody int64
	logger         interfaces.Logger
}

// NewHTTPHandler creates a new HTTP handler. Uploads larger than
// maxUploadSize bytes are rejected; maxRequestBody bounds the whole
// multipart request.
func NewHTTPHandler(
	albums service.AlbumServiceInterface,
	photos service.PhotoServiceInterface,
	maxUploadSize, maxRequestBody int64,
	logger interfaces.Logger,
) *HTTPHandler {
	if maxUploadSize <= 0 || maxUploadSize > domain.MaxPhotoSize {
		maxUploadSize = domain.MaxPhotoSize
	}
	if maxRequestBody < maxUploadSize {
		maxRequestBody = maxUploadSize + 1<<20
	}
	return &HTTPHandler{
		albums:         albums,
		photos:         photos,
		maxUploadSize:  maxUploadSize,
		maxRequestBody: maxRequestBody,
		logger:         logger,
	}
}

// RegisterRoutes mounts the album and photo routes on r.
func (h *HTTPHandler) RegisterRoutes(r gin.IRouter) {
	albums := r.Group("/albums")
	albums.GET("", h.ListAlbums)
	albums.GET("/:id", h.GetAlbum)
	albums.POST("", h.CreateAlbum)
	albums.PATCH("/:id", h.UpdateAlbum)
	albums.DELETE("/:id", h.DeleteAlbum)

	photos := r.Group("/photos")
	photos.GET("/album/:albumId", h.ListPhotos)
	photos.GET("/:id", h.GetPhoto)
	photos.POST("", h.CreatePhoto)
	photos.PATCH("/:id", h.UpdatePhoto)
	photos.DELETE("/:id", h.DeletePhoto)
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		_ = c.Error(errors.BadRequest(fmt.Sprintf("invalid %s", name)))
		return uuid.Nil, false
	}
	return id, true
}

func bindError(c *gin.Context, err error) {
	_ = c.Error(errors.BadRequest(err.Error()))
}

// ListAlbums lists the caller's albums
func (h *HTTPHandler) ListAlbums(c *gin.Context) {
	var params pagination.Params
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err)
		return
	}
	page, err := h.albums.ListAlbums(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetAlbum returns one album
func (h *HTTPHandler) GetAlbum(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	album, err := h.albums.GetAlbum(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, album)
}

// CreateAlbum creates an album owned by the caller
func (h *HTTPHandler) CreateAlbum(c *gin.Context) {
	var req CreateAlbumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	album, err := h.albums.CreateAlbum(c.Request.Context(), service.CreateAlbumInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, album)
}

// UpdateAlbum applies a partial update to an album
func (h *HTTPHandler) UpdateAlbum(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateAlbumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	album, err := h.albums.UpdateAlbum(c.Request.Context(), id, req.toUpdate())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, album)
}

// DeleteAlbum deletes an empty album
func (h *HTTPHandler) DeleteAlbum(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.albums.DeleteAlbum(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPhotos lists the photos of an album
func (h *HTTPHandler) ListPhotos(c *gin.Context) {
	albumID, ok := pathID(c, "albumId")
	if !ok {
		return
	}
	var params pagination.Params
	if err := c.ShouldBindQuery(&params); err != nil {
		bindError(c, err)
		return
	}
	page, err := h.photos.ListPhotos(c.Request.Context(), albumID, params)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetPhoto returns one photo
func (h *HTTPHandler) GetPhoto(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	photo, err := h.photos.GetPhoto(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, photo)
}

// CreatePhoto accepts a multipart upload with the image in the "file" field
func (h *HTTPHandler) CreatePhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxRequestBody)

	var form CreatePhotoForm
	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			_ = c.Error(errors.BadRequest(h.tooLargeMessage()))
			return
		}
		bindError(c, err)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		_ = c.Error(errors.BadRequest("image file is required"))
		return
	}
	upload, err := h.readUpload(file)
	if err != nil {
		_ = c.Error(err)
		return
	}

	photo, err := h.photos.CreatePhoto(c.Request.Context(), service.CreatePhotoInput{
		AlbumID:     uuid.MustParse(form.AlbumID),
		Title:       form.Title,
		Description: form.description(),
		AcquireAt:   form.acquireAt(),
	}, upload)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, photo)
}

func (h *HTTPHandler) readUpload(file *multipart.FileHeader) (service.Upload, error) {
	if file.Size > h.maxUploadSize {
		return service.Upload{}, errors.BadRequest(h.tooLargeMessage())
	}
	f, err := file.Open()
	if err != nil {
		h.logger.Error("Failed to open upload", interfaces.Error(err))
		return service.Upload{}, errors.Wrap(errors.ErrorTypeInternal, "failed to open upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadSize+1))
	if err != nil {
		return service.Upload{}, errors.Wrap(errors.ErrorTypeInternal, "failed to read upload", err)
	}
	if int64(len(data)) > h.maxUploadSize {
		return service.Upload{}, errors.BadRequest(h.tooLargeMessage())
	}
	return service.Upload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *HTTPHandler) tooLargeMessage() string {
	return fmt.Sprintf("file exceeds the maximum size of %d bytes", h.maxUploadSize)
}

// UpdatePhoto applies a partial update to a photo
func (h *HTTPHandler) UpdatePhoto(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdatePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	photo, err := h.photos.UpdatePhoto(c.Request.Context(), id, req.toUpdate())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, photo)
}

// DeletePhoto deletes a photo
func (h *HTTPHandler) DeletePhoto(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.photos.DeletePhoto(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
