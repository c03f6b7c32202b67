package handler

import (
	"carrental/internal/cars/service"
	"carrental/internal/cars/storage"
	"carrental/pkg/auth"
	apperrors "carrental/pkg/errors"
	httputil "carrental/pkg/http"
	"carrental/pkg/logger"
	"carrental/pkg/middleware"
	"carrental/pkg/model"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

const (
	imagesField     = "images"
	multipartMemory = 8 << 20
)

type CarHandler struct {
	service service.CarService
	guard   *middleware.Guard
	log     *logger.Logger
}

func NewCarHandler(service service.CarService, guard *middleware.Guard, log *logger.Logger) *CarHandler {
	return &CarHandler{
		service: service,
		guard:   guard,
		log:     log,
	}
}

func (h *CarHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var car model.Car
	if err := httputil.DecodeJSON(r, &car); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	car.ID = ""

	if err := h.service.Create(r.Context(), auth.ActorFrom(r.Context()), &car); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, car); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *CarHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	car, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, car); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CarHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter, limit, offset, err := parseCarQuery(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	cars, total, err := h.service.GetAll(r.Context(), filter, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, cars, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func parseCarQuery(r *http.Request) (model.CarFilter, int, int64, error) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		return model.CarFilter{}, 0, 0, err
	}

	query := r.URL.Query()
	filter := model.CarFilter{
		Status: query.Get("status"),
		Make:   query.Get("make"),
		Model:  query.Get("model"),
	}
	if filter.MinPrice, err = httputil.ParseOptionalFloat(r, "min_price"); err != nil {
		return model.CarFilter{}, 0, 0, err
	}
	if filter.MaxPrice, err = httputil.ParseOptionalFloat(r, "max_price"); err != nil {
		return model.CarFilter{}, 0, 0, err
	}
	return filter, limit, offset, nil
}

func (h *CarHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var updates model.CarUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	car, err := h.service.Update(r.Context(), auth.ActorFrom(r.Context()), id, &updates)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, car); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CarHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := h.service.Delete(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *CarHandler) UploadImages(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	images, closeAll, err := readImages(r)
	defer closeAll()
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UploadImages", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	car, err := h.service.AddImages(r.Context(), auth.ActorFrom(r.Context()), id, images)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UploadImages", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, car); err != nil {
		h.log.Error("failed to write success response", "handler", "UploadImages", "operation", "WriteSuccess", "error", err)
	}
}

// readImages opens every file in the images field and sniffs its content
// type. The returned func closes whatever was opened.
func readImages(r *http.Request) ([]storage.Image, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, closeAll, apperrors.New(apperrors.CodeBadRequest, "Upload too large", http.StatusRequestEntityTooLarge)
		}
		return nil, closeAll, apperrors.InvalidInput("Request must be multipart/form-data")
	}

	headers := r.MultipartForm.File[imagesField]
	if len(headers) == 0 {
		return nil, closeAll, apperrors.InvalidInput(fmt.Sprintf("no files in the %q field", imagesField))
	}

	images := make([]storage.Image, 0, len(headers))
	for _, fh := range headers {
		file, err := fh.Open()
		if err != nil {
			return nil, closeAll, apperrors.InvalidInput(fmt.Sprintf("cannot read %s", fh.Filename))
		}
		opened = append(opened, file)

		contentType, body, err := storage.Sniff(file)
		if err != nil {
			return nil, closeAll, apperrors.InvalidInput(fmt.Sprintf("cannot read %s", fh.Filename))
		}

		images = append(images, storage.Image{
			Name:        fh.Filename,
			ContentType: contentType,
			Size:        fh.Size,
			Body:        body,
		})
	}
	return images, closeAll, nil
}

func (h *CarHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/cars", h.GetAll)
	router.GET("/api/v1/cars/:id", h.GetByID)
	router.POST("/api/v1/cars", h.guard.Require(auth.CarsWrite, h.Create))
	router.PUT("/api/v1/cars/:id", h.guard.Require(auth.CarsWrite, h.Update))
	router.DELETE("/api/v1/cars/:id", h.guard.Require(auth.CarsWrite, h.Delete))
	router.POST("/api/v1/cars/:id/images", h.guard.Require(auth.CarsWrite, h.UploadImages))
}
