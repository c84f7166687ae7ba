package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/alextreichler/flowershop/internal/i18n"
	"github.com/alextreichler/flowershop/internal/imaging"
	"github.com/alextreichler/flowershop/internal/importer"
	"github.com/alextreichler/flowershop/internal/models"
	"github.com/alextreichler/flowershop/internal/store"
)

const maxUploadSize = 10 << 20 // 10MB

type productInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Price       int    `json:"price" validate:"gt=0"`
	Discount    int    `json:"discount" validate:"gte=0,lte=100"`
	ImageURL    string `json:"image_url" validate:"max=500"`
	Available   *bool  `json:"available"`
}

func (in productInput) apply(p *models.Product) {
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Discount = in.Discount
	p.ImageURL = in.ImageURL
	p.Available = in.Available == nil || *in.Available
}

type flowerInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Price       int    `json:"price" validate:"gt=0"`
	ImageURL    string `json:"image_url" validate:"max=500"`
	Available   *bool  `json:"available"`
}

func (in flowerInput) apply(f *models.Flower) {
	f.Name = in.Name
	f.Description = in.Description
	f.Price = in.Price
	f.ImageURL = in.ImageURL
	f.Available = in.Available == nil || *in.Available
}

// bind decodes and validates an admin payload, writing the error response
// itself when it fails.
func (h *AdminHandler) bind(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeJSON(r, dst); err != nil {
		respondWithError(w, http.StatusBadRequest, i18n.English, "error.invalid_request")
		return false
	}
	if err := h.Validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			respondWithJSON(w, http.StatusBadRequest, errorResponse{
				Error:  i18n.T("error.validation", i18n.English),
				Fields: fields,
			})
			return false
		}
		respondWithError(w, http.StatusBadRequest, i18n.English, "error.invalid_request")
		return false
	}
	return true
}

// storeFailure maps a store error to a response.
func storeFailure(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, i18n.English, "error.not_found")
		return
	}
	slog.Error(msg, "error", err)
	respondWithError(w, http.StatusInternalServerError, i18n.English, "error.server")
}

func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context(), false)
	if err != nil {
		storeFailure(w, err, "Failed to list products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *AdminHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, i18n.English, "error.invalid_request")
		return
	}
	p, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		storeFailure(w, err, "Failed to get product")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in productInput
	if !h.bind(w, r, &in) {
		return
	}
	p := &models.Product{}
	in.apply(p)
	if err := h.Store.CreateProduct(r.Context(), p); err != nil {
		storeFailure(w, err, "Failed to create product")
		return
	}
	slog.Info("Product created", "id", p.ID, "name", p.Name)
	respondWithJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, i18n.English, "error.invalid_request")
		return
	}
	var in productInput
	if !h.bind(w, r, &in) {
		return
	}
	p := &models.Product{ID: id}
	in.apply(p)
	if err := h.Store.UpdateProduct(r.Context(), p); err != nil {
		storeFailure(w, err, "Failed to update product")
		return
	}
	updated, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		storeFailure(w, err, "Failed to reload product")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, i18n.English, "error.invalid_request")
		return
	}
	if err := h.Store.DeleteProduct(r.Context(), id); err != nil {
		storeFailure(w, err, "Failed to delete product")
		return
	}
	slog.Info("Product deleted", "id", id)
	respondWithJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *AdminHandler) ListFlowers(w http.ResponseWriter, r *http.Request) {
	flowers, err := h.Store.ListFlowers(r.Context(), false)
	if err != nil {
		storeFailure(w, err, "Failed to list flowers")
		return
	}
	respondWithJSON(w, http.StatusOK, flowers)
}

func (h *AdminHandler) GetFlower(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, i18n.English, "error.invalid_request")
		return
	}
	f, err := h.Store.GetFlower(r.Context(), id)
	if err != nil {
		storeFailure(w, err, "Failed to get flower")
		return
	}
	respondWithJSON(w, http.StatusOK, f)
}

func (h *AdminHandler) CreateFlower(w http.ResponseWriter, r *http.Request) {
	var in flowerInput
	if !h.bind(w, r, &in) {
		return
	}
	f := &models.Flower{}
	in.apply(f)
	if err := h.Store.CreateFlower(r.Context(), f); err != nil {
		storeFailure(w, err, "Failed to create flower")
		return
	}
	slog.Info("Flower created", "id", f.ID, "name", f.Name)
	respondWithJSON(w, http.StatusCreated, f)
}

func (h *AdminHandler) UpdateFlower(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, i18n.English, "error.invalid_request")
		return
	}
	var in flowerInput
	if !h.bind(w, r, &in) {
		return
	}
	f := &models.Flower{ID: id}
	in.apply(f)
	if err := h.Store.UpdateFlower(r.Context(), f); err != nil {
		storeFailure(w, err, "Failed to update flower")
		return
	}
	updated, err := h.Store.GetFlower(r.Context(), id)
	if err != nil {
		storeFailure(w, err, "Failed to reload flower")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *AdminHandler) DeleteFlower(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, i18n.English, "error.invalid_request")
		return
	}
	if err := h.Store.DeleteFlower(r.Context(), id); err != nil {
		storeFailure(w, err, "Failed to delete flower")
		return
	}
	slog.Info("Flower deleted", "id", id)
	respondWithJSON(w, http.StatusOK, successResponse{Success: true})
}

// UploadImage stores the multipart "image" field and returns its URL.
func (h *AdminHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, _, err := r.FormFile("image")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: "Image file is required (max 10MB)."})
		return
	}
	defer file.Close()

	url, err := h.Uploads.Save(file)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedFormat) {
			respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: "Unsupported image format. Only PNG, JPEG and GIF are allowed."})
			return
		}
		if errors.Is(err, imaging.ErrTooLarge) {
			respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: "Image is too large. The longest side may be at most 10000 pixels."})
			return
		}
		slog.Error("Failed to store image", "error", err)
		respondWithError(w, http.StatusInternalServerError, i18n.English, "error.server")
		return
	}

	slog.Info("Image uploaded", "url", url)
	respondWithJSON(w, http.StatusCreated, map[string]string{"url": url})
}

type importResponse struct {
	Imported int                 `json:"imported"`
	Skipped  []importer.RowError `json:"skipped"`
}

// ImportProducts bulk-creates products from the multipart "file" xlsx.
func (h *AdminHandler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, _, err := r.FormFile("file")
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: "Spreadsheet file is required (max 10MB)."})
		return
	}
	defer file.Close()

	res, err := importer.ReadProducts(file)
	if err != nil {
		slog.Warn("Rejected product import", "error", err)
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid Excel file."})
		return
	}

	n, err := h.Store.ImportProducts(r.Context(), res.Products)
	if err != nil {
		storeFailure(w, err, "Failed to import products")
		return
	}

	slog.Info("Products imported", "imported", n, "skipped", len(res.Skipped))
	respondWithJSON(w, http.StatusOK, importResponse{Imported: n, Skipped: res.Skipped})
}
