package storefront

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"storefront/internal/checkout"
	"storefront/internal/domain"
)

// maxCheckoutBody is the proof limit plus room for the text fields.
const maxCheckoutBody = checkout.MaxProofBytes + 1<<20

func (h *handlers) validateCheckout(c *gin.Context) {
	form, err := readCheckoutForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_input", err.Error()))
		return
	}
	c.JSON(http.StatusOK, checkout.Validate(form))
}

func (h *handlers) submitCheckout(c *gin.Context) {
	form, err := readCheckoutForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_input", err.Error()))
		return
	}
	sh := shopperFrom(c)
	res, err := sh.Checkout.Submit(c.Request.Context(), form)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, res.Receipt)
	case errors.Is(err, checkout.ErrInvalidForm):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "invalid_form",
			"message": err.Error(),
			"errors":  res.Validation.Errors,
		})
	default:
		h.writeError(c, err)
	}
}

// readCheckoutForm accepts either a multipart form with a paymentProof file
// part or a JSON body carrying the proof inline.
func readCheckoutForm(c *gin.Context) (checkout.Form, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCheckoutBody)

	var form checkout.Form
	if c.ContentType() == binding.MIMEJSON {
		if err := c.ShouldBindJSON(&form); err != nil {
			return form, errors.New("invalid body")
		}
		return form, nil
	}

	form = checkout.Form{
		Name:                 c.PostForm("name"),
		Email:                c.PostForm("email"),
		Phone:                c.PostForm("phone"),
		Address:              c.PostForm("address"),
		City:                 c.PostForm("city"),
		Zip:                  c.PostForm("zip"),
		PaymentMethod:        c.PostForm("paymentMethod"),
		TransactionReference: c.PostForm("transactionReference"),
		Notes:                c.PostForm("notes"),
	}
	fh, err := c.FormFile("paymentProof")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return form, nil
	case err != nil:
		return form, errors.New("unreadable upload")
	}

	f, err := fh.Open()
	if err != nil {
		return form, errors.New("unreadable upload")
	}
	defer f.Close()
	// One byte past the limit so the validator can reject oversized files.
	data, err := io.ReadAll(io.LimitReader(f, checkout.MaxProofBytes+1))
	if err != nil {
		return form, errors.New("unreadable upload")
	}

	contentType := fh.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	form.PaymentProof = &domain.PaymentProof{
		Filename:    filepath.Base(fh.Filename),
		ContentType: contentType,
		Data:        data,
	}
	return form, nil
}
