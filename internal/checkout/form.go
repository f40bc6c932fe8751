package checkout

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"storefront/internal/domain"
)

// MaxProofBytes bounds the payment-proof attachment.
const MaxProofBytes = 5 << 20

var allowedProofTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"application/pdf": true,
}

// Form is the shipping and payment data entered at checkout.
type Form struct {
	Name                 string               `json:"name" validate:"required,max=120"`
	Email                string               `json:"email" validate:"required,email"`
	Phone                string               `json:"phone" validate:"required,phone"`
	Address              string               `json:"address" validate:"required,max=255"`
	City                 string               `json:"city" validate:"required,max=120"`
	Zip                  string               `json:"zip" validate:"required,zip"`
	PaymentMethod        string               `json:"paymentMethod" validate:"omitempty,oneof=bank_transfer mobile_money cash_on_delivery"`
	TransactionReference string               `json:"transactionReference" validate:"required,max=64"`
	Notes                string               `json:"notes" validate:"max=1000"`
	PaymentProof         *domain.PaymentProof `json:"paymentProof" validate:"required,proof"`
}

// Validation is the outcome of checking a Form. Errors is keyed by the JSON
// field name.
type Validation struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{5,18}[0-9]$`)
	zipPattern   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 -]{1,8}[A-Za-z0-9]$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("zip", func(fl validator.FieldLevel) bool {
		return zipPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("proof", func(fl validator.FieldLevel) bool {
		var p domain.PaymentProof
		switch v := fl.Field().Interface().(type) {
		case domain.PaymentProof:
			p = v
		case *domain.PaymentProof:
			if v == nil {
				return false
			}
			p = *v
		default:
			return false
		}
		return len(p.Data) > 0 && len(p.Data) <= MaxProofBytes && allowedProofTypes[p.ContentType]
	})
	return v
}

// Validate checks required fields and formats. It performs no I/O.
func Validate(f Form) Validation {
	f = f.normalized()
	err := validate.Struct(f)
	if err == nil {
		return Validation{Valid: true}
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return Validation{Errors: map[string]string{"form": err.Error()}}
	}
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = message(fe)
		}
	}
	return Validation{Errors: out}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "paymentProof" {
			return "payment proof attachment is required"
		}
		return fe.Field() + " is required"
	case "email":
		return "enter a valid email address"
	case "phone":
		return "enter a valid phone number"
	case "zip":
		return "enter a valid postal code"
	case "proof":
		return "attach a PNG, JPEG, WEBP or PDF file up to 5 MB"
	case "oneof":
		return "unsupported payment method"
	case "max":
		return fe.Field() + " is too long"
	default:
		return fe.Field() + " is invalid"
	}
}

func (f Form) normalized() Form {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = strings.TrimSpace(f.Address)
	f.City = strings.TrimSpace(f.City)
	f.Zip = strings.TrimSpace(f.Zip)
	f.TransactionReference = strings.TrimSpace(f.TransactionReference)
	f.PaymentMethod = strings.TrimSpace(f.PaymentMethod)
	return f
}

func (f Form) address() domain.Address {
	return domain.Address{
		Name:    f.Name,
		Email:   f.Email,
		Phone:   f.Phone,
		Address: f.Address,
		City:    f.City,
		Zip:     f.Zip,
	}
}
