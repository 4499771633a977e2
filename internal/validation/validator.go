package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"orderdesk/internal/entity"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// messages keyed by "<json field>.<tag>".
var messages = map[string]string{
	"customer_name.notblank":  "Customer name is required",
	"phone.notblank":          "Phone number is required",
	"phone.phone10":           "Enter a valid 10-digit phone number",
	"email.basic_email":       "Enter a valid email address",
	"address.notblank":        "Address is required",
	"name.notblank":           "Item name is required",
	"quantity.gte":            "Quantity must be at least 1",
	"price.gte":               "Price must be 0 or positive",
	"shipping_charges.gte":    "Shipping charges must be 0 or positive",
	"sent_date.sent_date":     "Enter a valid date (YYYY-MM-DD)",
	"payment_amount.gte":      "Payment amount must be 0 or positive",
	"status.order_status":     "Status must be one of: pending, shipped, delivered, cancelled",
	"items.required":          "At least one item is required",
	"missing.required_fields": "Missing required fields: customer_name, phone, address",
}

type Validator struct {
	validate *validator.Validate
}

func New() (*Validator, error) {
	const op = "validation.New"

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]validator.Func{
		"notblank":     notBlank,
		"phone10":      phone10,
		"basic_email":  basicEmail,
		"sent_date":    sentDate,
		"order_status": orderStatus,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("%s: register %s: %w", op, tag, err)
		}
	}

	return &Validator{validate: v}, nil
}

// NormalizePhone strips everything but digits.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCustomer collects every failing customer field.
func (v *Validator) ValidateCustomer(in entity.CustomerDetails) entity.FieldErrors {
	errs := entity.FieldErrors{}
	v.collect(errs, "", v.validate.Struct(in))
	return errs
}

// ValidateItems checks each row independently. Keys are items[i].field.
func (v *Validator) ValidateItems(items []entity.OrderItem) entity.FieldErrors {
	errs := entity.FieldErrors{}
	if len(items) == 0 {
		errs.Add("items", messages["items.required"])
		return errs
	}

	for i := range items {
		v.collect(errs, "items["+strconv.Itoa(i)+"].", v.validate.Struct(items[i]))
	}
	return errs
}

func (v *Validator) ValidateShipping(in entity.ShippingDetails) entity.FieldErrors {
	errs := entity.FieldErrors{}
	v.collect(errs, "", v.validate.Struct(in))
	return errs
}

// ValidateForCreate is the server boundary check. Missing customer_name,
// phone or address is reported before an empty item list.
func (v *Validator) ValidateForCreate(in entity.OrderInput) error {
	missing := entity.FieldErrors{}
	for field, value := range map[string]string{
		"customer_name": in.CustomerName,
		"phone":         in.Phone,
		"address":       in.Address,
	} {
		if strings.TrimSpace(value) == "" {
			missing.Add(field, messages["missing.required_fields"])
		}
	}
	if len(missing) > 0 {
		return &entity.ValidationError{Reason: entity.ErrMissingRequiredFields, Fields: missing}
	}

	if len(in.Items) == 0 {
		return &entity.ValidationError{
			Reason: entity.ErrNoItems,
			Fields: entity.FieldErrors{"items": messages["items.required"]},
		}
	}

	return v.ValidateOrder(in)
}

// ValidateOrder runs every section and the order level fields.
func (v *Validator) ValidateOrder(in entity.OrderInput) error {
	errs := entity.FieldErrors{}
	v.collect(errs, "", v.validate.Struct(in))
	errs.Merge(v.ValidateItems(in.Items))

	return errs.Err()
}

func (v *Validator) collect(dst entity.FieldErrors, prefix string, err error) {
	if err == nil {
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		dst.Add(strings.TrimSuffix(prefix, "."), err.Error())
		return
	}

	for _, fe := range verrs {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s must satisfy '%s'", fe.Field(), fe.Tag())
		}
		dst.Add(prefix+fe.Field(), msg)
	}
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func phone10(fl validator.FieldLevel) bool {
	return len(NormalizePhone(fl.Field().String())) == 10
}

func basicEmail(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	return s == "" || emailPattern.MatchString(s)
}

func sentDate(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return true
	}
	_, err := entity.ParseDate(s)
	return err == nil
}

func orderStatus(fl validator.FieldLevel) bool {
	return entity.Status(fl.Field().String()).Valid()
}
