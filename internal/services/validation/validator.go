package validation

import (
	"errors"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"weather-proxy/internal/models"
)

// datePattern is purely lexical: 2024-02-30 and 2024-13-99 both pass and
// upstream decides whether the date exists.
var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// decimalPattern accepts plain decimal and exponent notation plus nan and
// inf spellings. Hex floats and digit separators are rejected.
var decimalPattern = regexp.MustCompile(`^[+-]?(?:(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?|(?i:nan|inf|infinity))$`)

// RawQuery holds the inbound parameters as received. Hourly and Current
// carry every occurrence of the parameter, each possibly comma separated.
type RawQuery struct {
	Latitude  string   `json:"latitude" validate:"required,decimal"`
	Longitude string   `json:"longitude" validate:"required,decimal"`
	StartDate string   `json:"start_date" validate:"omitempty,ymd"`
	EndDate   string   `json:"end_date" validate:"omitempty,ymd"`
	Hourly    []string `json:"hourly"`
	Current   []string `json:"current"`
}

type coordinates struct {
	Latitude  float64 `json:"latitude" validate:"finite,min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"finite,min=-180,max=180"`
}

// Validator turns a RawQuery into a models.Query. It holds no per-request
// state and is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return jsonName(fld.Tag.Get("json"))
	})
	_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
		return datePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
		return decimalPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})

	return &Validator{v: v}
}

// Validate checks raw and returns the normalized query or a
// *models.ValidationError naming the first offending parameter.
func (val *Validator) Validate(raw RawQuery) (models.Query, error) {
	if err := val.v.Struct(raw); err != nil {
		return models.Query{}, toValidationError(err)
	}

	lat, err := parseFloat("latitude", raw.Latitude)
	if err != nil {
		return models.Query{}, err
	}
	lon, err := parseFloat("longitude", raw.Longitude)
	if err != nil {
		return models.Query{}, err
	}

	if err := val.v.Struct(coordinates{Latitude: lat, Longitude: lon}); err != nil {
		return models.Query{}, toValidationError(err)
	}

	return models.Query{
		Latitude:  lat,
		Longitude: lon,
		StartDate: raw.StartDate,
		EndDate:   raw.EndDate,
		Hourly:    SplitVariables(raw.Hourly),
		Current:   SplitVariables(raw.Current),
	}, nil
}

// SplitVariables splits each value on "," and keeps the tokens verbatim,
// dropping only empty ones. The result is nil when nothing remains.
func SplitVariables(values []string) []string {
	var out []string
	for _, v := range values {
		for _, token := range strings.Split(v, ",") {
			if token != "" {
				out = append(out, token)
			}
		}
	}
	return out
}

func parseFloat(field, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, &models.ValidationError{Field: field, Reason: models.ReasonOutOfDomain}
		}
		return 0, &models.ValidationError{Field: field, Reason: models.ReasonInvalidNumber}
	}
	return f, nil
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &models.ValidationError{Field: "query", Reason: err.Error()}
	}

	fe := fieldErrs[0]
	reason := models.ReasonOutOfDomain
	switch fe.Tag() {
	case "required":
		reason = models.ReasonMissing
	case "decimal":
		reason = models.ReasonInvalidNumber
	case "ymd":
		reason = models.ReasonMalformedDate
	}

	return &models.ValidationError{Field: fe.Field(), Reason: reason}
}

func jsonName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}
