package search

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/scholar-search-service/internal/domain"
)

// Query parameter names accepted by ParseParams.
const (
	ParamQuery     = "q"
	ParamType      = "type"
	ParamLimit     = "limit"
	ParamPage      = "page"
	ParamCursor    = "cursor"
	ParamYearFrom  = "yearFrom"
	ParamYearTo    = "yearTo"
	ParamSort      = "sort"
	ParamProviders = "providers"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their public query parameter name.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseParams converts raw query values into validated SearchParams.
// Absent and empty values take their defaults. Every invalid field is
// reported in the returned domain.ValidationErrors.
//
// The length of q is checked as sent; surrounding whitespace is trimmed
// afterwards, and a query that is only whitespace counts as missing.
func ParseParams(values url.Values) (domain.SearchParams, error) {
	var errs domain.ValidationErrors

	params := domain.SearchParams{
		Query:     values.Get(ParamQuery),
		Type:      domain.DefaultType,
		Limit:     domain.DefaultLimit,
		Page:      domain.DefaultPage,
		Cursor:    strings.TrimSpace(values.Get(ParamCursor)),
		Sort:      domain.DefaultSortMode,
		Providers: domain.ParseProviderList(values.Get(ParamProviders)),
	}

	if v := strings.TrimSpace(values.Get(ParamType)); v != "" {
		params.Type = domain.ResultType(strings.ToLower(v))
	}
	if v := strings.TrimSpace(values.Get(ParamSort)); v != "" {
		params.Sort = domain.SortMode(strings.ToLower(v))
	}

	errs = parseInt(values, ParamLimit, &params.Limit, errs)
	errs = parseInt(values, ParamPage, &params.Page, errs)
	params.YearFrom, errs = parseOptionalInt(values, ParamYearFrom, errs)
	params.YearTo, errs = parseOptionalInt(values, ParamYearTo, errs)

	if err := ValidateParams(params); err != nil {
		var verrs domain.ValidationErrors
		if !errors.As(err, &verrs) {
			return domain.SearchParams{}, err
		}
		errs = append(errs, verrs...)
	}

	if params.Query != "" {
		params.Query = strings.TrimSpace(params.Query)
		if params.Query == "" && !hasField(errs, ParamQuery) {
			errs = errs.Add(ParamQuery, "is required")
		}
	}

	if len(errs) > 0 {
		return domain.SearchParams{}, errs
	}
	return params, nil
}

// ValidateParams checks already-typed params against the search schema.
func ValidateParams(params domain.SearchParams) error {
	var errs domain.ValidationErrors

	if err := validate.Struct(params); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validating search params: %w", err)
		}
		for _, fe := range fieldErrs {
			errs = errs.Add(fieldName(fe), fieldMessage(fe))
		}
	}

	if params.YearFrom != nil && params.YearTo != nil && *params.YearFrom > *params.YearTo {
		errs = errs.Add(ParamYearFrom, "must not be after yearTo")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func hasField(errs domain.ValidationErrors, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func parseInt(values url.Values, name string, dst *int, errs domain.ValidationErrors) domain.ValidationErrors {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return errs
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return errs.Add(name, "must be an integer")
	}
	*dst = n
	return errs
}

func parseOptionalInt(values url.Values, name string, errs domain.ValidationErrors) (*int, domain.ValidationErrors) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, errs
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errs.Add(name, "must be an integer")
	}
	return &n, errs
}

// fieldName strips the element index from dive errors, so "providers[2]"
// is reported as "providers".
func fieldName(fe validator.FieldError) string {
	name, _, _ := strings.Cut(fe.Field(), "[")
	return name
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		if strings.HasPrefix(fe.Field(), ParamProviders) {
			return fmt.Sprintf("unknown provider %q", fe.Value())
		}
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
