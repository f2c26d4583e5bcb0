package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hugo-lorenzo-mato/content-agency/internal/core"
)

const maxRequestBody = 1 << 20

// decodeRequest reads a JSON body into dst and checks its validate tags.
// An empty body is accepted when allowEmpty is set.
func (s *Server) decodeRequest(r *http.Request, dst interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return core.ErrValidation(core.CodeInvalidRequest, "invalid request body").WithCause(err)
		}
	}

	if err := s.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return core.ErrValidation(core.CodeInvalidRequest, "invalid request body").WithCause(err)
		}
		de := core.ErrValidation(core.CodeInvalidRequest, describeField(fieldErrs[0]))
		for _, fe := range fieldErrs {
			de.WithDetail(fe.Field(), fe.Tag())
		}
		return de
	}
	return nil
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}
