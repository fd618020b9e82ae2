package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/haleth/cardchat/internal/errors"
)

// decodeJSON decodes and validates a JSON request body. When optional is
// true an empty body leaves v at its zero value, which still has to pass
// validation.
func (s *Server) decodeJSON(r *http.Request, v any, optional bool) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return s.validateStruct(v)
		}
		return apperrors.NewBadRequestError("invalid JSON body")
	}
	return s.validateStruct(v)
}

func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperrors.NewValidationError(fe.Field(), "failed on the '"+fe.Tag()+"' rule")
	}
	return apperrors.NewBadRequestError("invalid request body")
}
