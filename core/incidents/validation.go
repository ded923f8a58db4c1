package incidents

import (
	"errors"
	"reflect"
	"strings"

	"watchpost/core/geo"

	"github.com/go-playground/validator/v10"
)

// SubmitRequest is a public incident report. Coordinates are optional; when
// both are absent the location is geocoded before anything is stored.
type SubmitRequest struct {
	Title       string   `json:"title" validate:"notblank,max=100"`
	Description string   `json:"description" validate:"notblank"`
	Location    string   `json:"location" validate:"notblank,max=1000"`
	Lat         *float64 `json:"lat" validate:"omitempty,lat"`
	Lng         *float64 `json:"lng" validate:"omitempty,lng"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(reflect.Indirect(fl.Field()).String()) != ""
	})
	_ = v.RegisterValidation("lat", func(fl validator.FieldLevel) bool {
		return geo.ValidLat(reflect.Indirect(fl.Field()).Float())
	})
	_ = v.RegisterValidation("lng", func(fl validator.FieldLevel) bool {
		return geo.ValidLng(reflect.Indirect(fl.Field()).Float())
	})
	return v
}

func (r *SubmitRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
}

func (r *SubmitRequest) Validate() error {
	r.normalize()
	fields := map[string]string{}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	if (r.Lat == nil) != (r.Lng == nil) {
		if r.Lat == nil {
			fields["lat"] = "required_with"
		} else {
			fields["lng"] = "required_with"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (r *SubmitRequest) HasCoordinates() bool {
	return r.Lat != nil && r.Lng != nil
}
