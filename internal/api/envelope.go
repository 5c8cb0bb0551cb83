package api

import (
	"net/http"
	"reflect"
)

// Envelope status values.
const (
	StatusOK     = 0
	StatusFailed = 1
)

// Envelope is the body of every non-streaming endpoint.
//
// Exactly one of Error and Data is non-nil: Data on success, Error on
// failure. Both keys are always present in the JSON, the absent one as null.
type Envelope[T any] struct {
	Status int     `json:"status"`
	Error  *string `json:"error"`
	Data   *T      `json:"data"`
}

// Success wraps data. Nil slices and maps become empty so that a
// successful envelope never carries a null data field.
func Success[T any](data T) Envelope[T] {
	data = emptyIfNil(data)
	return Envelope[T]{Status: StatusOK, Data: &data}
}

// Failure wraps an error message.
func Failure(message string) Envelope[any] {
	return Envelope[any]{Status: StatusFailed, Error: &message}
}

// writeEnvelope writes the envelope for result/err with HTTP 200.
func writeEnvelope[T any](w http.ResponseWriter, result T, err error) {
	if err != nil {
		writeJSON(w, http.StatusOK, Failure(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Success(result))
}

func emptyIfNil[T any](v T) T {
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			rv.Set(reflect.MakeSlice(rv.Type(), 0, 0))
		}
	case reflect.Map:
		if rv.IsNil() {
			rv.Set(reflect.MakeMap(rv.Type()))
		}
	}
	return v
}
