package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mcoot/teamprogress/internal/api/apierr"
)

// maxBodyBytes bounds request bodies; graph uploads are the largest
const maxBodyBytes = 8 << 20

// decode reads a JSON body into v. An empty body leaves v untouched
// when allowEmpty is set.
func decode(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		return apierr.NewInvalidRequestError("invalid request body")
	}
	return nil
}
