package postmon_api

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

const (
	formatJSON  = "json"
	formatJSONP = "jsonp"
	formatXML   = "xml"

	defaultJSONPCallback = "callback"

	// Address and reference answers are safe to cache for 30 days; the
	// store's own freshness window is much longer than that. Tracking
	// responses are never cached.
	successCacheControl = "public, max-age=2592000"
)

var errBadFormat = errors.New("formato inválido")

// negotiate picks the response encoding from the query string. A bare
// callback parameter implies jsonp, matching how the API has always
// been consumed from browsers.
func negotiate(r *http.Request) (format, jsonpCallback string, err error) {
	q := r.URL.Query()
	format = q.Get("format")
	jsonpCallback = q.Get("callback")

	if format == "" {
		if jsonpCallback != "" {
			format = formatJSONP
		} else {
			format = formatJSON
		}
	}

	switch format {
	case formatJSON, formatXML:
		return format, "", nil
	case formatJSONP:
		if jsonpCallback == "" {
			jsonpCallback = defaultJSONPCallback
		}
		return format, jsonpCallback, nil
	default:
		return "", "", errBadFormat
	}
}

func render(w http.ResponseWriter, r *http.Request, status int, v any) {
	format, jsonpCallback, err := negotiate(r)
	if err != nil {
		writeBody(w, http.StatusBadRequest, "application/json; charset=utf-8",
			[]byte(`{"message":"formato inválido"}`))
		return
	}

	var contentType string
	var body []byte
	switch format {
	case formatXML:
		contentType = "application/xml; charset=utf-8"
		body, err = xml.Marshal(v)
		if err == nil {
			body = append([]byte(xml.Header), body...)
		}
	case formatJSONP:
		contentType = "application/javascript; charset=utf-8"
		body, err = json.Marshal(v)
		if err == nil {
			body = []byte(fmt.Sprintf("%s(%s);", jsonpCallback, body))
		}
	default:
		contentType = "application/json; charset=utf-8"
		body, err = json.Marshal(v)
	}
	if err != nil {
		writeBody(w, http.StatusInternalServerError, "application/json; charset=utf-8",
			[]byte(`{"message":"erro interno"}`))
		return
	}

	writeBody(w, status, contentType, body)
}

func writeBody(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

type apiError struct {
	XMLName xml.Name `json:"-" xml:"result"`
	Message string   `json:"message" xml:"message"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render(w, r, status, apiError{Message: msg})
}
