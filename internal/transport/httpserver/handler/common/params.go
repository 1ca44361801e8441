package common

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// OptionalNullableString tells an omitted field apart from an explicit null.
type OptionalNullableString struct {
	Set   bool
	Value *string
}

func (o *OptionalNullableString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}

	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	o.Value = &value
	return nil
}

// URLParam returns the trimmed chi route parameter, writing a 400 when it
// is empty.
func URLParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := strings.TrimSpace(chi.URLParam(r, name))
	if value == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", name+" is required")
		return "", false
	}
	return value, true
}

func ParseDateRequired(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	return time.Parse(time.DateOnly, value)
}

func ParseDateParam(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	parsed, err := ParseDateRequired(*value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
