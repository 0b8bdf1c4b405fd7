package projects

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/good-yellow-bee/projtrack/internal/models"
)

// maxBodyBytes caps request bodies for project endpoints.
const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON value from the request body.
// Unknown fields are ignored so clients may send back a fetched record.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body too large")
		case errors.Is(err, io.EOF):
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid request body: %s", describeJSONError(err))
	}
	return nil
}

func describeJSONError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("field %s has the wrong type", typeErr.Field)
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && strings.HasPrefix(msg, "parsing time") {
		return msg[i+2:]
	}
	return msg
}

// titleItem accepts the project id as "id" or the document-store "_id".
type titleItem struct {
	ID       string               `json:"id"`
	LegacyID string               `json:"_id"`
	Title    string               `json:"title"`
	Status   models.ProjectStatus `json:"status"`
}

// BatchTitlesRequest is the body of a batch title update.
type BatchTitlesRequest struct {
	Titles []titleItem `json:"titles"`
}

// Updates converts the request into title updates, preserving order.
func (r *BatchTitlesRequest) Updates() []models.TitleUpdate {
	updates := make([]models.TitleUpdate, 0, len(r.Titles))
	for _, item := range r.Titles {
		id := item.ID
		if id == "" {
			id = item.LegacyID
		}
		updates = append(updates, models.TitleUpdate{ID: id, Title: item.Title, Status: item.Status})
	}
	return updates
}
