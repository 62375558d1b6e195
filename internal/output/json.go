package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/harshit-mishr/sky-scrapper/internal/core"
)

var Writer io.Writer = os.Stdout

func JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	_, err = fmt.Fprintln(Writer, string(data))
	return err
}

func JSONCompact(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	_, err = fmt.Fprintln(Writer, string(data))
	return err
}

type ErrorResponse struct {
	Error   string         `json:"error"`
	Kind    core.ErrorKind `json:"kind,omitempty"`
	Details string         `json:"details,omitempty"`
}

func JSONError(msg string, details string) {
	_ = JSON(ErrorResponse{Error: msg, Details: details})
}

// JSONSearchError writes err with its category message and kind.
func JSONSearchError(err error) {
	resp := ErrorResponse{Error: core.UserMessage(err), Details: err.Error()}
	for _, k := range []core.ErrorKind{
		core.KindMissingCredentials, core.KindInvalidParams, core.KindAuth, core.KindForbidden,
		core.KindRateLimited, core.KindNetwork, core.KindUpstream, core.KindNoProviders,
	} {
		if core.IsKind(err, k) {
			resp.Kind = k
			break
		}
	}
	_ = JSON(resp)
}
