package httpapi

import (
	"fmt"

	"github.com/emicklei/go-restful/v3"

	"github.com/ppiankov/promptguard/internal/model"
)

func errBadDirection(d model.Direction) error {
	return fmt.Errorf("invalid direction %q (want input or output)", d)
}

func errBadLimit(raw string) error {
	return fmt.Errorf("invalid limit %q", raw)
}

func writeError(resp *restful.Response, status int, err error) {
	_ = resp.WriteHeaderAndEntity(status, ErrorResponse{Error: err.Error()})
}
