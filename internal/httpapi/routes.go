package httpapi

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"

	"github.com/ppiankov/promptguard/internal/model"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.GET("/health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.POST("/check/input").
			To(handler.CheckInput).
			Doc("Validate a user query").
			Metadata(restfulspec.KeyOpenAPITags, []string{"check"}).
			Reads(CheckInputRequest{}).
			Writes(model.InputResult{}).
			Returns(200, "OK", model.InputResult{}).
			Returns(400, "Bad Request", ErrorResponse{}))

	ws.
		Route(ws.POST("/check/output").
			To(handler.CheckOutput).
			Doc("Validate a model response and apply the violation action").
			Metadata(restfulspec.KeyOpenAPITags, []string{"check"}).
			Reads(CheckOutputRequest{}).
			Writes(model.OutputResult{}).
			Returns(200, "OK", model.OutputResult{}).
			Returns(400, "Bad Request", ErrorResponse{}))

	ws.
		Route(ws.GET("/stats").
			To(handler.Stats).
			Doc("Aggregate counts over the event log").
			Metadata(restfulspec.KeyOpenAPITags, []string{"events"}).
			Writes(model.Stats{}).
			Returns(200, "OK", model.Stats{}))

	ws.
		Route(ws.GET("/events").
			To(handler.Events).
			Doc("List logged safety events, oldest first").
			Metadata(restfulspec.KeyOpenAPITags, []string{"events"}).
			Param(ws.QueryParameter("direction", "Filter by direction (input, output)").DataType("string").Required(false)).
			Param(ws.QueryParameter("limit", "Return only the most recent N events").DataType("integer").Required(false)).
			Writes(EventsResponse{}).
			Returns(200, "OK", EventsResponse{}).
			Returns(400, "Bad Request", ErrorResponse{}))

	ws.
		Route(ws.DELETE("/events").
			To(handler.ClearEvents).
			Doc("Clear the event log").
			Metadata(restfulspec.KeyOpenAPITags, []string{"events"}).
			Writes(ClearResponse{}).
			Returns(200, "OK", ClearResponse{}))

	container.Add(ws)
}
