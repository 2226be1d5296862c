package server

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/jpalmerr/ethnode/internal/netif"
	"github.com/jpalmerr/ethnode/web"
)

const (
	contentTypeJSON = "application/json"
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var notFoundBody = []byte("Not Found\n")

// Response is a complete reply produced by [Dispatch].
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// hello is the /api/hello document. Field order is the wire order.
type hello struct {
	Eth             netif.State `json:"eth"`
	FramesReceived  uint64      `json:"frames_received"`
	FramesSent      uint64      `json:"frames_sent"`
	FramesDropped   uint64      `json:"frames_dropped"`
	InterfaceErrors uint64      `json:"interface_errors"`
}

// Dispatch routes path. It is total: every path gets a response.
func Dispatch(path string, snap netif.Snapshot) Response {
	switch path {
	case "/api/hello":
		return helloResponse(snap)
	case "/":
		return Response{Status: http.StatusOK, ContentType: contentTypeHTML, Body: web.Index}
	default:
		return Response{Status: http.StatusNotFound, ContentType: contentTypeText, Body: notFoundBody}
	}
}

func helloResponse(snap netif.Snapshot) Response {
	body, err := json.Marshal(hello{
		Eth:             snap.State,
		FramesReceived:  snap.Counters.Received,
		FramesSent:      snap.Counters.Sent,
		FramesDropped:   snap.Counters.Dropped,
		InterfaceErrors: snap.Counters.Errors,
	})
	if err != nil {
		// unreachable for a struct of integers
		return Response{Status: http.StatusInternalServerError, ContentType: contentTypeText, Body: []byte(err.Error() + "\n")}
	}
	return Response{Status: http.StatusOK, ContentType: contentTypeJSON, Body: append(body, '\n')}
}
