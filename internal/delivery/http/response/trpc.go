package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TRPCPathKey marks a request as served by an RPC procedure so errors are rendered in its envelope.
const TRPCPathKey = "TRPCPath"

// TRPCBatchKey marks a batched call; bodies are then wrapped in a one-element array.
const TRPCBatchKey = "TRPCBatch"

var rpcCodes = map[string]int{
	"BAD_REQUEST":           -32600,
	"NOT_FOUND":             -32004,
	"METHOD_NOT_SUPPORTED":  -32005,
	"TOO_MANY_REQUESTS":     -32029,
	"SERVICE_UNAVAILABLE":   -32603,
	"INTERNAL_SERVER_ERROR": -32603,
}

type trpcResult struct {
	Result trpcData `json:"result"`
}

type trpcData struct {
	Data trpcJSON `json:"data"`
}

type trpcJSON struct {
	JSON interface{} `json:"json"`
}

type trpcFailure struct {
	Error trpcJSON `json:"error"`
}

// TRPCErrorShape is the error object clients of the RPC surface decode.
type TRPCErrorShape struct {
	Message string        `json:"message"`
	Code    int           `json:"code"`
	Data    TRPCErrorData `json:"data"`
}

type TRPCErrorData struct {
	Code       string      `json:"code"`
	HTTPStatus int         `json:"httpStatus"`
	Path       string      `json:"path,omitempty"`
	Kind       string      `json:"kind,omitempty"`
	Violations interface{} `json:"violations,omitempty"`
}

// TRPCSuccess writes {"result":{"data":{"json":data}}}.
func TRPCSuccess(c *gin.Context, data interface{}) {
	writeTRPC(c, http.StatusOK, trpcResult{Result: trpcData{Data: trpcJSON{JSON: data}}})
}

func writeTRPC(c *gin.Context, status int, body interface{}) {
	if c.GetBool(TRPCBatchKey) {
		c.JSON(status, []interface{}{body})
		return
	}
	c.JSON(status, body)
}

// TRPCError writes {"error":{"json":{message,code,data}}}.
func TRPCError(c *gin.Context, status int, statusText, message, kind string, violations interface{}) {
	rpcCode, ok := rpcCodes[statusText]
	if !ok {
		rpcCode = rpcCodes["INTERNAL_SERVER_ERROR"]
	}
	writeTRPC(c, status, trpcFailure{Error: trpcJSON{JSON: TRPCErrorShape{
		Message: message,
		Code:    rpcCode,
		Data: TRPCErrorData{
			Code:       statusText,
			HTTPStatus: status,
			Path:       c.GetString(TRPCPathKey),
			Kind:       kind,
			Violations: violations,
		},
	}}})
}
