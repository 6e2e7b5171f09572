package v1

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"consultancy-backend/internal/delivery/http/response"
	"consultancy-backend/internal/domain"
	"consultancy-backend/internal/usecase"
	"consultancy-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 64 << 10

type procedure struct {
	method  string
	handler gin.HandlerFunc
}

// TRPCHandler serves the procedures the site's RPC client calls under /api/trpc.
type TRPCHandler struct {
	contactUC  domain.ContactUsecase
	healthUC   usecase.HealthUsecase
	procedures map[string]procedure
}

// NewTRPCHandler registers /api/trpc/:procedure.
func NewTRPCHandler(r *gin.Engine, contactUC domain.ContactUsecase, healthUC usecase.HealthUsecase, limit gin.HandlerFunc) {
	h := &TRPCHandler{contactUC: contactUC, healthUC: healthUC}
	h.procedures = map[string]procedure{
		"contact.submit": {method: http.MethodPost, handler: h.submitContact},
		"system.health":  {method: http.MethodGet, handler: h.systemHealth},
	}

	group := r.Group("/api/trpc")
	group.Use(h.resolve)
	group.POST("/:procedure", chain(h.limitMutations(limit), h.dispatch)...)
	group.GET("/:procedure", h.dispatch)
}

// resolve tags the request so errors from any later handler use the RPC envelope.
func (h *TRPCHandler) resolve(c *gin.Context) {
	c.Set(response.TRPCPathKey, c.Param("procedure"))
	c.Set(response.TRPCBatchKey, c.Query("batch") == "1")
	c.Next()
}

func (h *TRPCHandler) limitMutations(limit gin.HandlerFunc) gin.HandlerFunc {
	if limit == nil {
		return nil
	}
	return func(c *gin.Context) {
		if p, ok := h.procedures[c.Param("procedure")]; ok && p.method == http.MethodPost {
			limit(c)
			return
		}
		c.Next()
	}
}

func (h *TRPCHandler) dispatch(c *gin.Context) {
	name := c.Param("procedure")
	if strings.Contains(name, ",") {
		_ = c.Error(apperror.BadRequest("Batching multiple procedures is not supported"))
		return
	}

	p, ok := h.procedures[name]
	if !ok {
		_ = c.Error(apperror.NotFound(`No procedure found on path "` + name + `"`))
		return
	}
	if p.method != c.Request.Method {
		_ = c.Error(apperror.New(http.StatusMethodNotAllowed, "Unsupported method for procedure "+name, nil))
		return
	}
	p.handler(c)
}

// submitContact is the RPC variant of POST /v1/contact, served outside the /v1 swagger base.
// It accepts the raw input or {"json": input}.
func (h *TRPCHandler) submitContact(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		_ = c.Error(apperror.Validation("Invalid request body", nil))
		return
	}

	input, err := decodeRPCInput(raw, c.GetBool(response.TRPCBatchKey))
	if err != nil {
		_ = c.Error(apperror.Validation("Invalid request body", nil))
		return
	}

	var req domain.SubmissionRequest
	if len(input) > 0 {
		dec := json.NewDecoder(bytes.NewReader(input))
		if err := dec.Decode(&req); err != nil {
			_ = c.Error(apperror.Validation("Invalid request body", nil))
			return
		}
	}

	res, err := h.contactUC.Submit(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.TRPCSuccess(c, res)
}

func (h *TRPCHandler) systemHealth(c *gin.Context) {
	response.TRPCSuccess(c, h.healthUC.Check(c.Request.Context()))
}

// decodeRPCInput unwraps the optional batch index and serializer envelope around the input.
func decodeRPCInput(raw []byte, batch bool) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	if batch {
		var indexed map[string]json.RawMessage
		if err := json.Unmarshal(raw, &indexed); err != nil {
			return nil, err
		}
		raw = indexed["0"]
		if len(raw) == 0 {
			return nil, nil
		}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	if inner, ok := envelope["json"]; ok && isEnvelope(envelope) {
		return inner, nil
	}
	return raw, nil
}

func isEnvelope(m map[string]json.RawMessage) bool {
	for k := range m {
		if k != "json" && k != "meta" {
			return false
		}
	}
	return true
}
