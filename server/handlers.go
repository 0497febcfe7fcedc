package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SamuelRCrider/piiguard-go/core"
	"github.com/SamuelRCrider/piiguard-go/utils"
)

const (
	correlationHeader  = "X-Correlation-ID"
	maxInspectBodySize = 10 << 20
)

// ScanRequest is the payload of POST /v1/scan
type ScanRequest struct {
	Body          json.RawMessage `json:"body"`
	DataSource    string          `json:"data_source"`
	CorrelationID string          `json:"correlation_id"`
}

// EnforceRequest is the payload of POST /v1/enforce
type EnforceRequest struct {
	Body       json.RawMessage   `json:"body"`
	Violations []utils.Violation `json:"violations" binding:"dive"`
	Context    string            `json:"context" binding:"omitempty,oneof=request response test"`
}

// HealthCheck reports liveness
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleScan scans a body and returns its violations
func HandleScan(guard *core.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if isEmptyBody(req.Body) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body is required"})
			return
		}
		if req.DataSource == "" {
			req.DataSource = core.DirectionRequest.DataSource()
		}

		violations := guard.ScanObject(core.DecodeBody(req.Body), req.DataSource, req.CorrelationID)
		if violations == nil {
			violations = []utils.Violation{}
		}
		c.JSON(http.StatusOK, gin.H{"violations": violations})
	}
}

// HandleEnforce applies enforcement to a body and a violation list
func HandleEnforce(guard *core.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EnforceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Context == "" {
			req.Context = "test"
		}

		var body any
		if !isEmptyBody(req.Body) {
			body = core.DecodeBody(req.Body)
		}
		c.JSON(http.StatusOK, guard.ApplyEnforcement(body, req.Violations, req.Context))
	}
}

// HandleInspect treats the raw request body as the payload to inspect.
// A blocked payload is answered with 403 and the full inspection.
func HandleInspect(guard *core.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		direction := core.Direction(c.Param("direction"))
		if direction != core.DirectionRequest && direction != core.DirectionResponse {
			c.JSON(http.StatusNotFound, gin.H{"error": "direction must be request or response"})
			return
		}

		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxInspectBodySize+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if len(raw) > maxInspectBodySize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
			return
		}

		inspection := guard.Inspect(core.DecodeBody(raw), direction, c.GetHeader(correlationHeader))
		c.Header(correlationHeader, inspection.CorrelationID)

		status := http.StatusOK
		if inspection.Result.Blocked() {
			status = http.StatusForbidden
		}
		c.JSON(status, inspection)
	}
}

// HandleStats reports the loaded policy
func HandleStats(guard *core.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, guard.Stats())
	}
}

// HandleReload re-reads the policy file the server was started with. The
// request body is ignored; callers cannot point the server at another file.
// Failure details go to the log, not the response.
func HandleReload(guard *core.Guard, policyPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if policyPath == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no policy path configured"})
			return
		}

		if err := guard.Reload(policyPath); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  "policy reload failed, current policy kept",
				"policy": guard.Stats(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "reloaded", "policy": guard.Stats()})
	}
}

// HandleRecentAudit returns the newest audit records, ?limit=n (default 50)
func HandleRecentAudit(guard *core.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		records := []core.AuditRecord{}
		if audit := guard.Audit(); audit != nil {
			records = append(records, audit.Recent(limit)...)
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	}
}

func isEmptyBody(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
