package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mymonad/aura/pkg/aura"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

var errorStatus = map[aura.Error]int{
	aura.ErrNotRegistered:     http.StatusNotFound,
	aura.ErrNotFound:          http.StatusNotFound,
	aura.ErrInvalidCommitment: http.StatusBadRequest,
}

func writeError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	kind, ok := aura.KindOf(err)
	if ok {
		if mapped, found := errorStatus[kind]; found {
			code = mapped
		}
	}
	body := gin.H{"error": err.Error()}
	if ok {
		body["kind"] = string(kind)
	}
	c.JSON(code, body)
}

func badRequest(c *gin.Context, what string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + ": " + err.Error()})
}

func principalParam(c *gin.Context, name string) (aura.Principal, bool) {
	p, err := aura.ParsePrincipal(c.Param(name))
	if err != nil {
		badRequest(c, name, err)
		return aura.Principal{}, false
	}
	return p, true
}

func digestParam(c *gin.Context, name string) (aura.Digest, bool) {
	d, err := aura.ParseDigest(c.Param(name))
	if err != nil {
		badRequest(c, name, err)
		return aura.Digest{}, false
	}
	return d, true
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "paused": s.ledger.Paused()})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.ledger.Stats())
}

func (s *Server) profile(c *gin.Context) {
	p, ok := principalParam(c, "principal")
	if !ok {
		return
	}
	profile, err := s.ledger.Profile(p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) intent(c *gin.Context) {
	commitment, ok := digestParam(c, "commitment")
	if !ok {
		return
	}
	intent, err := s.ledger.Intent(commitment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}

func (s *Server) match(c *gin.Context) {
	id, ok := digestParam(c, "id")
	if !ok {
		return
	}
	match, err := s.ledger.Match(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, match)
}

func (s *Server) revealRecords(c *gin.Context) {
	revealer, ok := principalParam(c, "revealer")
	if !ok {
		return
	}
	records := s.ledger.RevealRecords(revealer)
	if records == nil {
		records = []aura.RevealRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (s *Server) hasRevealed(c *gin.Context) {
	revealer, ok := principalParam(c, "revealer")
	if !ok {
		return
	}
	counterpart, ok := principalParam(c, "counterpart")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"revealed": s.ledger.HasRevealed(revealer, counterpart)})
}

func (s *Server) listEvents(c *gin.Context) {
	var principal aura.Principal
	if raw := c.Query("principal"); raw != "" {
		p, err := aura.ParsePrincipal(raw)
		if err != nil {
			badRequest(c, "principal", err)
			return
		}
		principal = p
	}

	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := s.events.List(c.Request.Context(), principal, limit)
	if err != nil {
		s.logger.Error("failed to list events", "error", err)
		writeError(c, err)
		return
	}
	if events == nil {
		events = []aura.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) matchedWith(c *gin.Context) {
	p, ok := principalParam(c, "principal")
	if !ok {
		return
	}
	edges, err := s.graph.MatchedWith(c.Request.Context(), p)
	if err != nil {
		s.logger.Error("graph query failed", "principal", p.String(), "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"principal": p.String(), "matches": edges})
}
