// Package api provides the HTTP API for observing governance state.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/concord/internal/agents"
	"github.com/talgya/concord/internal/engine"
	"github.com/talgya/concord/internal/persistence"
	"github.com/talgya/concord/internal/social"
)

// Server serves governance state over HTTP.
type Server struct {
	Eng      *engine.Engine
	Loop     *engine.Loop
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// Snapshot persists the full state on demand (POST /api/v1/snapshot).
	Snapshot func() error
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/groups", s.handleGroups)
	mux.HandleFunc("/api/v1/group/", s.handleGroupDetail)
	mux.HandleFunc("/api/v1/territories", s.handleTerritories)
	mux.HandleFunc("/api/v1/territory/", s.handleTerritoryDetail)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/archive", s.handleArchive)
	mux.HandleFunc("/api/v1/reputation", s.handleReputation)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no GROUPSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	statusCounts := make(map[string]int)
	for _, g := range s.Eng.Groups() {
		statusCounts[g.Status.String()]++
	}

	status := map[string]any{
		"name":        "Concord",
		"tick":        s.Loop.Tick,
		"speed":       s.Loop.Speed,
		"running":     s.Loop.Running,
		"groups":      s.Eng.GroupCount(),
		"by_status":   statusCounts,
		"territories": len(s.Eng.Territories()),
	}
	writeJSON(w, status)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	type groupSummary struct {
		ID         social.GroupID `json:"id"`
		Name       string         `json:"name"`
		Type       string         `json:"type"`
		Status     string         `json:"status"`
		LeaderID   agents.AgentID `json:"leader_id"`
		Members    int            `json:"members"`
		Reputation float64        `json:"reputation"`
		Wealth     string         `json:"wealth"`
		Founded    string         `json:"founded"`
	}

	groups := s.Eng.Groups()
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.Before(groups[j].CreatedAt) })

	result := make([]groupSummary, 0, len(groups))
	for _, g := range groups {
		if status != "" && g.Status.String() != status {
			continue
		}
		result = append(result, groupSummary{
			ID:         g.ID,
			Name:       g.Name,
			Type:       g.Type.String(),
			Status:     g.Status.String(),
			LeaderID:   g.LeaderID,
			Members:    len(g.Members),
			Reputation: g.Reputation,
			Wealth:     humanize.Commaf(g.Resources.Wealth),
			Founded:    humanize.Time(g.CreatedAt),
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleGroupDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 || parts[4] == "" {
		http.Error(w, "missing group id", http.StatusBadRequest)
		return
	}

	g, ok := s.Eng.Group(social.GroupID(parts[4]))
	if !ok {
		http.Error(w, "group not found", http.StatusNotFound)
		return
	}

	type memberInfo struct {
		ID           agents.AgentID `json:"id"`
		Role         string         `json:"role"`
		Influence    float64        `json:"influence"`
		Contribution float64        `json:"contribution"`
		Joined       string         `json:"joined"`
		LastActivity string         `json:"last_activity"`
	}

	members := make([]memberInfo, 0, len(g.Members))
	for _, id := range g.MemberIDs() {
		m := g.Members[id]
		members = append(members, memberInfo{
			ID:           id,
			Role:         m.Role.String(),
			Influence:    m.Influence,
			Contribution: m.Contribution,
			Joined:       humanize.Time(m.JoinedAt),
			LastActivity: humanize.Time(m.LastActivity()),
		})
	}

	type decisionInfo struct {
		ID       social.DecisionID `json:"id"`
		Type     string            `json:"type"`
		Status   string            `json:"status"`
		Options  int               `json:"options"`
		Deadline string            `json:"deadline"`
	}
	decisions := make([]decisionInfo, 0, len(g.ActiveDecisions))
	for _, d := range g.ActiveDecisions {
		decisions = append(decisions, decisionInfo{
			ID:       d.ID,
			Type:     d.Type.String(),
			Status:   d.Status.String(),
			Options:  len(d.Options),
			Deadline: humanize.Time(d.Deadline),
		})
	}

	result := map[string]any{
		"id":          g.ID,
		"name":        g.Name,
		"type":        g.Type.String(),
		"description": g.Description,
		"status":      g.Status.String(),
		"leader_id":   g.LeaderID,
		"reputation":  g.Reputation,
		"created":     humanize.Time(g.CreatedAt),
		"last_active": humanize.Time(g.LastActive),
		"members":     members,
		"goals":       g.Goals,
		"subgroups":   g.Subgroups,
		"resources": map[string]any{
			"wealth":      humanize.Commaf(g.Resources.Wealth),
			"assets":      g.Resources.Assets,
			"inventory":   g.Resources.SharedInventory,
			"territories": len(g.Resources.Territories),
			"owned":       s.Eng.GroupResourceIDs(g.ID),
		},
		"active_decisions": decisions,
		"decision_history": len(g.DecisionHistory),
	}
	writeJSON(w, result)
}

func (s *Server) handleTerritories(w http.ResponseWriter, r *http.Request) {
	type territorySummary struct {
		ID           social.TerritoryID `json:"id"`
		Name         string             `json:"name"`
		ControlledBy social.GroupID     `json:"controlled_by,omitempty"`
		ControlScore float64            `json:"control_score"`
		Contesters   int                `json:"contesters"`
		Resources    int                `json:"resources"`
	}

	territories := s.Eng.Territories()
	sort.Slice(territories, func(i, j int) bool { return territories[i].ID < territories[j].ID })

	result := make([]territorySummary, 0, len(territories))
	for _, t := range territories {
		result = append(result, territorySummary{
			ID:           t.ID,
			Name:         t.Name,
			ControlledBy: t.ControlledBy,
			ControlScore: t.ControlScore,
			Contesters:   len(t.ContestedBy),
			Resources:    len(t.Resources),
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleTerritoryDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 || parts[4] == "" {
		http.Error(w, "missing territory id", http.StatusBadRequest)
		return
	}

	t, ok := s.Eng.Territory(social.TerritoryID(parts[4]))
	if !ok {
		http.Error(w, "territory not found", http.StatusNotFound)
		return
	}

	contesters := make([]social.GroupID, 0, len(t.ContestedBy))
	for gid := range t.ContestedBy {
		contesters = append(contesters, gid)
	}
	sort.Slice(contesters, func(i, j int) bool { return contesters[i] < contesters[j] })

	type resourceInfo struct {
		ID       social.ResourceID `json:"id"`
		Type     string            `json:"type"`
		Name     string            `json:"name"`
		Quantity string            `json:"quantity"`
	}
	resources := make([]resourceInfo, 0, len(t.Resources))
	for _, rid := range t.Resources {
		res, ok := s.Eng.Resource(rid)
		if !ok {
			continue
		}
		resources = append(resources, resourceInfo{
			ID:       res.ID,
			Type:     res.Type,
			Name:     res.Name,
			Quantity: humanize.Commaf(res.Quantity),
		})
	}

	result := map[string]any{
		"id":            t.ID,
		"name":          t.Name,
		"controlled_by": t.ControlledBy,
		"control_score": t.ControlScore,
		"contested_by":  contesters,
		"bounds":        t.Bounds,
		"resources":     resources,
		"last_claimed":  humanize.Time(t.LastClaimed),
	}
	writeJSON(w, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Eng.RecentEvents(0)

	// Optional group filter.
	if gid := r.URL.Query().Get("group"); gid != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.GroupID == social.GroupID(gid) {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}

	writeJSON(w, events[start:])
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	rows, err := s.DB.ArchivedGroups(limit)
	if err != nil {
		slog.Error("archive query failed", "error", err)
		writeJSON(w, []persistence.ArchivedGroup{})
		return
	}
	if rows == nil {
		rows = []persistence.ArchivedGroup{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleReputation(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent")
	targetID := r.URL.Query().Get("target")
	if agentID == "" || targetID == "" {
		http.Error(w, "usage: /api/v1/reputation?agent=ID&target=ID", http.StatusBadRequest)
		return
	}

	history := s.Eng.ReputationHistory(agents.AgentID(agentID), agents.AgentID(targetID))

	writeJSON(w, map[string]any{
		"agent":     agentID,
		"target":    targetID,
		"aggregate": s.Eng.GetAggregateReputation(agents.AgentID(agentID), agents.AgentID(targetID)),
		"history":   history,
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Loop.Speed = req.Speed
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Loop.Speed})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if s.Snapshot == nil {
		http.Error(w, "snapshots not configured", http.StatusServiceUnavailable)
		return
	}

	if err := s.Snapshot(); err != nil {
		slog.Error("snapshot failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "saved"})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
